package accountsvc

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/mkrupp/accountdash/internal/domain"
	context_ "github.com/mkrupp/accountdash/internal/infra/context"
	"github.com/mkrupp/accountdash/internal/infra/logging"
	http_ "github.com/mkrupp/accountdash/internal/infra/transport/http"
)

// Messages rendered to clients.
const (
	MsgInvalidUsername      = "Invalid username. It should be 4-16 characters long and contain only alphanumeric characters."
	MsgInvalidPassword      = "Invalid password. It should be alphanumeric and can contain symbols !@#$%^&*()\\/;: with a minimum length of 6 characters."
	MsgUsernameExists       = "Username already exists"
	MsgRegisterFailed       = "Failed to register user"
	MsgLoginInvalidUsername = "Invalid username."
	MsgLoginInvalidPassword = "Invalid password."
	MsgLoginFailed          = "Invalid username or password"
	MsgTokenFailed          = "Failed to generate token"
	MsgInvalidRequest       = "Invalid request"
	MsgUsernameUnchanged    = "New username must be different from the current one"
	MsgUsernameTaken        = "Username already taken"
	MsgUserNotFound         = "User not found"
	MsgUpdateFailed         = "Failed to update username"
	MsgUnauthorized         = "Unauthorized"
)

//go:embed templates/*.html
var templatesFS embed.FS

//nolint:gochecknoglobals
var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig

	// CookieSecure marks the session cookie as HTTPS only
	CookieSecure bool `env:"COOKIE_SECURE" default:"false"`

	// MaxBodyBytes limits request bodies
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" default:"1048576"`
}

type pageData struct {
	Username      string
	UsernameError string
	PasswordError string
}

// HTTPTransport serves the account pages and the username update endpoint.
type HTTPTransport struct {
	accountSvc *AccountService
	log        logging.Logger
	cfg        HTTPTransportConfig
	mux        *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport and registers its routes:
//   - GET /, GET /healthz
//   - GET|POST /register, GET|POST /login, GET /logout
//   - GET /dashboard and POST /update-username, both behind the session cookie.
func NewHTTPTransport(accountSvc *AccountService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		accountSvc: accountSvc,
		log:        logging.GetLogger("svc.accountsvc.http_transport"),
		cfg:        cfg,
		mux:        http.NewServeMux(),
	}

	pageAuth := func(h http.HandlerFunc) http.Handler {
		return http_.SessionMiddleware(h, accountSvc, http_.RedirectHandler("/login"), ht.log)
	}

	apiAuth := func(h http.HandlerFunc) http.Handler {
		return http_.SessionMiddleware(h, accountSvc, http.HandlerFunc(ht.handleUnauthorizedJSON), ht.log)
	}

	ht.mux.HandleFunc("GET /{$}", ht.HandleIndex)
	ht.mux.HandleFunc("GET /healthz", ht.HandleHealthz)
	ht.mux.HandleFunc("GET /register", ht.HandleRegisterPage)
	ht.mux.HandleFunc("POST /register", ht.HandleRegister)
	ht.mux.HandleFunc("GET /login", ht.HandleLoginPage)
	ht.mux.HandleFunc("POST /login", ht.HandleLogin)
	ht.mux.HandleFunc("GET /logout", ht.HandleLogout)
	ht.mux.Handle("GET /dashboard", pageAuth(ht.HandleDashboard))
	ht.mux.Handle("POST /update-username", apiAuth(ht.HandleUpdateUsername))

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// HandleIndex renders the landing page.
func (ht *HTTPTransport) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ht.render(w, r, http.StatusOK, "index.html", pageData{})
}

// HandleHealthz reports liveness.
func (ht *HTTPTransport) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ht.writeJSON(w, r, http.StatusOK, domain.MessageResponse{Message: "ok"})
}

// HandleRegisterPage renders the registration form.
func (ht *HTTPTransport) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	ht.render(w, r, http.StatusOK, "register.html", pageData{})
}

// HandleRegister processes the registration form.
// Expects form parameters: username, password.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, ht.cfg.MaxBodyBytes)

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return fmt.Errorf("parse form: %w", err)
	}

	data := pageData{Username: r.PostFormValue("username")}

	log = log.With(logging.Group("user", "username", data.Username))

	err = ht.accountSvc.RegisterUser(r.Context(), data.Username, r.PostFormValue("password"))

	switch {
	case err == nil:
		http.Redirect(w, r, "/login", http.StatusFound)

		return nil
	case errors.Is(err, domain.ErrInvalidUsername) || errors.Is(err, domain.ErrInvalidPassword):
		if errors.Is(err, domain.ErrInvalidUsername) {
			data.UsernameError = MsgInvalidUsername
		}

		if errors.Is(err, domain.ErrInvalidPassword) {
			data.PasswordError = MsgInvalidPassword
		}

		ht.render(w, r, http.StatusBadRequest, "register.html", data)
	case errors.Is(err, domain.ErrUserAlreadyExists):
		data.UsernameError = MsgUsernameExists
		ht.render(w, r, http.StatusConflict, "register.html", data)
	default:
		data.UsernameError = MsgRegisterFailed
		ht.render(w, r, http.StatusInternalServerError, "register.html", data)
	}

	return fmt.Errorf("register user: %w", err)
}

// HandleLoginPage renders the login form.
func (ht *HTTPTransport) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	ht.render(w, r, http.StatusOK, "login.html", pageData{})
}

// HandleLogin processes the login form and sets the session cookie.
// Expects form parameters: username, password.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, ht.cfg.MaxBodyBytes)

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return fmt.Errorf("parse form: %w", err)
	}

	data := pageData{Username: r.PostFormValue("username")}
	password := r.PostFormValue("password")

	log = log.With(logging.Group("user", "username", data.Username))

	if err := errors.Join(domain.ValidateUsername(data.Username), domain.ValidatePassword(password)); err != nil {
		if errors.Is(err, domain.ErrInvalidUsername) {
			data.UsernameError = MsgLoginInvalidUsername
		}

		if errors.Is(err, domain.ErrInvalidPassword) {
			data.PasswordError = MsgLoginInvalidPassword
		}

		ht.render(w, r, http.StatusBadRequest, "login.html", data)

		return fmt.Errorf("validate credentials: %w", err)
	}

	token, err := ht.accountSvc.Login(r.Context(), data.Username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			data.UsernameError = MsgLoginFailed
			ht.render(w, r, http.StatusUnauthorized, "login.html", data)
		} else {
			data.UsernameError = MsgTokenFailed
			ht.render(w, r, http.StatusInternalServerError, "login.html", data)
		}

		return fmt.Errorf("login user: %w", err)
	}

	http.SetCookie(w, ht.sessionCookie(token, int(ht.accountSvc.Config.TokenDuration.Seconds())))
	http.Redirect(w, r, "/dashboard", http.StatusFound)

	return nil
}

// HandleLogout clears the session cookie.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, ht.sessionCookie("", -1))
	ht.render(w, r, http.StatusOK, "logout.html", pageData{})
}

// HandleDashboard renders the account dashboard for the session user.
func (ht *HTTPTransport) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	username, _ := context_.UsernameFromContext(r.Context())

	ht.render(w, r, http.StatusOK, "dashboard.html", pageData{Username: username})
}

// HandleUpdateUsername renames the session user.
// Expects a JSON body {"new_username": "..."} and answers
// {"message": "Username updated successfully"} or {"error": "..."}.
func (ht *HTTPTransport) HandleUpdateUsername(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdateUsername(w, r)
}

func (ht *HTTPTransport) handleUpdateUsername(w http.ResponseWriter, r *http.Request) (err error) {
	username, _ := context_.UsernameFromContext(r.Context())
	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("user", "username", username),
	)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "username update failed", "error", err)
		} else {
			log.DebugContext(ctx, "username updated")
		}
	}(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, ht.cfg.MaxBodyBytes)

	var req domain.UpdateUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ht.writeJSON(w, r, http.StatusBadRequest, domain.UpdateUsernameResponse{Error: MsgInvalidRequest})

		return fmt.Errorf("decode request: %w", err)
	}

	err = ht.accountSvc.UpdateUsername(r.Context(), username, req.NewUsername)
	if err == nil {
		ht.writeJSON(w, r, http.StatusOK, domain.UpdateUsernameResponse{Message: domain.UsernameUpdatedMessage})

		return nil
	}

	status, msg := updateUsernameError(err)
	ht.writeJSON(w, r, status, domain.UpdateUsernameResponse{Error: msg})

	return fmt.Errorf("update username: %w", err)
}

func updateUsernameError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidUsername):
		return http.StatusBadRequest, MsgInvalidUsername
	case errors.Is(err, domain.ErrUsernameUnchanged):
		return http.StatusBadRequest, MsgUsernameUnchanged
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return http.StatusConflict, MsgUsernameTaken
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, MsgUserNotFound
	default:
		return http.StatusInternalServerError, MsgUpdateFailed
	}
}

func (ht *HTTPTransport) handleUnauthorizedJSON(w http.ResponseWriter, r *http.Request) {
	ht.writeJSON(w, r, http.StatusUnauthorized, domain.UpdateUsernameResponse{Error: MsgUnauthorized})
}

func (ht *HTTPTransport) sessionCookie(value string, maxAge int) *http.Cookie {
	//nolint:exhaustruct
	return &http.Cookie{
		Name:     domain.AuthTokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   ht.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (ht *HTTPTransport) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := pages.ExecuteTemplate(w, page, data); err != nil {
		ht.log.ErrorContext(r.Context(), "render page failed", "page", page, "error", err)
	}
}

func (ht *HTTPTransport) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		ht.log.ErrorContext(r.Context(), "encode response failed", "error", err)
	}
}
