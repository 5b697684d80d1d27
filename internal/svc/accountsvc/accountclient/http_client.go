package accountclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/accountdash/internal/domain"
	context_ "github.com/mkrupp/accountdash/internal/infra/context"
	"github.com/mkrupp/accountdash/internal/infra/logging"
)

// TraceIDHeader carries the trace id of the calling context.
const TraceIDHeader = "X-Request-ID"

var (
	// ErrUnexpectedStatus is returned when the server answers with a status the call does not expect.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrNotLoggedIn is returned when the client holds no valid session.
	ErrNotLoggedIn = errors.New("not logged in")
)

// HTTPClientConfig holds configuration for the account HTTP client.
type HTTPClientConfig struct {
	// BaseURL is the address of the account service
	BaseURL string `env:"BASE_URL" default:"http://localhost:8080"`

	// Timeout bounds each request; zero disables the timeout
	Timeout time.Duration `env:"TIMEOUT" default:"0s"`
}

// HTTPClient talks to the account service. The session cookie lives in a
// cookie jar scoped to BaseURL.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    *url.URL
	log        logging.Logger
	cfg        HTTPClientConfig
}

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, a fresh client is used. Redirects are never followed
// so that login and session responses can be inspected.
func NewHTTPClient(cfg HTTPClientConfig, httpClient *http.Client) (*HTTPClient, error) {
	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("new cookie jar: %w", err)
	}

	//nolint:exhaustruct
	client := &http.Client{}
	if httpClient != nil {
		*client = *httpClient
	}

	client.Jar = jar
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}

	return &HTTPClient{
		httpClient: client,
		baseURL:    baseURL,
		log:        logging.GetLogger("svc.accountsvc.http_client"),
		cfg:        cfg,
	}, nil
}

// BaseURL returns the configured service address.
func (hc *HTTPClient) BaseURL() string {
	return hc.baseURL.String()
}

// Token returns the current session token, or "" when there is none.
func (hc *HTTPClient) Token() string {
	for _, cookie := range hc.httpClient.Jar.Cookies(hc.baseURL) {
		if cookie.Name == domain.AuthTokenCookie {
			return cookie.Value
		}
	}

	return ""
}

// SetToken installs a session token, e.g. one restored from a SessionStore.
func (hc *HTTPClient) SetToken(token string) {
	//nolint:exhaustruct
	hc.httpClient.Jar.SetCookies(hc.baseURL, []*http.Cookie{{
		Name:  domain.AuthTokenCookie,
		Value: token,
		Path:  "/",
	}})
}

// Username reads the username from the session token's claims. The token is
// not verified; the server does that on every request.
func (hc *HTTPClient) Username() (string, error) {
	token := hc.Token()
	if token == "" {
		return "", ErrNotLoggedIn
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", errors.Join(domain.ErrInvalidAuthToken, err))
	}

	username, _ := claims["username"].(string)
	if username == "" {
		return "", domain.ErrInvalidAuthToken
	}

	return username, nil
}

// Register creates an account.
func (hc *HTTPClient) Register(ctx context.Context, username, password string) error {
	resp, err := hc.postForm(ctx, "/register", url.Values{"username": {username}, "password": {password}})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusFound, http.StatusSeeOther, http.StatusOK:
		return nil
	case http.StatusConflict:
		return domain.ErrUserAlreadyExists
	case http.StatusBadRequest:
		return errors.Join(
			domain.ValidateUsername(username),
			domain.ValidatePassword(password),
			fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status),
		)
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
}

// Login authenticates and keeps the session cookie.
func (hc *HTTPClient) Login(ctx context.Context, username, password string) error {
	resp, err := hc.postForm(ctx, "/login", url.Values{"username": {username}, "password": {password}})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusFound, http.StatusSeeOther:
		if hc.Token() == "" {
			return fmt.Errorf("%w: no session cookie", ErrUnexpectedStatus)
		}

		return nil
	case http.StatusUnauthorized, http.StatusBadRequest:
		return domain.ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
}

// CheckSession reports ErrNotLoggedIn unless the server accepts the session.
func (hc *HTTPClient) CheckSession(ctx context.Context) error {
	resp, err := hc.do(ctx, http.MethodGet, "/dashboard", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusFound, http.StatusUnauthorized:
		return ErrNotLoggedIn
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
}

// UpdateUsername submits newUsername as is. Any decodable response is
// returned as a result, whatever its status; only failures to complete the
// request or decode the body are errors.
func (hc *HTTPClient) UpdateUsername(ctx context.Context, newUsername string) (_ domain.UsernameUpdateResult, err error) {
	defer func() {
		if err != nil {
			hc.log.DebugContext(ctx, "update username request failed", "error", err)
		}
	}()

	body, err := json.Marshal(domain.UpdateUsernameRequest{NewUsername: newUsername})
	if err != nil {
		return domain.UsernameUpdateResult{}, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := hc.do(ctx, http.MethodPost, "/update-username", "application/json", bytes.NewReader(body))
	if err != nil {
		return domain.UsernameUpdateResult{}, err
	}
	defer resp.Body.Close()

	var payload domain.UpdateUsernameResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.UsernameUpdateResult{}, fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}

	return domain.UsernameUpdateResult{Message: payload.Message, Error: payload.Error}, nil
}

// Navigate loads path. Navigating to /logout drops the session cookie.
func (hc *HTTPClient) Navigate(ctx context.Context, path string) error {
	resp, err := hc.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	return nil
}

func (hc *HTTPClient) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	return hc.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (hc *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, hc.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	hc.log.DebugContext(ctx, "request done", "method", method, "path", path, "status", resp.StatusCode)

	return resp, nil
}
