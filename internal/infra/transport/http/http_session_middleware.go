package http

import (
	"context"
	"net/http"

	"github.com/mkrupp/accountdash/internal/domain"
	context_ "github.com/mkrupp/accountdash/internal/infra/context"
	"github.com/mkrupp/accountdash/internal/infra/logging"
)

// TokenValidator validates session tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (domain.AuthToken, error)
}

// SessionMiddleware authenticates requests by the session cookie. Valid
// sessions put the username into the request context; anything else is
// handed to unauthorized, which decides how to answer (redirect or 401).
func SessionMiddleware(
	next http.Handler,
	validator TokenValidator,
	unauthorized http.Handler,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(domain.AuthTokenCookie)
		if err != nil || cookie.Value == "" {
			log.DebugContext(r.Context(), "no session cookie", "error", domain.ErrNoAuthToken)
			unauthorized.ServeHTTP(w, r)

			return
		}

		token, err := validator.ValidateToken(r.Context(), cookie.Value)
		if err != nil {
			log.WarnContext(r.Context(), "invalid session", "error", err)
			unauthorized.ServeHTTP(w, r)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithUsername(r.Context(), token.Username)))
	})
}

// RedirectHandler answers with a 302 to the given location.
func RedirectHandler(location string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, location, http.StatusFound)
	})
}
