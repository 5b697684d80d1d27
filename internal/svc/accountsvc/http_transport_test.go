package accountsvc_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/accountdash/internal/domain"
	"github.com/mkrupp/accountdash/internal/svc/accountsvc"
)

func newTestTransport(t *testing.T) (*accountsvc.HTTPTransport, *accountsvc.AccountService, *mockUserRepository) {
	t.Helper()

	svc, repo := setupTestService(t)

	//nolint:exhaustruct
	ht := accountsvc.NewHTTPTransport(svc, accountsvc.HTTPTransportConfig{MaxBodyBytes: 1 << 20})

	return ht, svc, repo
}

func postForm(ht http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	ht.ServeHTTP(rec, req)

	return rec
}

func sessionCookie(t *testing.T, ht http.Handler, username, password string) *http.Cookie {
	t.Helper()

	rec := postForm(ht, "/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	for _, c := range rec.Result().Cookies() {
		if c.Name == domain.AuthTokenCookie {
			return c
		}
	}

	t.Fatal("no session cookie set")

	return nil
}

func TestHTTPTransport_Pages(t *testing.T) {
	t.Parallel()

	ht, _, _ := newTestTransport(t)

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{path: "/", wantCode: http.StatusOK, wantBody: "Welcome"},
		{path: "/register", wantCode: http.StatusOK, wantBody: `action="/register"`},
		{path: "/login", wantCode: http.StatusOK, wantBody: `action="/login"`},
		{path: "/healthz", wantCode: http.StatusOK, wantBody: `"ok"`},
		{path: "/nope", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			ht.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHTTPTransport_Register(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		username  string
		password  string
		wantCode  int
		wantError string
	}{
		{name: "success", username: "alice01", password: "s3cret!", wantCode: http.StatusFound},
		{name: "invalid username", username: "a", password: "s3cret!", wantCode: http.StatusBadRequest, wantError: "Invalid username."},
		{name: "invalid password", username: "alice01", password: "x", wantCode: http.StatusBadRequest, wantError: "Invalid password."},
		{name: "existing user", username: "bob0001", password: "s3cret!", wantCode: http.StatusConflict, wantError: accountsvc.MsgUsernameExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ht, svc, _ := newTestTransport(t)
			registerUser(t, svc, "bob0001", "s3cret!")

			rec := postForm(ht, "/register", url.Values{"username": {tt.username}, "password": {tt.password}})

			assert.Equal(t, tt.wantCode, rec.Code)

			if tt.wantError != "" {
				assert.Contains(t, rec.Body.String(), tt.wantError)
			} else {
				assert.Equal(t, "/login", rec.Header().Get("Location"))
			}
		})
	}
}

func TestHTTPTransport_Login(t *testing.T) {
	t.Parallel()

	ht, svc, _ := newTestTransport(t)
	registerUser(t, svc, "alice01", "s3cret!")

	cookie := sessionCookie(t, ht, "alice01", "s3cret!")
	assert.True(t, cookie.HttpOnly)
	assert.Empty(t, cookie.Domain)
	assert.Equal(t, "/", cookie.Path)

	rec := postForm(ht, "/login", url.Values{"username": {"alice01"}, "password": {"wrong!!"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), accountsvc.MsgLoginFailed)
	assert.Empty(t, rec.Result().Cookies())
}

func TestHTTPTransport_Dashboard(t *testing.T) {
	t.Parallel()

	ht, svc, _ := newTestTransport(t)
	registerUser(t, svc, "alice01", "s3cret!")

	rec := httptest.NewRecorder()
	ht.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(sessionCookie(t, ht, "alice01", "s3cret!"))

	rec = httptest.NewRecorder()
	ht.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="alice01"`)
}

func TestHTTPTransport_Logout(t *testing.T) {
	t.Parallel()

	ht, _, _ := newTestTransport(t)

	rec := httptest.NewRecorder()
	ht.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, domain.AuthTokenCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestHTTPTransport_UpdateUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		updateErr error
		wantCode  int
		wantResp  domain.UpdateUsernameResponse
	}{
		{
			name:     "success",
			body:     `{"new_username":"alice02"}`,
			wantCode: http.StatusOK,
			wantResp: domain.UpdateUsernameResponse{Message: domain.UsernameUpdatedMessage},
		},
		{
			name:     "malformed body",
			body:     `{"new_username":`,
			wantCode: http.StatusBadRequest,
			wantResp: domain.UpdateUsernameResponse{Error: accountsvc.MsgInvalidRequest},
		},
		{
			name:     "invalid username",
			body:     `{"new_username":"no way"}`,
			wantCode: http.StatusBadRequest,
			wantResp: domain.UpdateUsernameResponse{Error: accountsvc.MsgInvalidUsername},
		},
		{
			name:     "empty username",
			body:     `{"new_username":""}`,
			wantCode: http.StatusBadRequest,
			wantResp: domain.UpdateUsernameResponse{Error: accountsvc.MsgInvalidUsername},
		},
		{
			name:     "unchanged username",
			body:     `{"new_username":"alice01"}`,
			wantCode: http.StatusBadRequest,
			wantResp: domain.UpdateUsernameResponse{Error: accountsvc.MsgUsernameUnchanged},
		},
		{
			name:     "taken username",
			body:     `{"new_username":"bob0001"}`,
			wantCode: http.StatusConflict,
			wantResp: domain.UpdateUsernameResponse{Error: accountsvc.MsgUsernameTaken},
		},
		{
			name:     "repository failure",
			body:     `{"new_username":"alice02"}`,
			updateErr: errRepo,
			wantCode:  http.StatusInternalServerError,
			wantResp: domain.UpdateUsernameResponse{Error: accountsvc.MsgUpdateFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ht, svc, repo := newTestTransport(t)
			registerUser(t, svc, "alice01", "s3cret!")
			registerUser(t, svc, "bob0001", "s3cret!")

			cookie := sessionCookie(t, ht, "alice01", "s3cret!")
			repo.updateErr = tt.updateErr

			req := httptest.NewRequest(http.MethodPost, "/update-username", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.AddCookie(cookie)

			rec := httptest.NewRecorder()
			ht.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			var resp domain.UpdateUsernameResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantResp, resp)
		})
	}
}

func TestHTTPTransport_UpdateUsername_UserGone(t *testing.T) {
	t.Parallel()

	ht, svc, repo := newTestTransport(t)
	registerUser(t, svc, "alice01", "s3cret!")

	cookie := sessionCookie(t, ht, "alice01", "s3cret!")

	// the row disappears between session check and update
	repo.updateErr = domain.ErrUserNotFound

	req := httptest.NewRequest(http.MethodPost, "/update-username", strings.NewReader(`{"new_username":"alice03"}`))
	req.AddCookie(cookie)

	rec := httptest.NewRecorder()
	ht.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, rec.Body.String())
}

func TestHTTPTransport_RenameEndsOldSession(t *testing.T) {
	t.Parallel()

	ht, svc, _ := newTestTransport(t)
	registerUser(t, svc, "alice01", "s3cret!")

	cookie := sessionCookie(t, ht, "alice01", "s3cret!")

	rename := func(newUsername string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/update-username",
			strings.NewReader(`{"new_username":"`+newUsername+`"}`))
		req.AddCookie(cookie)

		rec := httptest.NewRecorder()
		ht.ServeHTTP(rec, req)

		return rec
	}

	rec := rename("alice02")
	require.Equal(t, http.StatusOK, rec.Code)

	// another person registers the freed name
	rec = postForm(ht, "/register", url.Values{"username": {"alice01"}, "password": {"0ther!!"}})
	require.Equal(t, http.StatusFound, rec.Code)

	rec = rename("hijacked")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	dashboard := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	dashboard.AddCookie(cookie)

	rec = httptest.NewRecorder()
	ht.ServeHTTP(rec, dashboard)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// both accounts are untouched
	_, err := svc.Login(t.Context(), "alice01", "0ther!!")
	require.NoError(t, err)

	_, err = svc.Login(t.Context(), "alice02", "s3cret!")
	require.NoError(t, err)

	_, err = svc.Login(t.Context(), "hijacked", "s3cret!")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestHTTPTransport_UpdateUsername_Unauthorized(t *testing.T) {
	t.Parallel()

	ht, _, _ := newTestTransport(t)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no cookie"},
		{name: "invalid cookie", cookie: &http.Cookie{Name: domain.AuthTokenCookie, Value: "forged"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/update-username", strings.NewReader(`{"new_username":"alice02"}`))
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			rec := httptest.NewRecorder()
			ht.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
		})
	}
}
