package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sessiongate/sessiongate/server"
	"github.com/stretchr/testify/require"
)

func postForm(s *server.Server, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestLoginSubmission(t *testing.T) {
	s := newGateway(t, fakeBackend(t).URL)

	t.Run("success sets cookie then navigates", func(t *testing.T) {
		rec := postForm(s, "/auth/login", url.Values{
			"username": {"alice@example.com"},
			"password": {"wonderland"},
		})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, userToken, cookies[0].Value)
	})

	t.Run("superuser navigates to admin", func(t *testing.T) {
		rec := postForm(s, "/auth/login", url.Values{
			"username": {"root@example.com"},
			"password": {"changethis"},
		})
		require.Equal(t, "/admin", rec.Header().Get("Location"))
	})

	t.Run("callbackUrl wins over the landing route", func(t *testing.T) {
		rec := postForm(s, "/auth/login", url.Values{
			"username":    {"alice@example.com"},
			"password":    {"wonderland"},
			"callbackUrl": {"/settings"},
		})
		require.Equal(t, "/settings", rec.Header().Get("Location"))
	})

	t.Run("absolute callbackUrl is ignored", func(t *testing.T) {
		rec := postForm(s, "/auth/login", url.Values{
			"username":    {"alice@example.com"},
			"password":    {"wonderland"},
			"callbackUrl": {"//evil.example.com/phish"},
		})
		require.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("bad credentials redirect with normalized message", func(t *testing.T) {
		rec := postForm(s, "/auth/login", url.Values{
			"username": {"alice@example.com"},
			"password": {"nope"},
		})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login?error=login_failed&message=Incorrect+email+or+password", rec.Header().Get("Location"))
		require.Empty(t, rec.Result().Cookies())
	})

	t.Run("admin scope redirects to the admin login page", func(t *testing.T) {
		rec := postForm(s, "/auth/login", url.Values{
			"username": {"root@example.com"},
			"password": {"nope"},
			"scope":    {"admin"},
		})
		require.Contains(t, rec.Header().Get("Location"), "/admin/login?")
	})

	t.Run("validation errors pass through field by field", func(t *testing.T) {
		rec := postForm(s, "/auth/login", url.Values{
			"username": {"not-an-email"},
			"password": {"whatever"},
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body struct {
			Error  string              `json:"error"`
			Fields map[string][]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "value is not a valid email address", body.Error)
		require.Equal(t, []string{"value is not a valid email address"}, body.Fields["username"])
	})

	t.Run("missing fields never reach the backend", func(t *testing.T) {
		rec := postForm(s, "/auth/login", url.Values{"username": {"alice@example.com"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "error=missing_credentials")
	})
}

func TestLogout(t *testing.T) {
	t.Run("clears cookie and redirects to login", func(t *testing.T) {
		s := newGateway(t, fakeBackend(t).URL)

		rec := postForm(s, "/auth/logout", url.Values{}, tokenCookie(userToken))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Empty(t, cookies[0].Value)
		require.Negative(t, cookies[0].MaxAge)
	})

	t.Run("local teardown survives a dead backend", func(t *testing.T) {
		dead := fakeBackend(t)
		dead.Close()
		s := newGateway(t, dead.URL)

		rec := postForm(s, "/auth/logout", url.Values{}, tokenCookie(userToken))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Negative(t, cookies[0].MaxAge)
	})

	t.Run("admin route uses admin login", func(t *testing.T) {
		s := newGateway(t, fakeBackend(t).URL)

		rec := postForm(s, "/admin/auth/logout", url.Values{}, tokenCookie(adminToken))
		require.Equal(t, "/admin/login", rec.Header().Get("Location"))
	})
}

func TestMeHandler(t *testing.T) {
	s := newGateway(t, fakeBackend(t).URL)

	t.Run("null without a session", func(t *testing.T) {
		rec := get(s, "/api/me")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("identity with a session", func(t *testing.T) {
		rec := get(s, "/api/me", tokenCookie(userToken))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "alice@example.com")
	})

	t.Run("invalid token reads as logged out", func(t *testing.T) {
		rec := get(s, "/api/me", tokenCookie("stale"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
	})
}

func TestGoogleLoginHandler(t *testing.T) {
	backendSrv := fakeBackend(t)
	s := newGateway(t, backendSrv.URL)

	rec := get(s, "/auth/google")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/api/v1/login/google", location.Path)
	require.Contains(t, location.Query().Get("callback_url"), "/auth/callback")
}

func TestLoginPage_EchoesState(t *testing.T) {
	s := newGateway(t, fakeBackend(t).URL)

	rec := get(s, "/login?error=access_denied&message=User+cancelled&callbackUrl=%2Fsettings")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "access_denied", body["error"])
	require.Equal(t, "User cancelled", body["message"])
	require.Equal(t, "/settings", body["callbackUrl"])
}
