package stubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(context.Background(), Options{Secret: "test-secret"})
	require.NoError(t, err)
	require.NoError(t, s.AddUser("alice@example.com", "wonderland", "Alice Liddell", false))
	require.NoError(t, s.AddUser("root@example.com", "changethis", "Site Admin", true))
	return s
}

func login(t *testing.T, s *Server, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, pathLogin, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func accessToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "bearer", body.TokenType)
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

func getMe(s *Server, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, pathMe, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesUsableToken(t *testing.T) {
	s := newTestServer(t)

	rec := login(t, s, "alice@example.com", "wonderland")
	require.Equal(t, http.StatusOK, rec.Code)
	token := accessToken(t, rec)

	me := getMe(s, token)
	require.Equal(t, http.StatusOK, me.Code)

	var identity struct {
		Email       string `json:"email"`
		FullName    string `json:"full_name"`
		IsActive    bool   `json:"is_active"`
		IsSuperuser bool   `json:"is_superuser"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &identity))
	require.Equal(t, "alice@example.com", identity.Email)
	require.Equal(t, "Alice Liddell", identity.FullName)
	require.True(t, identity.IsActive)
	require.False(t, identity.IsSuperuser)
}

func TestLoginMarksSuperuser(t *testing.T) {
	s := newTestServer(t)

	token := accessToken(t, login(t, s, "root@example.com", "changethis"))
	me := getMe(s, token)
	require.Equal(t, http.StatusOK, me.Code)

	var identity struct {
		IsSuperuser bool `json:"is_superuser"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &identity))
	require.True(t, identity.IsSuperuser)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t)

	rec := login(t, s, "alice@example.com", "not-the-password")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Incorrect email or password", body.Detail)
}

func TestLoginValidatesMissingFields(t *testing.T) {
	s := newTestServer(t)

	rec := login(t, s, "", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Detail []struct {
			Loc []string `json:"loc"`
			Msg string   `json:"msg"`
		} `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Detail, 2)
	require.Equal(t, []string{"body", "username"}, body.Detail[0].Loc)
	require.Equal(t, "field required", body.Detail[0].Msg)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := accessToken(t, login(t, s, "alice@example.com", "wonderland"))

	req := httptest.NewRequest(http.MethodPost, pathLogout, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	me := getMe(s, token)
	require.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestMeRejectsGarbageToken(t *testing.T) {
	s := newTestServer(t)

	me := getMe(s, "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, me.Code)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &body))
	require.Equal(t, "Could not validate credentials", body.Error)
}

func TestVerifyGoogleTokenFakeMode(t *testing.T) {
	s := newTestServer(t)

	payload := strings.NewReader(`{"id_token":"carol@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, pathVerifyGoogle, payload)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	token := accessToken(t, rec)

	me := getMe(s, token)
	require.Equal(t, http.StatusOK, me.Code)
	require.Contains(t, me.Body.String(), "carol@example.com")
}

func TestGoogleLoginFakeModeRedirectsWithToken(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet,
		pathGoogleLogin+"?callback_url="+url.QueryEscape("http://localhost:8080/auth/callback"), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/callback", location.Path)

	q := location.Query()
	require.NotEmpty(t, q.Get("token"))
	require.NotEmpty(t, q.Get("user_id"))
	require.Equal(t, "604800", q.Get("expires_in"))

	me := getMe(s, q.Get("token"))
	require.Equal(t, http.StatusOK, me.Code)
	require.Contains(t, me.Body.String(), "dev@example.com")
}

func TestGoogleLoginRequiresCallbackURL(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, pathGoogleLogin, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
