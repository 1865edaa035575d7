package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sessiongate/sessiongate/backend"
	"github.com/sessiongate/sessiongate/internal/config"
	"github.com/sessiongate/sessiongate/server"
	"github.com/stretchr/testify/require"
)

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

// fakeBackend stands in for the external API: it accepts the two fixture
// tokens and rejects everything else with the legacy detail envelope.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+backend.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch {
		case r.FormValue("username") == "alice@example.com" && r.FormValue("password") == "wonderland":
			json.NewEncoder(w).Encode(backend.Token{AccessToken: userToken, TokenType: "bearer"})
		case r.FormValue("username") == "root@example.com" && r.FormValue("password") == "changethis":
			json.NewEncoder(w).Encode(backend.Token{AccessToken: adminToken, TokenType: "bearer"})
		case r.FormValue("username") == "not-an-email":
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail":[{"loc":["body","username"],"msg":"value is not a valid email address"}]}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Incorrect email or password"}`))
		}
	})
	mux.HandleFunc("GET "+backend.PathMe, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer " + userToken:
			json.NewEncoder(w).Encode(backend.Identity{ID: "u1", Email: "alice@example.com", IsActive: true})
		case "Bearer " + adminToken:
			json.NewEncoder(w).Encode(backend.Identity{ID: "a1", Email: "root@example.com", IsActive: true, IsSuperuser: true})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Could not validate credentials"}`))
		}
	})
	mux.HandleFunc("POST "+backend.PathLogout, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST "+backend.PathAdminLogout, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T, backendURL string) *server.Server {
	t.Helper()
	s, err := server.New(config.New(), backend.NewWithHTTPClient(backendURL, nil))
	require.NoError(t, err)
	return s
}

func get(s *server.Server, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func tokenCookie(value string) *http.Cookie {
	return &http.Cookie{Name: "accessToken", Value: value}
}

func TestRequireSession_NoCookieRedirectsWithCallbackURL(t *testing.T) {
	s := newGateway(t, fakeBackend(t).URL)

	rec := get(s, "/")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login?callbackUrl=%2F", rec.Header().Get("Location"))
}

func TestRequireSession_ValidTokenForwards(t *testing.T) {
	s := newGateway(t, fakeBackend(t).URL)

	rec := get(s, "/", tokenCookie(userToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var identity backend.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &identity))
	require.Equal(t, "u1", identity.ID)
}

func TestRequireSession_RejectedTokenRedirectsWithoutDeletingCookie(t *testing.T) {
	s := newGateway(t, fakeBackend(t).URL)

	rec := get(s, "/", tokenCookie("stale"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login?callbackUrl=%2F", rec.Header().Get("Location"))
	// Deletion is the client's responsibility, not the guard's.
	require.Empty(t, rec.Result().Cookies())
}

func TestRequireSession_BackendDownIsAuthFailure(t *testing.T) {
	dead := fakeBackend(t)
	dead.Close()
	s := newGateway(t, dead.URL)

	rec := get(s, "/", tokenCookie(userToken))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login?callbackUrl=%2F", rec.Header().Get("Location"))
	require.Empty(t, rec.Result().Cookies())
}

func TestRequireSession_AdminSurface(t *testing.T) {
	s := newGateway(t, fakeBackend(t).URL)

	t.Run("no cookie goes to the admin login", func(t *testing.T) {
		rec := get(s, "/admin")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/admin/login?callbackUrl=%2Fadmin", rec.Header().Get("Location"))
	})

	t.Run("regular user bounces to the user surface", func(t *testing.T) {
		rec := get(s, "/admin", tokenCookie(userToken))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("superuser is served", func(t *testing.T) {
		rec := get(s, "/admin", tokenCookie(adminToken))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
