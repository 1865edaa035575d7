// Package stubapi is a development stand-in for the backend API the gateway
// and agent talk to. It implements the login, identity, logout, and Google
// endpoints with in-memory state, and deliberately answers errors in the
// same envelope shapes the real backend uses.
package stubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	pathLogin          = "/api/v1/login/access-token"
	pathMe             = "/api/v1/users/me"
	pathLogout         = "/api/v1/logout"
	pathAdminLogout    = "/api/v1/admin/logout"
	pathVerifyGoogle   = "/api/v1/login/verify-google-token"
	pathGoogleLogin    = "/api/v1/login/google"
	pathGoogleCallback = "/api/v1/login/google/callback"
)

// Options configures the stub.
type Options struct {
	Secret   string
	TokenTTL time.Duration

	// Google credentials; when empty the Google flow is faked locally.
	GoogleClientID     string
	GoogleClientSecret string
	BaseURL            string
}

type Server struct {
	mux    *http.ServeMux
	users  *userTable
	tokens *tokenMinter
	google *googleFlow
}

func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Secret == "" {
		return nil, errors.New("[stubapi New] signing secret is required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}

	s := &Server{
		mux:    http.NewServeMux(),
		users:  newUserTable(),
		tokens: newTokenMinter([]byte(opts.Secret), opts.TokenTTL),
	}

	if opts.GoogleClientID != "" {
		flow, err := newGoogleFlow(ctx, opts.GoogleClientID, opts.GoogleClientSecret,
			strings.TrimRight(opts.BaseURL, "/")+pathGoogleCallback)
		if err != nil {
			return nil, err
		}
		s.google = flow
	}

	s.mux.HandleFunc("POST "+pathLogin, s.loginHandler)
	s.mux.HandleFunc("GET "+pathMe, s.meHandler)
	s.mux.HandleFunc("POST "+pathLogout, s.logoutHandler)
	s.mux.HandleFunc("POST "+pathAdminLogout, s.logoutHandler)
	s.mux.HandleFunc("POST "+pathVerifyGoogle, s.verifyGoogleHandler)
	s.mux.HandleFunc("GET "+pathGoogleLogin, s.googleLoginHandler)
	s.mux.HandleFunc("GET "+pathGoogleCallback, s.googleCallbackHandler)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// AddUser seeds an account, used at startup and in tests.
func (s *Server) AddUser(email, password, fullName string, superuser bool) error {
	_, err := s.users.add(email, password, fullName, superuser)
	return err
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid form data"})
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		// FastAPI-style validation envelope.
		details := []map[string]any{}
		if username == "" {
			details = append(details, map[string]any{"loc": []string{"body", "username"}, "msg": "field required"})
		}
		if password == "" {
			details = append(details, map[string]any{"loc": []string{"body", "password"}, "msg": "field required"})
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": details})
		return
	}

	user, ok := s.users.getByEmail(username)
	if !ok || !user.checkPassword(password) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Incorrect email or password"})
		return
	}
	if !user.IsActive {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Inactive user"})
		return
	}

	s.respondToken(w, user)
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Could not validate credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           user.ID,
		"email":        user.Email,
		"full_name":    user.FullName,
		"is_active":    user.IsActive,
		"is_superuser": user.IsSuperuser,
	})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.tokens.revoke(token)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

func (s *Server) verifyGoogleHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IDToken == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "id_token"}, "msg": "field required"}},
		})
		return
	}

	var claims identityClaims
	if s.google != nil {
		verified, err := s.google.verifyIDToken(r.Context(), body.IDToken)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid Google token"})
			return
		}
		claims = verified
	} else {
		// Fake mode: the "ID token" is just an email address.
		claims = identityClaims{Email: body.IDToken, Name: "Dev User"}
	}

	user, err := s.users.findOrCreate(claims.Email, claims.Name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to provision user"})
		return
	}
	s.respondToken(w, user)
}

func (s *Server) googleLoginHandler(w http.ResponseWriter, r *http.Request) {
	callbackURL := r.URL.Query().Get("callback_url")
	if callbackURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "callback_url is required"})
		return
	}

	if s.google != nil {
		state := uuid.New().String()
		http.Redirect(w, r, s.google.authURL(state, callbackURL), http.StatusSeeOther)
		return
	}

	// Fake mode: mint a session for the dev account straight away.
	user, err := s.users.findOrCreate("dev@example.com", "Dev User")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to provision user"})
		return
	}
	s.redirectWithToken(w, r, callbackURL, user)
}

func (s *Server) googleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Google flow not configured"})
		return
	}

	q := r.URL.Query()
	callbackURL, ok := s.google.takeState(q.Get("state"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid state parameter"})
		return
	}

	if errParam := q.Get("error"); errParam != "" {
		redirectParams(w, r, callbackURL, url.Values{
			"error":   {errParam},
			"message": {q.Get("error_description")},
		})
		return
	}

	claims, err := s.google.exchange(r.Context(), q.Get("code"))
	if err != nil {
		log.Warn().Err(err).Msg("stubapi: google exchange failed")
		redirectParams(w, r, callbackURL, url.Values{"error": {"exchange_failed"}})
		return
	}

	user, err := s.users.findOrCreate(claims.Email, claims.Name)
	if err != nil {
		redirectParams(w, r, callbackURL, url.Values{"error": {"provisioning_failed"}})
		return
	}
	s.redirectWithToken(w, r, callbackURL, user)
}

func (s *Server) authenticate(r *http.Request) (*User, bool) {
	token := bearerToken(r)
	if token == "" {
		return nil, false
	}
	sub, err := s.tokens.subject(token)
	if err != nil {
		return nil, false
	}
	return s.users.getByID(sub)
}

func (s *Server) respondToken(w http.ResponseWriter, user *User) {
	token, err := s.tokens.mint(user)
	if err != nil {
		log.Error().Err(err).Msg("stubapi: token minting failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to issue token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access_token": token, "token_type": "bearer"})
}

// redirectWithToken sends the bridge callback parameters the gateway and
// agent both understand.
func (s *Server) redirectWithToken(w http.ResponseWriter, r *http.Request, callbackURL string, user *User) {
	token, err := s.tokens.mint(user)
	if err != nil {
		redirectParams(w, r, callbackURL, url.Values{"error": {"token_minting_failed"}})
		return
	}
	redirectParams(w, r, callbackURL, url.Values{
		"token":      {token},
		"user_id":    {user.ID},
		"expires_in": {strconv.FormatInt(s.tokens.expirySeconds(), 10)},
	})
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func redirectParams(w http.ResponseWriter, r *http.Request, target string, params url.Values) {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	http.Redirect(w, r, target+sep+params.Encode(), http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
