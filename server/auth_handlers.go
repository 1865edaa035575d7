package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/sessiongate/sessiongate/apierror"
	"github.com/sessiongate/sessiongate/session"
)

// LoginPageHandler echoes enough state for the login surface to render:
// any error carried in the query plus the callbackUrl to return to. The
// page itself is rendered by the frontend, not here.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{
			"error":       q.Get("error"),
			"message":     q.Get("message"),
			"callbackUrl": safeCallbackPath(q.Get("callbackUrl")),
		})
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid form data"})
			return
		}

		username := r.FormValue("username")
		password := r.FormValue("password")
		loginRoute := RouteLogin
		if r.FormValue("scope") == string(session.ScopeAdmin) {
			loginRoute = RouteAdminLogin
		}

		if username == "" || password == "" {
			redirectWithParams(w, r, loginRoute, url.Values{
				"error":   {"missing_credentials"},
				"message": {"Email and password are required"},
			})
			return
		}

		landing, err := s.sessions.Login(r.Context(), w, r, username, password)
		if err != nil {
			s.renderLoginError(w, r, loginRoute, err)
			return
		}

		// The token cookie is already on the response; the navigation
		// below can never observe a logged-out state.
		if callback := safeCallbackPath(r.FormValue("callbackUrl")); callback != "" {
			landing = callback
		}
		http.Redirect(w, r, landing, http.StatusSeeOther)
	}
}

// renderLoginError maps a failed login onto the response: field-validation
// envelopes keep their per-field messages, everything else becomes one
// normalized message on the login page redirect.
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, loginRoute string, err error) {
	var env *apierror.Envelope
	if errors.As(err, &env) && env.Kind == apierror.KindDetailList {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  env.Message,
			"fields": env.Fields(),
		})
		return
	}

	redirectWithParams(w, r, loginRoute, url.Values{
		"error":   {"login_failed"},
		"message": {apierror.Normalize(err)},
	})
}

// LogoutHandler tears the session down. The remote revocation inside the
// session façade is best-effort; the local cookie always dies here.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := session.ScopeUser
		if r.URL.Path == RouteAdminAuthLogout {
			scope = session.ScopeAdmin
		}

		loginRoute := s.sessions.Logout(r.Context(), w, r, scope)
		http.Redirect(w, r, loginRoute, http.StatusSeeOther)
	}
}

// MeHandler is the lazy identity query: JSON identity when a valid session
// exists, JSON null otherwise. It never fails with an error status.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := session.ScopeUser
		if r.URL.Query().Get("scope") == string(session.ScopeAdmin) {
			scope = session.ScopeAdmin
		}

		identity := s.sessions.CurrentUser(r.Context(), w, r, scope)
		writeJSON(w, http.StatusOK, identity)
	}
}

// GoogleLoginHandler starts the Google flow by bouncing to the backend's
// redirect endpoint with our callback address.
func (s *Server) GoogleLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callbackURL := getScheme(r) + "://" + r.Host + RouteCallback
		http.Redirect(w, r, s.api.GoogleLoginURL(callbackURL), http.StatusSeeOther)
	}
}

// HomeHandler serves the guarded end-user landing surface.
func (s *Server) HomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, IdentityFromContext(r.Context()))
	}
}

// AdminHomeHandler serves the guarded admin surface; non-admins bounce to
// the end-user landing page.
func (s *Server) AdminHomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil || !identity.IsSuperuser {
			http.Redirect(w, r, RouteHome, http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, identity)
	}
}
