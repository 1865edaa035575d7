package server

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

// OAuthCallbackHandler terminates the backend's OAuth redirect. On error
// parameters it forwards them to the login page and writes nothing. On a
// token it stores the cookie and then confirms the session with a read-back
// against the identity endpoint before navigating, so the landing page's
// own guard can never race a not-yet-visible cookie.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if errParam := q.Get("error"); errParam != "" {
			params := url.Values{"error": {errParam}}
			if message := q.Get("message"); message != "" {
				params.Set("message", message)
			}
			redirectWithParams(w, r, RouteLogin, params)
			return
		}

		token := q.Get("token")
		if token == "" {
			redirectWithParams(w, r, RouteLogin, url.Values{"error": {"no_token"}})
			return
		}

		s.sessions.Cookies().SetToken(w, r, token)

		// Confirmation read-back: only navigate once the backend has
		// accepted the token we just stored.
		identity, err := s.api.Me(r.Context(), token)
		if err != nil {
			log.Warn().Err(err).Msg("callback: token read-back failed")
			s.sessions.Cookies().ClearToken(w)
			redirectWithParams(w, r, RouteLogin, url.Values{"error": {"invalid_token"}})
			return
		}

		landing := RouteHome
		if identity.IsSuperuser {
			landing = RouteAdmin
		}
		http.Redirect(w, r, landing, http.StatusSeeOther)
	}
}
