package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/sessiongate/sessiongate/backend"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyIdentity stores the identity the guard validated for this
// navigation.
const ContextKeyIdentity ContextKey = "identity"

// IdentityFromContext returns the guard-validated identity, nil outside
// guarded routes.
func IdentityFromContext(ctx context.Context) *backend.Identity {
	identity, _ := ctx.Value(ContextKeyIdentity).(*backend.Identity)
	return identity
}

// RequireSession is the navigation guard. Per request it makes at most one
// identity call against the backend: no cookie means an immediate redirect
// to loginRoute carrying the original path as callbackUrl, and a rejected
// token or transport failure redirects the same way. The cookie is never
// deleted here; teardown belongs to explicit logout or a failed client
// call. No protected content is ever served before validation succeeds.
func (s *Server) RequireSession(loginRoute string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := s.sessions.Cookies().Token(r)
			if !ok {
				redirectToLogin(w, r, loginRoute)
				return
			}

			identity, err := s.api.Me(r.Context(), token)
			if err != nil {
				if !backend.IsAuthFailure(err) {
					log.Warn().Err(err).Msg("guard: identity validation failed")
				}
				redirectToLogin(w, r, loginRoute)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			next(w, r.WithContext(ctx))
		}
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, loginRoute string) {
	q := url.Values{}
	q.Set("callbackUrl", r.URL.Path)
	http.Redirect(w, r, loginRoute+"?"+q.Encode(), http.StatusSeeOther)
}
