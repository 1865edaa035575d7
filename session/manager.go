package session

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sessiongate/sessiongate/backend"
)

// Role-dependent navigation targets.
const (
	LandingUser  = "/"
	LandingAdmin = "/admin"

	LoginRouteUser  = "/login"
	LoginRouteAdmin = "/admin/login"
)

// API is the slice of the backend client the session façade needs.
type API interface {
	Login(ctx context.Context, username, password string) (backend.Token, error)
	Me(ctx context.Context, token string) (*backend.Identity, error)
	Logout(ctx context.Context, token string, admin bool) error
}

var _ API = (*backend.Client)(nil)

// Manager combines the backend client, the cookie store, and the snapshot
// cache into the login/logout/current-user façade used by the gateway.
type Manager struct {
	api     API
	cookies *CookieStore
	cache   *Cache
}

func NewManager(api API, cookies *CookieStore) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] backend API is required")
	}
	if cookies == nil {
		return nil, errors.New("[NewManager] cookie store is required")
	}

	m := &Manager{api: api, cookies: cookies, cache: NewCache()}
	cookies.RegisterMutationHook(m.cache.InvalidateAll)
	return m, nil
}

// Cookies exposes the underlying cookie store to the gateway handlers.
func (m *Manager) Cookies() *CookieStore {
	return m.cookies
}

// Login authenticates credentials, stores the token cookie, and returns the
// role-dependent landing route. The cookie write is sequenced strictly
// before the return, so a subsequent navigation always carries the token.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, username, password string) (string, error) {
	token, err := m.api.Login(ctx, username, password)
	if err != nil {
		return "", err
	}

	m.cookies.SetToken(w, r, token.AccessToken)

	identity, err := m.api.Me(ctx, token.AccessToken)
	if err != nil {
		// Token was just minted; a failed role lookup only costs the
		// admin shortcut, not the session.
		log.Warn().Err(err).Msg("post-login identity fetch failed")
		return LandingUser, nil
	}

	scope := ScopeUser
	landing := LandingUser
	if identity.IsSuperuser {
		scope = ScopeAdmin
		landing = LandingAdmin
	}
	m.cache.Put(scope, token.AccessToken, identity)
	return landing, nil
}

// Logout tears the session down. The remote call is best-effort: a failure
// is logged and never blocks, because the user must not stay logged in
// locally over a network error. The local cookie clear and cache
// invalidation always happen, then the caller navigates to the returned
// login route.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request, scope Scope) string {
	if token, ok := m.cookies.Token(r); ok {
		if err := m.api.Logout(ctx, token, scope == ScopeAdmin); err != nil {
			log.Warn().Err(err).Msg("remote logout failed, clearing local session anyway")
		}
	}

	m.cookies.ClearToken(w)

	if scope == ScopeAdmin {
		return LoginRouteAdmin
	}
	return LoginRouteUser
}

// CurrentUser returns the identity snapshot for the request's token, or nil
// when there is no session. It never returns an error to the caller: an
// invalid token clears the cookie, anything else just reads as logged-out.
func (m *Manager) CurrentUser(ctx context.Context, w http.ResponseWriter, r *http.Request, scope Scope) *backend.Identity {
	token, ok := m.cookies.Token(r)
	if !ok {
		return nil
	}

	if identity, ok := m.cache.Get(scope, token); ok {
		return identity
	}

	identity, err := m.api.Me(ctx, token)
	if err != nil {
		if backend.IsAuthFailure(err) {
			m.cookies.ClearToken(w)
		} else {
			log.Debug().Err(err).Msg("identity fetch failed")
		}
		return nil
	}

	m.cache.Put(scope, token, identity)
	return identity
}
