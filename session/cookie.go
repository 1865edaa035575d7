// Package session holds the web half of the session bridge: the cookie
// token store, the identity snapshot cache, and the login/logout façade the
// gateway handlers drive.
package session

import (
	"net/http"

	"github.com/sessiongate/sessiongate/internal/config"
)

// CookieStore persists the bearer token as an HTTP-only cookie. It is the
// web-side replica of the logical session; the agent store holds the other
// replica and neither has authority over the other.
type CookieStore struct {
	name       string
	maxAge     int
	production bool
	onMutate   []func()
}

type cookieConfig interface {
	config.CookieConfig
	config.EnvConfig
}

func NewCookieStore(cfg cookieConfig) *CookieStore {
	return &CookieStore{
		name:       cfg.GetCookieName(),
		maxAge:     cfg.GetCookieMaxAge(),
		production: cfg.GetEnv() == config.EnvProduction,
	}
}

// RegisterMutationHook adds fn to the set of callbacks fired after every
// token write or clear. The identity cache hangs its invalidation off this
// so a stale snapshot can never outlive a token change.
func (c *CookieStore) RegisterMutationHook(fn func()) {
	c.onMutate = append(c.onMutate, fn)
}

// SetToken overwrites the session cookie. The write is synchronous; the
// response carries the Set-Cookie header before any navigation the caller
// issues afterwards.
func (c *CookieStore) SetToken(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   c.maxAge,
	})
	c.fireMutation()
}

// ClearToken deletes the session cookie.
func (c *CookieStore) ClearToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	c.fireMutation()
}

// Token returns the raw cookie token. Presence only; validity is decided
// solely by the backend identity endpoint.
func (c *CookieStore) Token(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// HasToken reports cookie presence without validating.
func (c *CookieStore) HasToken(r *http.Request) bool {
	_, ok := c.Token(r)
	return ok
}

func (c *CookieStore) secure(r *http.Request) bool {
	if c.production {
		return true
	}
	return getScheme(r) == "https"
}

func (c *CookieStore) fireMutation() {
	for _, fn := range c.onMutate {
		fn()
	}
}

func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
