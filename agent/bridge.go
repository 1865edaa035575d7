// Package agent is the companion-process half of the session bridge. It
// keeps its own replica of the bearer token in a local store, watches
// callback URLs from allow-listed origins, and tells the rest of the agent
// about new sessions over a broadcast bus.
package agent

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sessiongate/sessiongate/agent/store"
	"github.com/sessiongate/sessiongate/internal/config"
)

// Profile is the agent's cached view of the signed-in user, stored under
// store.KeyUserProfile. Merged, never replaced, so fields set by other parts
// of the agent survive a re-login.
type Profile struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Token           string `json:"token,omitempty"`
	TokenExpiry     int64  `json:"tokenExpiry,omitempty"`
}

// Bridge watches for the auth callback parameters and writes the resulting
// session into the agent store. Its execution is opportunistic: it may be
// handed URLs that have nothing to do with auth, and then it does nothing.
type Bridge struct {
	store   store.Repo
	bus     *Bus
	origins config.AllowedOrigins
	nowTime func() time.Time
}

// BridgeOption modifies a Bridge.
type BridgeOption func(*Bridge)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) BridgeOption {
	return func(b *Bridge) {
		b.nowTime = nowFunc
	}
}

func NewBridge(repo store.Repo, bus *Bus, origins config.AllowedOrigins, options ...BridgeOption) (*Bridge, error) {
	if repo == nil {
		return nil, errors.New("[NewBridge] store is required")
	}
	if bus == nil {
		return nil, errors.New("[NewBridge] bus is required")
	}

	b := &Bridge{store: repo, bus: bus, origins: origins, nowTime: time.Now}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// HandleCallback inspects u for auth callback parameters. URLs from
// non-allow-listed origins, error callbacks, and URLs without a token are
// logged and ignored. A valid callback stores the token, merges the user
// profile, and broadcasts ActionAuthSuccess. Only storage failures are
// returned as errors.
func (b *Bridge) HandleCallback(ctx context.Context, u *url.URL) error {
	if u == nil {
		return nil
	}

	if !b.origins.IsAllowedOrigin(u.Host) {
		log.Debug().Str("host", u.Host).Msg("bridge: ignoring callback from unknown origin")
		return nil
	}

	q := u.Query()
	if errCode := q.Get("error"); errCode != "" {
		log.Info().Str("error", errCode).Str("message", q.Get("message")).Msg("bridge: auth callback reported an error")
		return nil
	}

	token := q.Get("token")
	if token == "" {
		log.Debug().Str("path", u.Path).Msg("bridge: no token in callback, nothing to do")
		return nil
	}

	userID := q.Get("user_id")
	expiry := b.tokenExpiry(q.Get("expires_in"))

	profile, err := b.loadProfile(ctx)
	if err != nil {
		return err
	}
	if userID != "" {
		profile.ID = userID
	}
	profile.IsAuthenticated = true
	profile.Token = token
	profile.TokenExpiry = expiry

	if err := b.storeSession(ctx, token, profile); err != nil {
		return err
	}

	b.bus.Broadcast(Message{Action: ActionAuthSuccess, UserID: profile.ID, Token: token})
	log.Info().Str("user_id", profile.ID).Msg("bridge: session stored")
	return nil
}

func (b *Bridge) tokenExpiry(expiresIn string) int64 {
	if expiresIn == "" {
		return 0
	}
	seconds, err := strconv.ParseInt(expiresIn, 10, 64)
	if err != nil || seconds <= 0 {
		log.Debug().Str("expires_in", expiresIn).Msg("bridge: unparseable expiry hint")
		return 0
	}
	return b.nowTime().Add(time.Duration(seconds) * time.Second).Unix()
}

func (b *Bridge) loadProfile(ctx context.Context) (Profile, error) {
	raw, err := b.store.Get(ctx, store.KeyUserProfile)
	if errors.Is(err, store.ErrNotFound) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, errors.Wrap(err, "[Bridge] load profile")
	}

	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		// A corrupt profile record is rebuilt rather than fatal.
		log.Warn().Err(err).Msg("bridge: discarding unreadable profile record")
		return Profile{}, nil
	}
	return profile, nil
}

func (b *Bridge) storeSession(ctx context.Context, token string, profile Profile) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return errors.Wrap(err, "[Bridge] encode token")
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, "[Bridge] encode profile")
	}

	if err := b.store.Set(ctx, store.KeyToken, tokenJSON); err != nil {
		return errors.Wrap(err, "[Bridge] store token")
	}
	if err := b.store.Set(ctx, store.KeyUserProfile, profileJSON); err != nil {
		return errors.Wrap(err, "[Bridge] store profile")
	}
	return nil
}

// Token returns the agent's replica of the bearer token, or "" when there
// is no session. Reads may be stale relative to the web cookie; nothing
// assumes cross-surface consistency.
func (b *Bridge) Token(ctx context.Context) (string, error) {
	raw, err := b.store.Get(ctx, store.KeyToken)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "[Bridge] load token")
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", errors.Wrap(err, "[Bridge] decode token")
	}
	return token, nil
}

// Clear removes the agent's session replica, used on explicit sign-out.
func (b *Bridge) Clear(ctx context.Context) error {
	if err := b.store.Remove(ctx, store.KeyToken); err != nil {
		return errors.Wrap(err, "[Bridge] remove token")
	}

	profile, err := b.loadProfile(ctx)
	if err != nil {
		return err
	}
	profile.IsAuthenticated = false
	profile.Token = ""
	profile.TokenExpiry = 0

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, "[Bridge] encode profile")
	}
	return errors.Wrap(b.store.Set(ctx, store.KeyUserProfile, profileJSON), "[Bridge] store profile")
}
