package stubapi

import (
	"context"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// googleFlow is the real Google authorization-code flow, active when client
// credentials are configured. Without it the stub falls back to a
// deterministic fake that skips Google entirely.
type googleFlow struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier

	mu     sync.Mutex
	states map[string]string // state -> gateway callback URL
}

func newGoogleFlow(ctx context.Context, clientID, clientSecret, redirectURL string) (*googleFlow, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, errors.Wrap(err, "[newGoogleFlow] create OIDC provider")
	}

	return &googleFlow{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		states:   make(map[string]string),
	}, nil
}

func (g *googleFlow) authURL(state, callbackURL string) string {
	g.mu.Lock()
	g.states[state] = callbackURL
	g.mu.Unlock()
	return g.oauth.AuthCodeURL(state)
}

func (g *googleFlow) takeState(state string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	callbackURL, ok := g.states[state]
	delete(g.states, state)
	return callbackURL, ok
}

// identityClaims are the slice of a Google ID token the stub cares about.
type identityClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// exchange trades an authorization code for verified identity claims.
func (g *googleFlow) exchange(ctx context.Context, code string) (identityClaims, error) {
	oauth2Token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return identityClaims{}, errors.Wrap(err, "[googleFlow exchange] token exchange failed")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return identityClaims{}, errors.New("[googleFlow exchange] no ID token in response")
	}
	return g.verifyIDToken(ctx, rawIDToken)
}

func (g *googleFlow) verifyIDToken(ctx context.Context, rawIDToken string) (identityClaims, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return identityClaims{}, errors.Wrap(err, "[googleFlow] ID token verification failed")
	}

	var claims identityClaims
	if err := idToken.Claims(&claims); err != nil {
		return identityClaims{}, errors.Wrap(err, "[googleFlow] extract claims")
	}
	if claims.Email == "" {
		return identityClaims{}, errors.New("[googleFlow] ID token carries no email")
	}
	return claims, nil
}
