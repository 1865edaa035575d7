// Package backend is the HTTP client for the REST API that issues and
// validates session tokens. The API is an external collaborator: this client
// never inspects token contents, it only carries them.
package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sessiongate/sessiongate/apierror"
	"github.com/sessiongate/sessiongate/internal/config"
)

// API paths consumed by the gateway and agent.
const (
	PathLogin             = "/api/v1/login/access-token"
	PathMe                = "/api/v1/users/me"
	PathLogout            = "/api/v1/logout"
	PathAdminLogout       = "/api/v1/admin/logout"
	PathVerifyGoogleToken = "/api/v1/login/verify-google-token"
	PathGoogleLogin       = "/api/v1/login/google"
)

// maxErrorBody caps how much of an error response is read for decoding.
const maxErrorBody = 64 << 10

// Token is the credential minted by the login endpoints.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Identity is the "who am I" response used for guard validation and UI
// personalization.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Client calls the backend API. All methods make a single request with the
// configured transport timeout and no retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GetBackendBaseURL(), "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.GetBackendTimeout()) * time.Second,
		},
	}
}

// NewWithHTTPClient builds a client against an explicit base URL and
// http.Client. Used by tests and by the stub tooling.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathLogin, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, errors.Wrap(err, "[backend Login] build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token Token
	if err := c.do(req, &token); err != nil {
		return Token{}, err
	}
	if token.AccessToken == "" {
		return Token{}, errors.New("[backend Login] empty access token in response")
	}
	return token, nil
}

// Me validates a token against the identity endpoint and returns the
// identity it authenticates.
func (c *Client) Me(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathMe, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[backend Me] build request")
	}
	setBearer(req, token)

	var identity Identity
	if err := c.do(req, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Logout invalidates the token server-side. Callers treat failures as
// best-effort: local teardown never depends on this succeeding.
func (c *Client) Logout(ctx context.Context, token string, admin bool) error {
	path := PathLogout
	if admin {
		path = PathAdminLogout
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "[backend Logout] build request")
	}
	setBearer(req, token)
	return c.do(req, nil)
}

// VerifyGoogleToken trades a Google ID token for a backend bearer token.
func (c *Client) VerifyGoogleToken(ctx context.Context, idToken string) (Token, error) {
	body, err := json.Marshal(map[string]string{"id_token": idToken})
	if err != nil {
		return Token{}, errors.Wrap(err, "[backend VerifyGoogleToken] encode body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathVerifyGoogleToken, strings.NewReader(string(body)))
	if err != nil {
		return Token{}, errors.Wrap(err, "[backend VerifyGoogleToken] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	var token Token
	if err := c.do(req, &token); err != nil {
		return Token{}, err
	}
	return token, nil
}

// GoogleLoginURL is the backend redirect endpoint that starts the Google
// flow; the backend calls back to callbackURL with token parameters.
func (c *Client) GoogleLoginURL(callbackURL string) string {
	u := c.baseURL + PathGoogleLogin
	if callbackURL != "" {
		u += "?callback_url=" + url.QueryEscape(callbackURL)
	}
	return u
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[backend] request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apierror.Decode(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[backend] decode response")
	}
	return nil
}

func setBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// IsAuthFailure reports whether err is a backend 401/403 rejection, as
// opposed to a transport or decoding failure.
func IsAuthFailure(err error) bool {
	var env *apierror.Envelope
	if stderrors.As(err, &env) {
		return env.IsAuthFailure()
	}
	return false
}
