package stubapi

import (
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const issuer = "sessiongate-authstub"

// tokenMinter creates and verifies the stub's HS256 bearer tokens, with an
// in-memory revocation set keyed by jti so logout actually invalidates.
type tokenMinter struct {
	secret []byte
	ttl    time.Duration

	mu      sync.RWMutex
	revoked map[string]struct{}
}

func newTokenMinter(secret []byte, ttl time.Duration) *tokenMinter {
	return &tokenMinter{
		secret:  secret,
		ttl:     ttl,
		revoked: make(map[string]struct{}),
	}
}

func (m *tokenMinter) mint(user *User) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"iss":   issuer,
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
		"jti":   uuid.New().String(),
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "[tokenMinter mint] sign token")
	}
	return signed, nil
}

// subject returns the user ID a live token authenticates, or an error for
// expired, revoked, or malformed tokens.
func (m *tokenMinter) subject(token string) (string, error) {
	parsed, err := jwtlib.Parse(token, func(*jwtlib.Token) (any, error) {
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }))
	if err != nil {
		return "", errors.Wrap(err, "[tokenMinter subject] parse token")
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", errors.New("[tokenMinter subject] unexpected claims type")
	}

	if jti, _ := claims["jti"].(string); jti != "" && m.isRevoked(jti) {
		return "", errors.New("[tokenMinter subject] token revoked")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("[tokenMinter subject] missing subject")
	}
	return sub, nil
}

// revoke blacklists the token's jti. Unparseable tokens are ignored; there
// is nothing to revoke.
func (m *tokenMinter) revoke(token string) {
	parsed, err := jwtlib.Parse(token, func(*jwtlib.Token) (any, error) {
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = struct{}{}
}

func (m *tokenMinter) isRevoked(jti string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.revoked[jti]
	return ok
}

// expirySeconds is the expires_in hint sent to bridge callbacks.
func (m *tokenMinter) expirySeconds() int64 {
	return int64(m.ttl / time.Second)
}
