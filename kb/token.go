package kb

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	serviceTokenTTL = 5 * time.Minute
	// Refresh this far ahead of expiry so an in-flight request never
	// carries a token that expires mid-call.
	refreshMargin = 30 * time.Second
)

// TokenProvider yields the bearer token for KB requests.
type TokenProvider interface {
	Token() (string, error)
}

// NewTokenProvider returns a provider for the configured secret. A secret
// that already looks like a three-part JWT is passed through unchanged;
// anything else is used as an HS256 signing key for short-lived
// self-minted service tokens.
func NewTokenProvider(secret string) TokenProvider {
	if secret == "" || strings.Count(secret, ".") == 2 {
		return staticToken(secret)
	}
	return &serviceTokenSource{
		key: []byte(secret),
		now: time.Now,
	}
}

// staticToken is a pre-issued token (or empty for unauthenticated setups).
type staticToken string

func (t staticToken) Token() (string, error) { return string(t), nil }

// serviceTokenSource mints and caches HS256 service tokens, refreshing
// ahead of expiry.
type serviceTokenSource struct {
	key []byte
	now func() time.Time

	mu     sync.Mutex
	cached string
	expiry time.Time
}

func (s *serviceTokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cached != "" && now.Before(s.expiry.Add(-refreshMargin)) {
		return s.cached, nil
	}

	expiry := now.Add(serviceTokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    "lexrag",
		Subject:   "kb-service",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing service token: %w", err)
	}

	s.cached = signed
	s.expiry = expiry
	return signed, nil
}
