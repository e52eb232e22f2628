// Package credential supplies bearer tokens to outbound cart calls.
// Providers are consulted on every request, never cached by callers,
// so a token refreshed mid-session is used by the next call.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoCredential is returned when no token has been set
	ErrNoCredential = errors.New("no credential available")

	// ErrTokenExpired is returned when a JWT bearer token is past its exp claim
	ErrTokenExpired = errors.New("credential token expired")
)

// Provider returns the bearer token to attach to the next request
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context) (string, error)

func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticProvider always returns the same token
type StaticProvider string

func (p StaticProvider) Token(context.Context) (string, error) {
	if p == "" {
		return "", ErrNoCredential
	}
	return string(p), nil
}

// Store is a mutable in-memory token holder. A login flow calls Set,
// a logout calls Clear, and the cart client reads it per request.
type Store struct {
	mu    sync.RWMutex
	token string
}

func NewStore(token string) *Store {
	return &Store{token: token}
}

func (s *Store) Set(token string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
}

func (s *Store) Clear() {
	s.Set("")
}

func (s *Store) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoCredential
	}
	return s.token, nil
}

// ExpiryGuard refuses JWT tokens whose exp claim has passed. The signature
// is not checked here; the server remains the authority. Tokens that do
// not parse as JWTs are passed through untouched.
type ExpiryGuard struct {
	next   Provider
	now    func() time.Time
	leeway time.Duration
	parser *jwt.Parser
}

func NewExpiryGuard(next Provider, leeway time.Duration) *ExpiryGuard {
	return &ExpiryGuard{
		next:   next,
		now:    time.Now,
		leeway: leeway,
		parser: jwt.NewParser(),
	}
}

func (g *ExpiryGuard) Token(ctx context.Context) (string, error) {
	token, err := g.next.Token(ctx)
	if err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := g.parser.ParseUnverified(token, &claims); err != nil {
		return token, nil
	}

	if claims.ExpiresAt != nil && !g.now().Before(claims.ExpiresAt.Time.Add(g.leeway)) {
		return "", fmt.Errorf("%w: expired at %s", ErrTokenExpired, claims.ExpiresAt.Time.Format(time.RFC3339))
	}
	return token, nil
}
