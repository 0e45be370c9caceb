package session

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the bearer token attached to backend requests. The client
// never verifies the signature (it does not hold the signing key); claims are
// only inspected so callers can warn about stale tokens before a request
// bounces with 401.
type Session struct {
	mu     sync.RWMutex
	token  string
	claims jwt.MapClaims
}

func New(token string) *Session {
	s := &Session{}
	s.SetToken(token)
	return s
}

// SetToken replaces the stored token and re-parses its claims. Tokens that do
// not parse as JWTs are kept verbatim with no claims.
func (s *Session) SetToken(token string) {
	token = strings.TrimSpace(token)

	var claims jwt.MapClaims
	if token != "" {
		parsed := jwt.MapClaims{}
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(token, parsed); err == nil {
			claims = parsed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.claims = claims
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) HasToken() bool {
	return s.Token() != ""
}

// Subject returns the JWT sub claim, if present.
func (s *Session) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	sub, err := s.claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// ExpiresAt returns the token expiry, or the zero time when the token has no
// exp claim.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return time.Time{}
	}
	exp, err := s.claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Expired reports whether the token carries an exp claim in the past.
// Tokens without an exp claim never report expired.
func (s *Session) Expired(now time.Time) bool {
	exp := s.ExpiresAt()
	if exp.IsZero() {
		return false
	}
	return now.After(exp)
}
