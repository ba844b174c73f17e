// Package session carries the browser's navigation state (which upstream
// database and which planning are selected) in a signed JWT cookie,
// replacing server-side session storage.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smilemakc/atelier/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session has expired")
)

// Claims is the signed session state. It never carries credentials.
type Claims struct {
	jwt.RegisteredClaims
	DatabaseID string `json:"database_id,omitempty"`
	PlanningID int64  `json:"planning_id,omitempty"`
}

// State is the decoded navigation state of one browser session.
type State struct {
	DatabaseID string
	PlanningID int64
}

// Service signs and verifies session cookies.
type Service struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewService creates a session Service. When no secret is configured an
// ephemeral one is generated: sessions then reset on restart, which
// only forces users back through the selection screens.
func NewService(cfg config.SessionConfig) (*Service, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		secret = []byte(hex.EncodeToString(buf))
	}

	return &Service{
		secret:     secret,
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
	}, nil
}

// CookieName returns the name of the session cookie.
func (s *Service) CookieName() string { return s.cookieName }

// TTLSeconds returns the cookie max-age in seconds.
func (s *Service) TTLSeconds() int { return int(s.ttl.Seconds()) }

// Secure reports whether the cookie must be HTTPS-only.
func (s *Service) Secure() bool { return s.secure }

// Issue signs a new session token for the given state.
func (s *Service) Issue(state State) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "atelier",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			NotBefore: jwt.NewNumericDate(now),
		},
		DatabaseID: state.DatabaseID,
		PlanningID: state.PlanningID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token.
func (s *Service) Verify(tokenString string) (*State, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &State{DatabaseID: claims.DatabaseID, PlanningID: claims.PlanningID}, nil
}
