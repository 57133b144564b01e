// Package auth issues and verifies the JWTs used for sessions, account activation and password resets.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "inkwell-api"
	Audience = "inkwell-client"
)

// TokenType scopes a token to one purpose.
type TokenType string

const (
	TypeAccess     TokenType = "access"
	TypeRefresh    TokenType = "refresh"
	TypeActivation TokenType = "activation"
	TypeReset      TokenType = "reset"
)

var (
	// ErrTokenExpired is returned for tokens past their exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned when the token cannot be decoded.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid covers bad signatures and wrong type, issuer, audience or subject.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the payload of every token the API issues.
type Claims struct {
	jwt.RegisteredClaims
	Type    TokenType `json:"type"`
	Email   string    `json:"email,omitempty"`
	IsStaff bool      `json:"is_staff,omitempty"`
	// Fingerprint ties reset tokens to the password hash they were issued for.
	Fingerprint string `json:"pwd,omitempty"`
}

// UserID returns the numeric subject.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrTokenInvalid
	}
	return uint(id), nil
}

// Expiry returns the expiry time, zero when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Manager signs and verifies tokens with one HMAC secret.
type Manager struct {
	secret        []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	activationTTL time.Duration
	resetTTL      time.Duration
	now           func() time.Time
}

// NewManager builds a Manager from the JWT settings in cfg.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		secret:        []byte(cfg.JWTSecret),
		accessTTL:     cfg.AccessTokenTTL(),
		refreshTTL:    cfg.RefreshTokenTTL(),
		activationTTL: cfg.ActivationTTL(),
		resetTTL:      cfg.PasswordResetTTL(),
		now:           time.Now,
	}
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// RefreshTTL is how long refresh tokens live.
func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// IssuePair signs a new access and refresh token for user.
func (m *Manager) IssuePair(user *models.User) (*TokenPair, error) {
	access, err := m.sign(user.ID, TypeAccess, m.accessTTL, func(c *Claims) {
		c.Email = user.Email
		c.IsStaff = user.IsStaff
	})
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(user.ID, TypeRefresh, m.refreshTTL, nil)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// IssueActivation signs an account activation token.
func (m *Manager) IssueActivation(userID uint) (string, error) {
	return m.sign(userID, TypeActivation, m.activationTTL, nil)
}

// IssueReset signs a password reset token bound to the user's current password hash,
// so it stops working once the password changes.
func (m *Manager) IssueReset(user *models.User) (string, error) {
	return m.sign(user.ID, TypeReset, m.resetTTL, func(c *Claims) {
		c.Fingerprint = PasswordFingerprint(user.Password)
	})
}

// PasswordFingerprint derives a short, non-reversible marker from a password hash.
func PasswordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

func (m *Manager) sign(userID uint, typ TokenType, ttl time.Duration, decorate func(*Claims)) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Type: typ,
	}
	if decorate != nil {
		decorate(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifies tokenString and checks that it carries the wanted type.
func (m *Manager) Parse(tokenString string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}

	if claims.Type != want {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
