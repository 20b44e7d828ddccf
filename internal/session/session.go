// Package session mints and verifies the signed tokens that carry a caller's
// identity between requests.
package session

import (
	"errors"
	"fmt"
	"time"

	"arcade/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Options configures a Manager.
type Options struct {
	Secret   string
	TTL      time.Duration
	Issuer   string
	Audience string
}

// Manager issues and verifies HS256 session tokens. Tokens are stateless and
// expire after a fixed lifetime; there is no refresh or revocation.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

// NewManager validates opts and returns a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("session TTL must be positive")
	}
	return &Manager{
		secret:   []byte(opts.Secret),
		ttl:      opts.TTL,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		now:      time.Now,
	}, nil
}

// Issue mints a token whose subject is userID.
func (m *Manager) Issue(userID models.ID) (string, error) {
	if userID.IsZero() {
		return "", errors.New("cannot issue a token without a user id")
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		ID:        uuid.NewString(),
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, expiry, issuer and audience of token and
// returns the user id it carries.
func (m *Manager) Verify(token string) (models.ID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := models.ParseID(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return userID, nil
}
