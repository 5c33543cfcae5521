package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken indicates a token that is malformed, expired, or names an inactive user.
var ErrInvalidToken = errors.New("invalid token")

// UserLookup fetches users by id.
type UserLookup interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// Tokens issues and verifies HS256 bearer tokens whose subject is a user id.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	users  UserLookup
	now    func() time.Time
}

// NewTokens creates a token issuer. A non-positive ttl uses DefaultTTL.
func NewTokens(secret string, ttl time.Duration, users UserLookup) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, users: users, now: time.Now}
}

// Issue signs a token for userID and returns it with its expiry.
func (t *Tokens) Issue(userID string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns its subject.
func (t *Tokens) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// ResolveUser returns the id of the active user a token was issued to.
func (t *Tokens) ResolveUser(ctx context.Context, token string) (string, error) {
	userID, err := t.Parse(token)
	if err != nil {
		return "", err
	}
	u, err := t.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", fmt.Errorf("%w: unknown user", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: resolving user: %v", project.ErrStorage, err)
	}
	if !u.Active {
		return "", fmt.Errorf("%w: user is inactive", ErrInvalidToken)
	}
	return u.ID, nil
}
