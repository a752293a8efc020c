package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/shared"
)

const tokenIssuer = "nou"

// ErrInvalidToken indicates a malformed, expired or tampered token.
var ErrInvalidToken = fmt.Errorf("auth: %w: invalid token", shared.ErrUnauthorized)

// Claims holds the bearer token claims.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (t *TokenIssuer) WithNow(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}

// Issue creates a signed token for the identity.
func (t *TokenIssuer) Issue(userID uuid.UUID, email string) (Session, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	jti := uuid.NewString()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return Session{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return Session{Token: signed, TokenID: jti, UserID: userID, Email: email, ExpiresAt: expires}, nil
}

// Parse validates the signature and registered claims and returns the principal.
func (t *TokenIssuer) Parse(raw string) (shared.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return shared.Principal{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		return shared.Principal{}, ErrInvalidToken
	}
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return shared.Principal{
		UserID:    userID,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: expires,
	}, nil
}

// IsInvalidToken reports whether err came from token verification.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
