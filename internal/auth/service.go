package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nou-pos/nou/internal/shared"
)

// RevocationStore tracks tokens invalidated before expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	tokens      *TokenIssuer
	revocations RevocationStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, revocations RevocationStore) *Service {
	return &Service{repo: repo, tokens: tokens, revocations: revocations}
}

// Authenticate validates email/password credentials and issues a token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	ident, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Session{}, shared.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !ident.Active {
		return Session{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)); err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	return s.tokens.Issue(ident.ID, ident.Email)
}

// Verify parses a bearer token and rejects revoked ones.
func (s *Service) Verify(ctx context.Context, raw string) (shared.Principal, error) {
	principal, err := s.tokens.Parse(raw)
	if err != nil {
		return shared.Principal{}, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, principal.TokenID)
	if err != nil {
		return shared.Principal{}, fmt.Errorf("%w: %v", shared.ErrBackend, err)
	}
	if revoked {
		return shared.Principal{}, ErrInvalidToken
	}
	return principal, nil
}

// SignOut revokes the principal's token for the rest of its lifetime.
func (s *Service) SignOut(ctx context.Context, principal shared.Principal) error {
	if principal.TokenID == "" {
		return ErrInvalidToken
	}
	return s.revocations.Revoke(ctx, principal.TokenID, principal.ExpiresAt)
}

// HashPassword returns a bcrypt hash suitable for identities.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}
