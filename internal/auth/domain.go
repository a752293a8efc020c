package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is a credential record. Its id doubles as the user id.
type Identity struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
