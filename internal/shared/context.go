package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role enumerates the fixed user roles.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleCashier  Role = "cashier"
	RoleDelivery Role = "delivery"
)

// Valid reports whether the role is one of the enumerated values.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleCashier, RoleDelivery:
		return true
	}
	return false
}

// Principal is the authenticated caller as asserted by a verified token.
type Principal struct {
	UserID    uuid.UUID
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Scope is the explicit tenant context every engine call runs under.
type Scope struct {
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
	UserID         uuid.UUID
	Role           Role
}

// Validate guards engine entry points: nothing runs without an organization/branch pair.
func (s Scope) Validate() error {
	if s.OrganizationID == uuid.Nil {
		return ErrNoOrganization
	}
	if s.BranchID == uuid.Nil {
		return ErrNoBranch
	}
	if s.UserID == uuid.Nil {
		return fmt.Errorf("%w: user required", ErrUnauthorized)
	}
	return nil
}

type principalContextKey struct{}

type scopeContextKey struct{}

// ContextWithPrincipal stores the authenticated principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && p.UserID != uuid.Nil
}

// ContextWithScope stores the resolved scope in context.
func ContextWithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext extracts the resolved scope from context.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeContextKey{}).(Scope)
	return s, ok
}
