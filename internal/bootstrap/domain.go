// Package bootstrap implements the two elevated account endpoints used before
// a caller has a tenant scope: create-user and create-organization.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/shared"
	"github.com/nou-pos/nou/internal/tenancy"
)

// ErrUserLimit is returned when an organization already holds its plan's
// maximum number of users.
var ErrUserLimit = fmt.Errorf("%w: user limit reached for plan", shared.ErrForbidden)

// Caller describes who is invoking an elevated endpoint.
type Caller struct {
	// SecretOK is true when the request carried the bootstrap secret.
	SecretOK  bool
	Principal *shared.Principal
}

// CreateUserInput registers an identity and, optionally, its tenant row.
type CreateUserInput struct {
	Email          string
	Password       string
	Name           string
	OrganizationID *uuid.UUID
	Role           shared.Role
	BranchIDs      []uuid.UUID
}

// NewAccount is what the repository persists for create-user.
type NewAccount struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	// Member is nil when the identity is not attached to an organization yet.
	Member    *Membership
	CreatedAt time.Time
}

// Membership attaches a user row to an organization.
type Membership struct {
	OrganizationID uuid.UUID
	Role           shared.Role
	BranchIDs      []uuid.UUID
}

// CreatedUser is returned by create-user.
type CreatedUser struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	Name           string      `json:"name"`
	OrganizationID *uuid.UUID  `json:"organization_id,omitempty"`
	Role           shared.Role `json:"role,omitempty"`
}

// CreateOrganizationInput registers a tenant for the calling identity.
type CreateOrganizationInput struct {
	Name  string
	Email string
	Plan  tenancy.Plan
}

// CreatedOrganization is returned by create-organization.
type CreatedOrganization struct {
	Organization tenancy.Organization `json:"organization"`
	Owner        tenancy.User         `json:"owner"`
}
