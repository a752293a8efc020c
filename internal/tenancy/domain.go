package tenancy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/shared"
)

// Plan is the organization subscription tier.
type Plan string

const (
	PlanFree  Plan = "free"
	PlanBasic Plan = "basic"
	PlanPro   Plan = "pro"
)

// Limits returns the default branch and user caps for the plan.
func (p Plan) Limits() (maxBranches, maxUsers int) {
	switch p {
	case PlanPro:
		return 10, 50
	case PlanBasic:
		return 3, 10
	default:
		return 1, 3
	}
}

// UserStatus enumerates account states.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// Organization is the tenant root.
type Organization struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Plan        Plan      `json:"plan"`
	MaxBranches int       `json:"max_branches"`
	MaxUsers    int       `json:"max_users"`
	CreatedAt   time.Time `json:"created_at"`
}

// Branch is a physical point of sale.
type Branch struct {
	ID               uuid.UUID `json:"id"`
	OrganizationID   uuid.UUID `json:"organization_id"`
	Name             string    `json:"name"`
	TaxID            string    `json:"tax_id,omitempty"`
	Address          string    `json:"address,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	IsVATResponsible bool      `json:"is_vat_responsible"`
	LogoURL          string    `json:"logo_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// User is the tenant-side account row. OrganizationID is nil for orphaned accounts.
type User struct {
	ID             uuid.UUID   `json:"id"`
	OrganizationID *uuid.UUID  `json:"organization_id,omitempty"`
	Email          string      `json:"email"`
	Name           string      `json:"name"`
	Role           shared.Role `json:"role"`
	Status         UserStatus  `json:"status"`
}

// CreateBranchInput captures a new branch.
type CreateBranchInput struct {
	Name             string
	TaxID            string
	Address          string
	Phone            string
	IsVATResponsible bool
}

// Validate ensures the branch input is coherent.
func (in CreateBranchInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("tenancy: %w: branch name required", shared.ErrValidation)
	}
	return nil
}

// ErrBranchLimit is returned when the plan's branch cap is reached.
var ErrBranchLimit = fmt.Errorf("tenancy: %w: branch limit reached for plan", shared.ErrForbidden)
