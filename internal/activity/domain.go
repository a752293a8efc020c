package activity

import (
	"time"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/shared"
)

// ActorType distinguishes user-originated from system-originated rows.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

// Action tags written by the engines.
const (
	ActionWarrantyCreated   = "warranty_created"
	ActionWarrantyApproved  = "warranty_approved"
	ActionWarrantyRejected  = "warranty_rejected"
	ActionWarrantyProcessed = "warranty_processed"
	ActionClosingCreated    = "cash_closing_created"
	ActionBranchCreated     = "branch_created"
	ActionBranchLogoUpdated = "branch_logo_updated"
	ActionOrganizationSetup = "organization_created"
	ActionUserCreated       = "user_created"
)

// DefaultRetention is how long rows are kept before the purge job removes them.
const DefaultRetention = 90 * 24 * time.Hour

// Entry is a single append-only audit row to be written.
type Entry struct {
	OrganizationID uuid.UUID
	BranchID       *uuid.UUID
	UserID         *uuid.UUID
	ActorType      ActorType
	Action         string
	EntityType     string
	EntityID       string
	Summary        string
	Metadata       map[string]any
}

// Activity is a persisted row.
type Activity struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	BranchID       *uuid.UUID     `json:"branch_id,omitempty"`
	UserID         *uuid.UUID     `json:"user_id,omitempty"`
	ActorType      ActorType      `json:"actor_type"`
	Action         string         `json:"action"`
	EntityType     string         `json:"entity_type"`
	EntityID       string         `json:"entity_id,omitempty"`
	Summary        string         `json:"summary"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ListFilter narrows the timeline.
type ListFilter struct {
	BranchID   *uuid.UUID
	EntityType string
	Action     string
	Page       int
	PageSize   int
}

// Result wraps a page of the timeline.
type Result struct {
	Rows       []Activity        `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
}

// UserEntry builds an Entry attributed to a user acting inside a branch.
func UserEntry(organizationID, branchID, userID uuid.UUID) Entry {
	return Entry{
		OrganizationID: organizationID,
		BranchID:       &branchID,
		UserID:         &userID,
		ActorType:      ActorUser,
	}
}
