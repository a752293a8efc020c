package warranty

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/shared"
)

// Type enumerates the kind of post-sale claim.
type Type string

const (
	TypeExchange Type = "exchange"
	TypeRefund   Type = "refund"
	TypeRepair   Type = "repair"
)

// Valid reports whether t is an enumerated warranty type.
func (t Type) Valid() bool {
	switch t {
	case TypeExchange, TypeRefund, TypeRepair:
		return true
	}
	return false
}

// Status represents the lifecycle of a warranty claim.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusProcessed Status = "processed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusProcessed:
		return true
	}
	return false
}

// transitions lists the only permitted moves. Rejected and processed are terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusProcessed},
}

// CanTransitionTo reports whether the move from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Placeholder replaces names of related records that no longer resolve.
const Placeholder = "—"

// Warranty is a persisted claim.
type Warranty struct {
	ID                   uuid.UUID  `json:"id"`
	OrganizationID       uuid.UUID  `json:"organization_id"`
	BranchID             uuid.UUID  `json:"branch_id"`
	SaleID               *uuid.UUID `json:"sale_id,omitempty"`
	SaleItemID           *uuid.UUID `json:"sale_item_id,omitempty"`
	CustomerID           uuid.UUID  `json:"customer_id"`
	ProductID            uuid.UUID  `json:"product_id"`
	ReplacementProductID *uuid.UUID `json:"replacement_product_id,omitempty"`
	Quantity             int        `json:"quantity"`
	Type                 Type       `json:"warranty_type"`
	Reason               string     `json:"reason"`
	Status               Status     `json:"status"`
	RequestedBy          uuid.UUID  `json:"requested_by"`
	ReviewedBy           *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason      *string    `json:"rejection_reason,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// SaleRef is the originating sale of a claim.
type SaleRef struct {
	ID            uuid.UUID `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// Detail is a claim with its related records resolved. Each optional
// relation is zero-or-one: a nil pointer means the join found nothing.
type Detail struct {
	Warranty
	CustomerName           string   `json:"customer_name"`
	ProductName            string   `json:"product_name"`
	ReplacementProductName *string  `json:"replacement_product_name,omitempty"`
	Sale                   *SaleRef `json:"sale,omitempty"`
	ReviewerName           *string  `json:"reviewer_name,omitempty"`
}

func (d *Detail) applyPlaceholders() {
	if strings.TrimSpace(d.CustomerName) == "" {
		d.CustomerName = Placeholder
	}
	if strings.TrimSpace(d.ProductName) == "" {
		d.ProductName = Placeholder
	}
}

// CreateInput captures a new claim.
type CreateInput struct {
	SaleID               *uuid.UUID
	SaleItemID           *uuid.UUID
	CustomerID           uuid.UUID
	ProductID            uuid.UUID
	ReplacementProductID *uuid.UUID
	Quantity             int
	Type                 Type
	Reason               string
}

// Validate checks required fields.
func (in CreateInput) Validate() error {
	var problems []string
	if strings.TrimSpace(in.Reason) == "" {
		problems = append(problems, "reason required")
	}
	if !in.Type.Valid() {
		problems = append(problems, fmt.Sprintf("warranty type %q not allowed", in.Type))
	}
	if in.Quantity < 1 {
		problems = append(problems, "quantity must be at least 1")
	}
	if in.CustomerID == uuid.Nil {
		problems = append(problems, "customer required")
	}
	if in.ProductID == uuid.Nil {
		problems = append(problems, "product required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("warranty: %w: %s", shared.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// Review carries the reviewer fields written with a transition.
type Review struct {
	By              uuid.UUID
	At              time.Time
	RejectionReason *string
}

// ListFilter narrows the listing.
type ListFilter struct {
	Status   Status
	Type     Type
	Page     int
	PageSize int
}

// ListResult is one page of claims.
type ListResult struct {
	Rows       []Warranty        `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
}
