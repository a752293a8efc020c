package cashclosing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/shared"
)

// DateLayout is the wire format of closing dates.
const DateLayout = "2006-01-02"

// Outcome classifies a reconciled shift.
type Outcome string

const (
	OutcomePerfect Outcome = "perfect"
	OutcomeShort   Outcome = "short"
	OutcomeOver    Outcome = "over"
)

// Counts are the expected and counted totals of one shift.
type Counts struct {
	ExpectedCash     int64 `json:"expected_cash"`
	ExpectedTransfer int64 `json:"expected_transfer"`
	ActualCash       int64 `json:"actual_cash"`
	ActualTransfer   int64 `json:"actual_transfer"`
}

// Reconciliation is the derived difference of a shift.
type Reconciliation struct {
	CashDifference     int64   `json:"cash_difference"`
	TransferDifference int64   `json:"transfer_difference"`
	CombinedDifference int64   `json:"combined_difference"`
	Outcome            Outcome `json:"outcome"`
}

// RequiresReason reports whether the difference must be explained.
func (r Reconciliation) RequiresReason() bool {
	return r.CombinedDifference != 0
}

// Summary holds the shift statistics stored alongside the closing.
type Summary struct {
	TotalSales        int   `json:"total_sales"`
	PhysicalSales     int   `json:"physical_sales"`
	DeliverySales     int   `json:"delivery_sales"`
	TotalUnits        int   `json:"total_units"`
	CancelledInvoices int   `json:"cancelled_invoices"`
	CancelledTotal    int64 `json:"cancelled_total"`
	WarrantiesCount   int   `json:"warranties_count"`
}

func (s Summary) validate() []string {
	var problems []string
	if s.CancelledTotal < 0 {
		problems = append(problems, "cancelled total must not be negative")
	}
	if s.TotalSales < 0 || s.PhysicalSales < 0 || s.DeliverySales < 0 || s.TotalUnits < 0 || s.CancelledInvoices < 0 || s.WarrantiesCount < 0 {
		problems = append(problems, "counters must not be negative")
	}
	return problems
}

// SubmitInput captures a closing as entered at the end of a shift.
type SubmitInput struct {
	ClosingDate      time.Time
	Counts           Counts
	Summary          Summary
	Notes            string
	DifferenceReason string
}

// Validate checks that the input can be reconciled.
func (in SubmitInput) Validate() error {
	var problems []string
	if in.ClosingDate.IsZero() {
		problems = append(problems, "closing date required")
	}
	c := in.Counts
	if c.ExpectedCash < 0 || c.ExpectedTransfer < 0 || c.ActualCash < 0 || c.ActualTransfer < 0 {
		problems = append(problems, "amounts must not be negative")
	}
	problems = append(problems, in.Summary.validate()...)
	if len(problems) > 0 {
		return fmt.Errorf("cashclosing: %w: %s", shared.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// CashClosing is an immutable end-of-shift record.
type CashClosing struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	BranchID       uuid.UUID `json:"branch_id"`
	UserID         uuid.UUID `json:"user_id"`
	ClosingDate    time.Time `json:"closing_date"`

	Counts
	Reconciliation
	Summary

	Notes            string    `json:"notes,omitempty"`
	DifferenceReason string    `json:"difference_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Date returns the closing date in DateLayout.
func (c CashClosing) Date() string {
	return c.ClosingDate.Format(DateLayout)
}

// Preview is the system-computed expectation for a shift.
type Preview struct {
	Date             string `json:"closing_date"`
	ExpectedCash     int64  `json:"expected_cash"`
	ExpectedTransfer int64  `json:"expected_transfer"`
	SalesAmount      int64  `json:"sales_amount"`
	TaxBase          int64  `json:"tax_base"`
	VAT              int64  `json:"vat"`
	Summary
}

// SalesTotals is the raw aggregate of one shift's sales.
type SalesTotals struct {
	CashTotal         int64
	TransferTotal     int64
	CompletedTotal    int64
	Subtotal          int64
	PhysicalSales     int
	DeliverySales     int
	TotalUnits        int
	CancelledInvoices int
	CancelledTotal    int64
	VATResponsible    bool
}

// ListFilter narrows the closing history.
type ListFilter struct {
	From     time.Time
	To       time.Time
	Outcome  Outcome
	Page     int
	PageSize int
}

// ListResult is one page of closings.
type ListResult struct {
	Rows       []CashClosing     `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
}
