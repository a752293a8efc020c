package cashclosing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nou-pos/nou/internal/activity"
	"github.com/nou-pos/nou/internal/observability"
	"github.com/nou-pos/nou/internal/shared"
)

// Authorizer answers role permission checks.
type Authorizer interface {
	Can(role shared.Role, perm string) bool
}

// Options tunes locale-dependent behaviour.
type Options struct {
	VATRate  float64
	Location *time.Location
	Money    shared.MoneyFormatter
}

// Service reconciles and stores end-of-shift closings.
type Service struct {
	repo     Repository
	activity activity.Writer
	authz    Authorizer
	logger   *slog.Logger
	metrics  *observability.DomainMetrics
	opts     Options
	now      func() time.Time
}

// NewService constructs the closing engine. authz may be nil when the
// caller enforces permissions elsewhere.
func NewService(repo Repository, writer activity.Writer, authz Authorizer, logger *slog.Logger, metrics *observability.DomainMetrics, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.VATRate <= 0 {
		opts.VATRate = shared.DefaultVATRate
	}
	return &Service{repo: repo, activity: writer, authz: authz, logger: logger, metrics: metrics, opts: opts, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) require(scope shared.Scope, perm string) error {
	if s.authz == nil || s.authz.Can(scope.Role, perm) {
		return nil
	}
	return fmt.Errorf("cashclosing: %w: %s required", shared.ErrForbidden, perm)
}

// Location returns the time zone closing dates are interpreted in.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// Submit reconciles and persists a closing. Nothing is written when the
// input is invalid or a non-zero difference lacks a reason.
func (s *Service) Submit(ctx context.Context, scope shared.Scope, in SubmitInput) (CashClosing, error) {
	if err := scope.Validate(); err != nil {
		return CashClosing{}, err
	}
	if err := s.require(scope, shared.PermClosingCreate); err != nil {
		return CashClosing{}, err
	}
	if err := in.Validate(); err != nil {
		return CashClosing{}, err
	}
	rec := Reconcile(in.Counts)
	reason := strings.TrimSpace(in.DifferenceReason)
	if rec.RequiresReason() && reason == "" {
		return CashClosing{}, fmt.Errorf("cashclosing: %w: %s of %s", shared.ErrMissingReason, rec.Outcome, s.opts.Money.Format(rec.CombinedDifference))
	}

	y, m, d := in.ClosingDate.Date()
	created, err := s.repo.Insert(ctx, CashClosing{
		OrganizationID:   scope.OrganizationID,
		BranchID:         scope.BranchID,
		UserID:           scope.UserID,
		ClosingDate:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Counts:           in.Counts,
		Reconciliation:   rec,
		Summary:          in.Summary,
		Notes:            strings.TrimSpace(in.Notes),
		DifferenceReason: reason,
		CreatedAt:        s.now().UTC(),
	})
	if err != nil {
		return CashClosing{}, err
	}
	s.metrics.ClosingSubmitted(string(rec.Outcome), rec.CombinedDifference)

	entry := activity.UserEntry(scope.OrganizationID, scope.BranchID, scope.UserID)
	entry.Action = activity.ActionClosingCreated
	entry.EntityType = "cash_closing"
	entry.EntityID = created.ID.String()
	entry.Summary = s.summarize(created)
	entry.Metadata = map[string]any{
		"closing_date":        created.Date(),
		"outcome":             string(rec.Outcome),
		"cash_difference":     rec.CashDifference,
		"transfer_difference": rec.TransferDifference,
	}
	activity.RecordBestEffort(ctx, s.activity, s.logger, s.metrics, entry)
	return created, nil
}

func (s *Service) summarize(c CashClosing) string {
	switch c.Outcome {
	case OutcomeShort:
		return fmt.Sprintf("Cierre de caja %s con faltante de %s", c.Date(), s.opts.Money.Format(-c.CombinedDifference))
	case OutcomeOver:
		return fmt.Sprintf("Cierre de caja %s con sobrante de %s", c.Date(), s.opts.Money.Format(c.CombinedDifference))
	default:
		return fmt.Sprintf("Cierre de caja %s cuadrado", c.Date())
	}
}

// Preview aggregates the caller's shift into expected totals.
func (s *Service) Preview(ctx context.Context, scope shared.Scope, day time.Time) (Preview, error) {
	if err := scope.Validate(); err != nil {
		return Preview{}, err
	}
	if err := s.require(scope, shared.PermClosingCreate); err != nil {
		return Preview{}, err
	}
	if day.IsZero() {
		day = s.now().In(s.opts.Location)
	}

	var (
		totals     SalesTotals
		warranties int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.repo.SalesTotals(gctx, scope, day, s.opts.Location)
		return err
	})
	g.Go(func() error {
		var err error
		warranties, err = s.repo.WarrantiesCount(gctx, scope, day, s.opts.Location)
		return err
	})
	if err := g.Wait(); err != nil {
		return Preview{}, err
	}

	return Preview{
		Date:             day.Format(DateLayout),
		ExpectedCash:     totals.CashTotal,
		ExpectedTransfer: totals.TransferTotal,
		SalesAmount:      totals.CompletedTotal,
		TaxBase:          totals.Subtotal,
		VAT:              shared.BranchVAT(totals.Subtotal, s.opts.VATRate, totals.VATResponsible),
		Summary: Summary{
			TotalSales:        totals.PhysicalSales + totals.DeliverySales,
			PhysicalSales:     totals.PhysicalSales,
			DeliverySales:     totals.DeliverySales,
			TotalUnits:        totals.TotalUnits,
			CancelledInvoices: totals.CancelledInvoices,
			CancelledTotal:    totals.CancelledTotal,
			WarrantiesCount:   warranties,
		},
	}, nil
}

// Get returns a closing of the scoped branch.
func (s *Service) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (CashClosing, error) {
	if err := scope.Validate(); err != nil {
		return CashClosing{}, err
	}
	if err := s.require(scope, shared.PermClosingView); err != nil {
		return CashClosing{}, err
	}
	return s.repo.Get(ctx, scope, id)
}

// List returns the closing history of the scoped branch, newest first.
func (s *Service) List(ctx context.Context, scope shared.Scope, filter ListFilter) (ListResult, error) {
	if err := scope.Validate(); err != nil {
		return ListResult{}, err
	}
	if err := s.require(scope, shared.PermClosingView); err != nil {
		return ListResult{}, err
	}
	switch filter.Outcome {
	case "", OutcomePerfect, OutcomeShort, OutcomeOver:
	default:
		return ListResult{}, fmt.Errorf("cashclosing: %w: unknown outcome %q", shared.ErrValidation, filter.Outcome)
	}
	page, perPage := shared.NormalizePage(filter.Page, filter.PageSize)
	rows, total, err := s.repo.List(ctx, scope, filter, perPage, shared.Offset(page, perPage))
	if err != nil {
		return ListResult{}, err
	}
	if rows == nil {
		rows = []CashClosing{}
	}
	return ListResult{Rows: rows, Pagination: shared.NewPagination(page, perPage, total)}, nil
}
