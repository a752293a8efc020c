package warranty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/activity"
	"github.com/nou-pos/nou/internal/observability"
	"github.com/nou-pos/nou/internal/shared"
)

// Authorizer answers role permission checks.
type Authorizer interface {
	Can(role shared.Role, perm string) bool
}

// Service implements the warranty lifecycle.
type Service struct {
	repo     Repository
	activity activity.Writer
	authz    Authorizer
	logger   *slog.Logger
	metrics  *observability.DomainMetrics
	now      func() time.Time
}

// NewService constructs the warranty engine. authz may be nil when the
// caller enforces permissions elsewhere.
func NewService(repo Repository, writer activity.Writer, authz Authorizer, logger *slog.Logger, metrics *observability.DomainMetrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		activity: writer,
		authz:    authz,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
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
	return fmt.Errorf("warranty: %w: %s required", shared.ErrForbidden, perm)
}

// Create registers a new pending claim.
func (s *Service) Create(ctx context.Context, scope shared.Scope, in CreateInput) (Warranty, error) {
	if err := scope.Validate(); err != nil {
		return Warranty{}, err
	}
	if err := s.require(scope, shared.PermWarrantyCreate); err != nil {
		return Warranty{}, err
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if err := in.Validate(); err != nil {
		return Warranty{}, err
	}
	created, err := s.repo.Insert(ctx, Warranty{
		OrganizationID:       scope.OrganizationID,
		BranchID:             scope.BranchID,
		SaleID:               in.SaleID,
		SaleItemID:           in.SaleItemID,
		CustomerID:           in.CustomerID,
		ProductID:            in.ProductID,
		ReplacementProductID: in.ReplacementProductID,
		Quantity:             in.Quantity,
		Type:                 in.Type,
		Reason:               in.Reason,
		Status:               StatusPending,
		RequestedBy:          scope.UserID,
		CreatedAt:            s.now().UTC(),
	})
	if err != nil {
		return Warranty{}, err
	}
	s.metrics.WarrantyTransition(string(StatusPending), "ok")
	s.record(ctx, scope, created, activity.ActionWarrantyCreated,
		fmt.Sprintf("Garantía (%s) registrada", created.Type),
		map[string]any{"warranty_type": string(created.Type), "quantity": created.Quantity})
	return created, nil
}

// Approve moves a pending claim to approved.
func (s *Service) Approve(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error) {
	if err := scope.Validate(); err != nil {
		return Warranty{}, err
	}
	if err := s.require(scope, shared.PermWarrantyApprove); err != nil {
		return Warranty{}, err
	}
	at := s.now().UTC()
	return s.transition(ctx, scope, id, StatusApproved, &Review{By: scope.UserID, At: at}, at)
}

// Reject moves a pending claim to rejected. The reason is mandatory.
func (s *Service) Reject(ctx context.Context, scope shared.Scope, id uuid.UUID, reason string) (Warranty, error) {
	if err := scope.Validate(); err != nil {
		return Warranty{}, err
	}
	if err := s.require(scope, shared.PermWarrantyApprove); err != nil {
		return Warranty{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Warranty{}, fmt.Errorf("warranty: %w: rejection reason required", shared.ErrValidation)
	}
	at := s.now().UTC()
	return s.transition(ctx, scope, id, StatusRejected, &Review{By: scope.UserID, At: at, RejectionReason: &reason}, at)
}

// Process completes an approved claim.
func (s *Service) Process(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error) {
	if err := scope.Validate(); err != nil {
		return Warranty{}, err
	}
	if err := s.require(scope, shared.PermWarrantyProcess); err != nil {
		return Warranty{}, err
	}
	return s.transition(ctx, scope, id, StatusProcessed, nil, s.now().UTC())
}

func (s *Service) transition(ctx context.Context, scope shared.Scope, id uuid.UUID, to Status, review *Review, at time.Time) (Warranty, error) {
	current, err := s.repo.Get(ctx, scope, id)
	if err != nil {
		return Warranty{}, err
	}
	if !current.Status.CanTransitionTo(to) {
		s.metrics.WarrantyTransition(string(to), "rejected")
		return Warranty{}, fmt.Errorf("warranty: %w: %s to %s", shared.ErrInvalidTransition, current.Status, to)
	}

	updated, err := s.repo.Transition(ctx, scope, id, current.Status, to, review, at)
	if errors.Is(err, shared.ErrNotFound) {
		// The row moved between the read and the conditional update.
		latest, gerr := s.repo.Get(ctx, scope, id)
		if gerr != nil {
			return Warranty{}, gerr
		}
		s.metrics.WarrantyTransition(string(to), "rejected")
		return Warranty{}, fmt.Errorf("warranty: %w: %s to %s", shared.ErrInvalidTransition, latest.Status, to)
	}
	if err != nil {
		return Warranty{}, err
	}
	s.metrics.WarrantyTransition(string(to), "ok")

	var (
		action  string
		summary string
		meta    = map[string]any{"from": string(current.Status), "to": string(to)}
	)
	switch to {
	case StatusApproved:
		action, summary = activity.ActionWarrantyApproved, "Garantía aprobada"
	case StatusRejected:
		action, summary = activity.ActionWarrantyRejected, "Garantía rechazada"
		if review != nil && review.RejectionReason != nil {
			meta["rejection_reason"] = *review.RejectionReason
		}
	case StatusProcessed:
		action, summary = activity.ActionWarrantyProcessed, "Garantía procesada"
	}
	s.record(ctx, scope, updated, action, summary, meta)
	return updated, nil
}

func (s *Service) record(ctx context.Context, scope shared.Scope, w Warranty, action, summary string, meta map[string]any) {
	entry := activity.UserEntry(scope.OrganizationID, scope.BranchID, scope.UserID)
	entry.Action = action
	entry.EntityType = "warranty"
	entry.EntityID = w.ID.String()
	entry.Summary = summary
	entry.Metadata = meta
	activity.RecordBestEffort(ctx, s.activity, s.logger, s.metrics, entry)
}

// Get returns the claim with its related records resolved.
func (s *Service) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (Detail, error) {
	if err := scope.Validate(); err != nil {
		return Detail{}, err
	}
	detail, err := s.repo.GetDetail(ctx, scope, id)
	if err != nil {
		return Detail{}, err
	}
	detail.applyPlaceholders()
	return detail, nil
}

// List returns one page of claims for the scoped branch, newest first.
func (s *Service) List(ctx context.Context, scope shared.Scope, filter ListFilter) (ListResult, error) {
	if err := scope.Validate(); err != nil {
		return ListResult{}, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return ListResult{}, fmt.Errorf("warranty: %w: unknown status %q", shared.ErrValidation, filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return ListResult{}, fmt.Errorf("warranty: %w: unknown type %q", shared.ErrValidation, filter.Type)
	}
	page, perPage := shared.NormalizePage(filter.Page, filter.PageSize)
	rows, total, err := s.repo.List(ctx, scope, filter, perPage, shared.Offset(page, perPage))
	if err != nil {
		return ListResult{}, err
	}
	if rows == nil {
		rows = []Warranty{}
	}
	return ListResult{Rows: rows, Pagination: shared.NewPagination(page, perPage, total)}, nil
}
