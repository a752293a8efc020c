package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/observability"
	"github.com/nou-pos/nou/internal/shared"
)

// Writer is the narrow port the engines depend on.
type Writer interface {
	Record(ctx context.Context, e Entry) error
}

// Service records and reads the activity trail.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Record persists one row. Failures are returned to the caller.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if s == nil || s.repo == nil {
		return errors.New("activity: service not initialised")
	}
	if err := e.validate(); err != nil {
		return err
	}
	if e.ActorType == "" {
		e.ActorType = ActorUser
		if e.UserID == nil {
			e.ActorType = ActorSystem
		}
	}
	return s.repo.Insert(ctx, e, s.now().UTC())
}

// List returns one page of the organization timeline, newest first.
func (s *Service) List(ctx context.Context, scope shared.Scope, f ListFilter) (Result, error) {
	if err := scope.Validate(); err != nil {
		return Result{}, err
	}
	page, perPage := shared.NormalizePage(f.Page, f.PageSize)
	rows, total, err := s.repo.List(ctx, scope.OrganizationID, f, perPage, shared.Offset(page, perPage))
	if err != nil {
		return Result{}, err
	}
	if rows == nil {
		rows = []Activity{}
	}
	return Result{Rows: rows, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// Purge deletes rows older than retention and returns how many were removed.
func (s *Service) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return s.repo.DeleteBefore(ctx, s.now().UTC().Add(-retention))
}

func (e Entry) validate() error {
	switch {
	case e.OrganizationID == uuid.Nil:
		return fmt.Errorf("activity: %w", shared.ErrNoOrganization)
	case strings.TrimSpace(e.Action) == "" || strings.TrimSpace(e.EntityType) == "":
		return fmt.Errorf("activity: %w: action and entity type required", shared.ErrValidation)
	}
	return nil
}

// RecordBestEffort writes e and discards any failure after logging it.
// The accompanying mutation has already committed when this runs.
func RecordBestEffort(ctx context.Context, w Writer, logger *slog.Logger, metrics *observability.DomainMetrics, e Entry) {
	if w == nil {
		return
	}
	if err := w.Record(ctx, e); err != nil {
		metrics.ActivityDropped(e.Action)
		if logger != nil {
			logger.Warn("activity record dropped",
				slog.String("action", e.Action),
				slog.String("entity_type", e.EntityType),
				slog.String("entity_id", e.EntityID),
				slog.Any("error", err),
			)
		}
	}
}
