package activity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nou-pos/nou/internal/observability"
	"github.com/nou-pos/nou/internal/shared"
)

type memoryRepo struct {
	rows      []Activity
	insertErr error
}

func (m *memoryRepo) Insert(ctx context.Context, e Entry, at time.Time) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows = append(m.rows, Activity{
		ID:             uuid.New(),
		OrganizationID: e.OrganizationID,
		BranchID:       e.BranchID,
		UserID:         e.UserID,
		ActorType:      e.ActorType,
		Action:         e.Action,
		EntityType:     e.EntityType,
		EntityID:       e.EntityID,
		Summary:        e.Summary,
		Metadata:       e.Metadata,
		CreatedAt:      at,
	})
	return nil
}

func (m *memoryRepo) List(ctx context.Context, orgID uuid.UUID, f ListFilter, limit, offset int) ([]Activity, int, error) {
	var out []Activity
	for _, a := range m.rows {
		if a.OrganizationID != orgID {
			continue
		}
		if f.Action != "" && a.Action != f.Action {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memoryRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := m.rows[:0]
	var removed int64
	for _, a := range m.rows {
		if a.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.rows = kept
	return removed, nil
}

func testScope() shared.Scope {
	return shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New(), UserID: uuid.New(), Role: shared.RoleOwner}
}

func TestRecordInfersActorType(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)
	scope := testScope()

	require.NoError(t, svc.Record(context.Background(), Entry{
		OrganizationID: scope.OrganizationID,
		Action:         "purge_run",
		EntityType:     "activities",
	}))
	entry := UserEntry(scope.OrganizationID, scope.BranchID, scope.UserID)
	entry.Action = ActionWarrantyCreated
	entry.EntityType = "warranty"
	require.NoError(t, svc.Record(context.Background(), entry))

	require.Len(t, repo.rows, 2)
	require.Equal(t, ActorSystem, repo.rows[0].ActorType)
	require.Equal(t, ActorUser, repo.rows[1].ActorType)
}

func TestRecordValidatesEntry(t *testing.T) {
	svc := NewService(&memoryRepo{})
	err := svc.Record(context.Background(), Entry{Action: "x", EntityType: "y"})
	require.ErrorIs(t, err, shared.ErrNoOrganization)

	err = svc.Record(context.Background(), Entry{OrganizationID: uuid.New(), EntityType: "y"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListPagesNewestFirst(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)
	scope := testScope()
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.WithNow(func() time.Time { return at })
		require.NoError(t, svc.Record(context.Background(), Entry{
			OrganizationID: scope.OrganizationID, Action: ActionClosingCreated, EntityType: "cash_closing",
		}))
	}

	first, err := svc.List(context.Background(), scope, ListFilter{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Rows, 2)
	require.Equal(t, shared.Pagination{Page: 1, PerPage: 2, Total: 3, TotalPages: 2}, first.Pagination)
	require.Equal(t, base.Add(2*time.Minute), first.Rows[0].CreatedAt)

	second, err := svc.List(context.Background(), scope, ListFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, second.Rows, 1)
	require.Equal(t, shared.Pagination{Page: 2, PerPage: 2, Total: 3, TotalPages: 2}, second.Pagination)

	other, err := svc.List(context.Background(), testScope(), ListFilter{})
	require.NoError(t, err)
	require.Empty(t, other.Rows)
	require.NotNil(t, other.Rows)
	require.Zero(t, other.Pagination.Total)
}

func TestListRequiresScope(t *testing.T) {
	svc := NewService(&memoryRepo{})
	_, err := svc.List(context.Background(), shared.Scope{}, ListFilter{})
	require.ErrorIs(t, err, shared.ErrNoOrganization)
}

func TestPurgeRemovesRowsPastRetention(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)
	org := uuid.New()
	now := time.Date(2024, 9, 1, 3, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{91 * 24 * time.Hour, 89 * 24 * time.Hour, time.Hour} {
		at := now.Add(-age)
		svc.WithNow(func() time.Time { return at })
		require.NoError(t, svc.Record(context.Background(), Entry{OrganizationID: org, Action: "a", EntityType: "b"}))
	}

	svc.WithNow(func() time.Time { return now })
	removed, err := svc.Purge(context.Background(), 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
	require.Len(t, repo.rows, 2)
}

func TestRecordBestEffortSwallowsFailures(t *testing.T) {
	repo := &memoryRepo{insertErr: errors.New("activities table unavailable")}
	svc := NewService(repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewDomainMetrics(observability.NewMetrics().Registerer())

	require.NotPanics(t, func() {
		RecordBestEffort(context.Background(), svc, logger, metrics, Entry{
			OrganizationID: uuid.New(), Action: ActionWarrantyApproved, EntityType: "warranty",
		})
	})
	require.Empty(t, repo.rows)
}
