package warranty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nou-pos/nou/internal/activity"
	"github.com/nou-pos/nou/internal/rbac"
	"github.com/nou-pos/nou/internal/shared"
)

type memoryRepo struct {
	rows   map[uuid.UUID]Warranty
	calls  int
	detail func(w Warranty) Detail
	// beforeTransition runs between the read and the conditional update.
	beforeTransition func(id uuid.UUID)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[uuid.UUID]Warranty{}}
}

func notFound() error { return fmt.Errorf("memory: %w", shared.ErrNotFound) }

func (m *memoryRepo) visible(scope shared.Scope, id uuid.UUID) (Warranty, bool) {
	w, ok := m.rows[id]
	if !ok || w.OrganizationID != scope.OrganizationID || w.BranchID != scope.BranchID {
		return Warranty{}, false
	}
	return w, true
}

func (m *memoryRepo) Insert(ctx context.Context, w Warranty) (Warranty, error) {
	m.calls++
	w.ID = uuid.New()
	w.UpdatedAt = w.CreatedAt
	m.rows[w.ID] = w
	return w, nil
}

func (m *memoryRepo) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error) {
	m.calls++
	w, ok := m.visible(scope, id)
	if !ok {
		return Warranty{}, notFound()
	}
	return w, nil
}

func (m *memoryRepo) GetDetail(ctx context.Context, scope shared.Scope, id uuid.UUID) (Detail, error) {
	m.calls++
	w, ok := m.visible(scope, id)
	if !ok {
		return Detail{}, notFound()
	}
	if m.detail != nil {
		return m.detail(w), nil
	}
	return Detail{Warranty: w}, nil
}

func (m *memoryRepo) Transition(ctx context.Context, scope shared.Scope, id uuid.UUID, from, to Status, review *Review, at time.Time) (Warranty, error) {
	m.calls++
	if m.beforeTransition != nil {
		m.beforeTransition(id)
	}
	w, ok := m.visible(scope, id)
	if !ok || w.Status != from {
		return Warranty{}, notFound()
	}
	w.Status = to
	w.UpdatedAt = at
	if review != nil {
		by, reviewedAt := review.By, review.At
		w.ReviewedBy, w.ReviewedAt = &by, &reviewedAt
		w.RejectionReason = review.RejectionReason
	}
	m.rows[id] = w
	return w, nil
}

func (m *memoryRepo) List(ctx context.Context, scope shared.Scope, filter ListFilter, limit, offset int) ([]Warranty, int, error) {
	m.calls++
	var out []Warranty
	for _, w := range m.rows {
		if w.OrganizationID != scope.OrganizationID || w.BranchID != scope.BranchID {
			continue
		}
		if filter.Status != "" && w.Status != filter.Status {
			continue
		}
		out = append(out, w)
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

type recordingWriter struct {
	entries []activity.Entry
	err     error
}

func (r *recordingWriter) Record(ctx context.Context, e activity.Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func scopeFor(role shared.Role) shared.Scope {
	return shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New(), UserID: uuid.New(), Role: role}
}

func newTestService(repo Repository, writer activity.Writer) *Service {
	svc := NewService(repo, writer, rbac.NewService(), slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 5, 4, 15, 30, 0, 0, time.UTC) })
	return svc
}

func validInput() CreateInput {
	return CreateInput{
		CustomerID: uuid.New(),
		ProductID:  uuid.New(),
		Quantity:   1,
		Type:       TypeExchange,
		Reason:     "defect",
	}
}

func TestLifecycleApproveThenProcess(t *testing.T) {
	repo := newMemoryRepo()
	writer := &recordingWriter{}
	svc := newTestService(repo, writer)
	scope := scopeFor(shared.RoleOwner)
	ctx := context.Background()

	created, err := svc.Create(ctx, scope, validInput())
	require.NoError(t, err)
	require.Equal(t, StatusPending, created.Status)
	require.Equal(t, scope.UserID, created.RequestedBy)

	approved, err := svc.Approve(ctx, scope, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	require.Equal(t, scope.UserID, *approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)

	processed, err := svc.Process(ctx, scope, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusProcessed, processed.Status)

	_, err = svc.Reject(ctx, scope, created.ID, "too late")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.Equal(t, StatusProcessed, repo.rows[created.ID].Status)

	actions := make([]string, 0, len(writer.entries))
	for _, e := range writer.entries {
		actions = append(actions, e.Action)
	}
	require.Equal(t, []string{
		activity.ActionWarrantyCreated,
		activity.ActionWarrantyApproved,
		activity.ActionWarrantyProcessed,
	}, actions)
}

func TestRejectRequiresReason(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &recordingWriter{})
	scope := scopeFor(shared.RoleAdmin)
	ctx := context.Background()

	created, err := svc.Create(ctx, scope, validInput())
	require.NoError(t, err)
	before := repo.calls

	_, err = svc.Reject(ctx, scope, created.ID, "   ")
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, before, repo.calls)
	require.Equal(t, StatusPending, repo.rows[created.ID].Status)

	rejected, err := svc.Reject(ctx, scope, created.ID, "physical damage")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	require.Equal(t, "physical damage", *rejected.RejectionReason)
	require.NotNil(t, rejected.ReviewedBy)
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusProcessed, false},
		{StatusApproved, StatusProcessed, true},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusProcessed, StatusRejected, false},
		{StatusProcessed, StatusApproved, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
	require.True(t, StatusRejected.Terminal())
	require.True(t, StatusProcessed.Terminal())
	require.False(t, StatusPending.Terminal())
}

func TestProcessPendingIsInvalid(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	scope := scopeFor(shared.RoleOwner)

	created, err := svc.Create(context.Background(), scope, validInput())
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), scope, created.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.Equal(t, StatusPending, repo.rows[created.ID].Status)
}

func TestConcurrentReviewerLoses(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	scope := scopeFor(shared.RoleOwner)

	created, err := svc.Create(context.Background(), scope, validInput())
	require.NoError(t, err)

	repo.beforeTransition = func(id uuid.UUID) {
		w := repo.rows[id]
		w.Status = StatusRejected
		repo.rows[id] = w
	}
	_, err = svc.Approve(context.Background(), scope, created.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.Equal(t, StatusRejected, repo.rows[created.ID].Status)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	scope := scopeFor(shared.RoleCashier)

	mutations := map[string]func(*CreateInput){
		"blank reason":  func(in *CreateInput) { in.Reason = " " },
		"unknown type":  func(in *CreateInput) { in.Type = "upgrade" },
		"zero quantity": func(in *CreateInput) { in.Quantity = 0 },
		"no customer":   func(in *CreateInput) { in.CustomerID = uuid.Nil },
		"no product":    func(in *CreateInput) { in.ProductID = uuid.Nil },
	}
	for name, mutate := range mutations {
		in := validInput()
		mutate(&in)
		_, err := svc.Create(context.Background(), scope, in)
		require.ErrorIs(t, err, shared.ErrValidation, name)
	}
}

func TestCashierCannotApprove(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	scope := scopeFor(shared.RoleCashier)

	created, err := svc.Create(context.Background(), scope, validInput())
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), scope, created.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Equal(t, StatusPending, repo.rows[created.ID].Status)
}

func TestMissingOrganizationStopsBeforeRepository(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	scope := shared.Scope{UserID: uuid.New(), Role: shared.RoleOwner}

	_, err := svc.Create(context.Background(), scope, validInput())
	require.ErrorIs(t, err, shared.ErrNoOrganization)
	_, err = svc.Approve(context.Background(), scope, uuid.New())
	require.ErrorIs(t, err, shared.ErrNoOrganization)
	_, err = svc.List(context.Background(), scope, ListFilter{})
	require.ErrorIs(t, err, shared.ErrNoOrganization)
	require.Zero(t, repo.calls)
}

func TestFailingActivityWriteKeepsTransition(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &recordingWriter{err: errors.New("activities unavailable")})
	scope := scopeFor(shared.RoleOwner)

	created, err := svc.Create(context.Background(), scope, validInput())
	require.NoError(t, err)
	approved, err := svc.Approve(context.Background(), scope, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, StatusApproved, repo.rows[created.ID].Status)
}

func TestGetAppliesPlaceholders(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	scope := scopeFor(shared.RoleOwner)
	created, err := svc.Create(context.Background(), scope, validInput())
	require.NoError(t, err)

	repo.detail = func(w Warranty) Detail { return Detail{Warranty: w, ProductName: "Cargador USB-C"} }
	detail, err := svc.Get(context.Background(), scope, created.ID)
	require.NoError(t, err)
	require.Equal(t, Placeholder, detail.CustomerName)
	require.Equal(t, "Cargador USB-C", detail.ProductName)
	require.Nil(t, detail.Sale)
	require.Nil(t, detail.ReviewerName)
	require.Nil(t, detail.ReplacementProductName)

	_, err = svc.Get(context.Background(), scope, uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Get(context.Background(), scopeFor(shared.RoleOwner), created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateThenGetReturnsSameRecord(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	scope := scopeFor(shared.RoleCashier)

	saleID, saleItemID, replacementID := uuid.New(), uuid.New(), uuid.New()
	in := validInput()
	in.SaleID = &saleID
	in.SaleItemID = &saleItemID
	in.ReplacementProductID = &replacementID
	in.Quantity = 2
	in.Type = TypeRefund
	in.Reason = "  pantalla rota  "

	created, err := svc.Create(context.Background(), scope, in)
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), scope, created.ID)
	require.NoError(t, err)
	got := detail.Warranty
	require.Equal(t, created, got)

	require.Equal(t, scope.OrganizationID, got.OrganizationID)
	require.Equal(t, scope.BranchID, got.BranchID)
	require.Equal(t, &saleID, got.SaleID)
	require.Equal(t, &saleItemID, got.SaleItemID)
	require.Equal(t, &replacementID, got.ReplacementProductID)
	require.Equal(t, in.CustomerID, got.CustomerID)
	require.Equal(t, in.ProductID, got.ProductID)
	require.Equal(t, 2, got.Quantity)
	require.Equal(t, TypeRefund, got.Type)
	require.Equal(t, "pantalla rota", got.Reason)
	require.Equal(t, StatusPending, got.Status)
	require.Equal(t, scope.UserID, got.RequestedBy)
	require.Nil(t, got.ReviewedBy)
	require.Nil(t, got.ReviewedAt)
	require.Nil(t, got.RejectionReason)
	require.Equal(t, time.Date(2024, 5, 4, 15, 30, 0, 0, time.UTC), got.CreatedAt)
	require.Equal(t, got.CreatedAt, got.UpdatedAt)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	scope := scopeFor(shared.RoleOwner)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.WithNow(func() time.Time { return at })
		_, err := svc.Create(context.Background(), scope, validInput())
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), scope, ListFilter{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)
	require.Equal(t, 3, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.Equal(t, base.Add(2*time.Hour), page.Rows[0].CreatedAt)

	_, err = svc.List(context.Background(), scope, ListFilter{Status: "lost"})
	require.ErrorIs(t, err, shared.ErrValidation)
}
