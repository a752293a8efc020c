package cashclosing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nou-pos/nou/internal/activity"
	"github.com/nou-pos/nou/internal/rbac"
	"github.com/nou-pos/nou/internal/shared"
)

type memoryRepo struct {
	mu         sync.Mutex
	rows       []CashClosing
	calls      int
	totals     SalesTotals
	warranties int
	totalsErr  error
}

func (m *memoryRepo) touch() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *memoryRepo) Insert(ctx context.Context, c CashClosing) (CashClosing, error) {
	m.touch()
	for _, existing := range m.rows {
		if existing.BranchID == c.BranchID && existing.UserID == c.UserID && existing.ClosingDate.Equal(c.ClosingDate) {
			return CashClosing{}, fmt.Errorf("memory: %w", shared.ErrDuplicate)
		}
	}
	c.ID = uuid.New()
	m.rows = append(m.rows, c)
	return c, nil
}

func (m *memoryRepo) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (CashClosing, error) {
	m.touch()
	for _, c := range m.rows {
		if c.ID == id && c.OrganizationID == scope.OrganizationID && c.BranchID == scope.BranchID {
			return c, nil
		}
	}
	return CashClosing{}, fmt.Errorf("memory: %w", shared.ErrNotFound)
}

func (m *memoryRepo) List(ctx context.Context, scope shared.Scope, filter ListFilter, limit, offset int) ([]CashClosing, int, error) {
	m.touch()
	var out []CashClosing
	for _, c := range m.rows {
		if c.BranchID == scope.BranchID && (filter.Outcome == "" || c.Outcome == filter.Outcome) {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) SalesTotals(ctx context.Context, scope shared.Scope, day time.Time, loc *time.Location) (SalesTotals, error) {
	m.touch()
	return m.totals, m.totalsErr
}

func (m *memoryRepo) WarrantiesCount(ctx context.Context, scope shared.Scope, day time.Time, loc *time.Location) (int, error) {
	m.touch()
	return m.warranties, nil
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

func testScope() shared.Scope {
	return shared.Scope{OrganizationID: uuid.New(), BranchID: uuid.New(), UserID: uuid.New(), Role: shared.RoleCashier}
}

func newTestService(repo Repository, writer activity.Writer) *Service {
	svc := NewService(repo, writer, rbac.NewService(), slog.New(slog.NewTextHandler(io.Discard, nil)), nil, Options{
		Money: shared.NewMoneyFormatter("es-CO"),
	})
	svc.WithNow(func() time.Time { return time.Date(2024, 5, 4, 22, 0, 0, 0, time.UTC) })
	return svc
}

var closingDay = time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC)

func TestSubmitPerfectClosingNeedsNoReason(t *testing.T) {
	repo := &memoryRepo{}
	writer := &recordingWriter{}
	svc := newTestService(repo, writer)

	created, err := svc.Submit(context.Background(), testScope(), SubmitInput{
		ClosingDate: closingDay,
		Counts:      Counts{ExpectedCash: 100000, ActualCash: 100000, ExpectedTransfer: 50000, ActualTransfer: 50000},
	})
	require.NoError(t, err)
	require.Equal(t, OutcomePerfect, created.Outcome)
	require.Zero(t, created.CashDifference)
	require.Zero(t, created.TransferDifference)
	require.Len(t, repo.rows, 1)
	require.Len(t, writer.entries, 1)
	require.Equal(t, activity.ActionClosingCreated, writer.entries[0].Action)
}

func TestSubmitShortClosingRequiresReason(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo, &recordingWriter{})
	scope := testScope()
	in := SubmitInput{
		ClosingDate: closingDay,
		Counts:      Counts{ExpectedCash: 100000, ActualCash: 95000, ExpectedTransfer: 50000, ActualTransfer: 50000},
	}

	_, err := svc.Submit(context.Background(), scope, in)
	require.ErrorIs(t, err, shared.ErrMissingReason)
	require.Empty(t, repo.rows)
	require.Zero(t, repo.calls)

	in.DifferenceReason = "billete falso retirado"
	created, err := svc.Submit(context.Background(), scope, in)
	require.NoError(t, err)
	require.Equal(t, OutcomeShort, created.Outcome)
	require.EqualValues(t, -5000, created.CashDifference)
	require.Equal(t, "billete falso retirado", created.DifferenceReason)
}

func TestSubmitRejectsNegativeCounters(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo, nil)

	_, err := svc.Submit(context.Background(), testScope(), SubmitInput{
		ClosingDate: closingDay,
		Counts:      Counts{ExpectedCash: 1000, ActualCash: -1},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Submit(context.Background(), testScope(), SubmitInput{
		ClosingDate: closingDay,
		Summary:     Summary{CancelledInvoices: -2},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Submit(context.Background(), testScope(), SubmitInput{})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Zero(t, repo.calls)
}

func TestSubmitDuplicateShift(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo, nil)
	scope := testScope()
	in := SubmitInput{ClosingDate: closingDay, Counts: Counts{ExpectedCash: 10, ActualCash: 10}}

	_, err := svc.Submit(context.Background(), scope, in)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), scope, in)
	require.ErrorIs(t, err, shared.ErrDuplicate)
	require.Len(t, repo.rows, 1)
}

func TestSubmitSurvivesActivityFailure(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo, &recordingWriter{err: errors.New("activities offline")})

	created, err := svc.Submit(context.Background(), testScope(), SubmitInput{
		ClosingDate:      closingDay,
		Counts:           Counts{ExpectedCash: 100, ActualCash: 120},
		DifferenceReason: "propina no registrada",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeOver, created.Outcome)
	require.Len(t, repo.rows, 1)
}

func TestMissingOrganizationTouchesNoTables(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo, nil)
	scope := shared.Scope{UserID: uuid.New(), Role: shared.RoleCashier}

	_, err := svc.Submit(context.Background(), scope, SubmitInput{ClosingDate: closingDay})
	require.ErrorIs(t, err, shared.ErrNoOrganization)
	_, err = svc.Preview(context.Background(), scope, closingDay)
	require.ErrorIs(t, err, shared.ErrNoOrganization)
	_, err = svc.List(context.Background(), scope, ListFilter{})
	require.ErrorIs(t, err, shared.ErrNoOrganization)
	require.Zero(t, repo.calls)
}

func TestDeliveryRoleCannotTouchClosings(t *testing.T) {
	repo := &memoryRepo{}
	writer := &recordingWriter{}
	svc := newTestService(repo, writer)
	scope := testScope()
	scope.Role = shared.RoleDelivery

	_, err := svc.Submit(context.Background(), scope, SubmitInput{
		ClosingDate: closingDay,
		Counts:      Counts{ExpectedCash: 1000, ActualCash: 1000},
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.Preview(context.Background(), scope, closingDay)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.Get(context.Background(), scope, uuid.New())
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.List(context.Background(), scope, ListFilter{})
	require.ErrorIs(t, err, shared.ErrForbidden)

	require.Zero(t, repo.calls)
	require.Empty(t, writer.entries)
}

func TestPreviewAggregatesShift(t *testing.T) {
	repo := &memoryRepo{
		totals: SalesTotals{
			CashTotal:         180000,
			TransferTotal:     70000,
			CompletedTotal:    250000,
			Subtotal:          105,
			PhysicalSales:     4,
			DeliverySales:     1,
			TotalUnits:        9,
			CancelledInvoices: 1,
			CancelledTotal:    30000,
			VATResponsible:    true,
		},
		warranties: 2,
	}
	svc := newTestService(repo, nil)

	preview, err := svc.Preview(context.Background(), testScope(), closingDay)
	require.NoError(t, err)
	require.Equal(t, "2024-05-04", preview.Date)
	require.EqualValues(t, 180000, preview.ExpectedCash)
	require.EqualValues(t, 70000, preview.ExpectedTransfer)
	require.EqualValues(t, 250000, preview.SalesAmount)
	require.Equal(t, 5, preview.TotalSales)
	require.Equal(t, 4, preview.PhysicalSales)
	require.Equal(t, 1, preview.CancelledInvoices)
	require.Equal(t, 2, preview.WarrantiesCount)
	require.EqualValues(t, 20, preview.VAT)

	repo.totals.VATResponsible = false
	preview, err = svc.Preview(context.Background(), testScope(), closingDay)
	require.NoError(t, err)
	require.Zero(t, preview.VAT)
}

func TestPreviewPropagatesBackendError(t *testing.T) {
	repo := &memoryRepo{totalsErr: fmt.Errorf("memory: %w", shared.ErrBackend)}
	svc := newTestService(repo, nil)

	_, err := svc.Preview(context.Background(), testScope(), closingDay)
	require.ErrorIs(t, err, shared.ErrBackend)
}

func TestHandlerMissingReasonIsUnprocessable(t *testing.T) {
	repo := &memoryRepo{}
	svc := newTestService(repo, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Service: rbac.NewService(), Logger: logger})
	scope := testScope()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithScope(req.Context(), scope)))
		})
	})
	r.Route("/api/cash-closings", h.MountRoutes)

	body := `{"closing_date":"2024-05-04","expected_cash":100000,"actual_cash":95000,"expected_transfer":50000,"actual_transfer":50000}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cash-closings/", strings.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	require.Empty(t, repo.rows)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cash-closings/preview?date=04-05-2024", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cash-closings/preview?date=2024-05-04", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
