package cashclosing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/rbac"
	"github.com/nou-pos/nou/internal/shared"
)

type closingService interface {
	Submit(ctx context.Context, scope shared.Scope, in SubmitInput) (CashClosing, error)
	Preview(ctx context.Context, scope shared.Scope, day time.Time) (Preview, error)
	Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (CashClosing, error)
	List(ctx context.Context, scope shared.Scope, filter ListFilter) (ListResult, error)
}

// Handler exposes cash closing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  closingService
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds the cash closing handler.
func NewHandler(logger *slog.Logger, service closingService, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers cash closing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermClosingView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermClosingCreate))
		r.Get("/preview", h.preview)
		r.Post("/", h.submit)
	})
}

type submitRequest struct {
	ClosingDate       string `json:"closing_date" validate:"required,datetime=2006-01-02"`
	ExpectedCash      int64  `json:"expected_cash" validate:"min=0"`
	ExpectedTransfer  int64  `json:"expected_transfer" validate:"min=0"`
	ActualCash        int64  `json:"actual_cash" validate:"min=0"`
	ActualTransfer    int64  `json:"actual_transfer" validate:"min=0"`
	TotalSales        int    `json:"total_sales" validate:"min=0"`
	PhysicalSales     int    `json:"physical_sales" validate:"min=0"`
	DeliverySales     int    `json:"delivery_sales" validate:"min=0"`
	TotalUnits        int    `json:"total_units" validate:"min=0"`
	CancelledInvoices int    `json:"cancelled_invoices" validate:"min=0"`
	CancelledTotal    int64  `json:"cancelled_total" validate:"min=0"`
	WarrantiesCount   int    `json:"warranties_count" validate:"min=0"`
	Notes             string `json:"notes" validate:"max=1000"`
	DifferenceReason  string `json:"difference_reason" validate:"max=1000"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
		return
	}
	var req submitRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validate, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	day, _ := time.Parse(DateLayout, req.ClosingDate)
	created, err := h.service.Submit(r.Context(), scope, SubmitInput{
		ClosingDate: day,
		Counts: Counts{
			ExpectedCash:     req.ExpectedCash,
			ExpectedTransfer: req.ExpectedTransfer,
			ActualCash:       req.ActualCash,
			ActualTransfer:   req.ActualTransfer,
		},
		Summary: Summary{
			TotalSales:        req.TotalSales,
			PhysicalSales:     req.PhysicalSales,
			DeliverySales:     req.DeliverySales,
			TotalUnits:        req.TotalUnits,
			CancelledInvoices: req.CancelledInvoices,
			CancelledTotal:    req.CancelledTotal,
			WarrantiesCount:   req.WarrantiesCount,
		},
		Notes:            req.Notes,
		DifferenceReason: req.DifferenceReason,
	})
	if err != nil {
		h.logger.Warn("submit cash closing", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
		return
	}
	var day time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(DateLayout, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	preview, err := h.service.Preview(r.Context(), scope, day)
	if err != nil {
		h.logger.Error("preview cash closing", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid closing id")
		return
	}
	closing, err := h.service.Get(r.Context(), scope, id)
	if err != nil {
		h.logger.Warn("get cash closing", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, closing)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
		return
	}
	q := r.URL.Query()
	filter := ListFilter{Outcome: Outcome(q.Get("outcome"))}
	for key, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(DateLayout, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", key+" must be YYYY-MM-DD")
			return
		}
		*dst = parsed
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("per_page"))
	result, err := h.service.List(r.Context(), scope, filter)
	if err != nil {
		h.logger.Error("list cash closings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
