package warranty

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/rbac"
	"github.com/nou-pos/nou/internal/shared"
)

type lifecycleService interface {
	Create(ctx context.Context, scope shared.Scope, in CreateInput) (Warranty, error)
	Approve(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error)
	Reject(ctx context.Context, scope shared.Scope, id uuid.UUID, reason string) (Warranty, error)
	Process(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error)
	Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (Detail, error)
	List(ctx context.Context, scope shared.Scope, filter ListFilter) (ListResult, error)
}

// Handler exposes warranty endpoints.
type Handler struct {
	logger   *slog.Logger
	service  lifecycleService
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds the warranty handler.
func NewHandler(logger *slog.Logger, service lifecycleService, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers warranty routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermWarrantyView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermWarrantyCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermWarrantyApprove))
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermWarrantyProcess))
		r.Post("/{id}/process", h.process)
	})
}

type createRequest struct {
	SaleID               *uuid.UUID `json:"sale_id"`
	SaleItemID           *uuid.UUID `json:"sale_item_id"`
	CustomerID           uuid.UUID  `json:"customer_id" validate:"required"`
	ProductID            uuid.UUID  `json:"product_id" validate:"required"`
	ReplacementProductID *uuid.UUID `json:"replacement_product_id"`
	Quantity             int        `json:"quantity" validate:"required,min=1"`
	WarrantyType         string     `json:"warranty_type" validate:"required,oneof=exchange refund repair"`
	Reason               string     `json:"reason" validate:"required,max=500"`
}

type rejectRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

func scopeOrFail(w http.ResponseWriter, r *http.Request) (shared.Scope, bool) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
	}
	return scope, ok
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid warranty id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrFail(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status")), Type: Type(q.Get("type"))}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("per_page"))
	result, err := h.service.List(r.Context(), scope, filter)
	if err != nil {
		h.fail(w, "list warranties", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrFail(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.Get(r.Context(), scope, id)
	if err != nil {
		h.fail(w, "get warranty", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrFail(w, r)
	if !ok {
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validate, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), scope, CreateInput{
		SaleID:               req.SaleID,
		SaleItemID:           req.SaleItemID,
		CustomerID:           req.CustomerID,
		ProductID:            req.ProductID,
		ReplacementProductID: req.ReplacementProductID,
		Quantity:             req.Quantity,
		Type:                 Type(req.WarrantyType),
		Reason:               req.Reason,
	})
	if err != nil {
		h.fail(w, "create warranty", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve warranty", func(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error) {
		return h.service.Approve(ctx, scope, id)
	})
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "process warranty", func(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error) {
		return h.service.Process(ctx, scope, id)
	})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.transition(w, r, "reject warranty", func(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error) {
		return h.service.Reject(ctx, scope, id, req.RejectionReason)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, shared.Scope, uuid.UUID) (Warranty, error)) {
	scope, ok := scopeOrFail(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	updated, err := fn(r.Context(), scope, id)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
