package activity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/rbac"
	"github.com/nou-pos/nou/internal/shared"
)

type timelineService interface {
	List(ctx context.Context, scope shared.Scope, f ListFilter) (Result, error)
}

// Handler serves the activity timeline.
type Handler struct {
	logger  *slog.Logger
	service timelineService
	rbac    rbac.Middleware
}

// NewHandler constructs the activity handler.
func NewHandler(logger *slog.Logger, service timelineService, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermActivityView))
		r.Get("/", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		EntityType: strings.TrimSpace(q.Get("entity_type")),
		Action:     strings.TrimSpace(q.Get("action")),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("per_page"))
	if raw := q.Get("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid branch_id")
			return
		}
		filter.BranchID = &id
	}
	result, err := h.service.List(r.Context(), scope, filter)
	if err != nil {
		h.logger.Error("list activities", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
