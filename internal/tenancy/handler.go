package tenancy

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/platform/storage"
	"github.com/nou-pos/nou/internal/rbac"
	"github.com/nou-pos/nou/internal/shared"
)

type tenancyService interface {
	Me(ctx context.Context, scope shared.Scope) (Profile, error)
	ListBranches(ctx context.Context, scope shared.Scope) ([]Branch, error)
	CreateBranch(ctx context.Context, scope shared.Scope, in CreateBranchInput) (Branch, error)
	UploadLogo(ctx context.Context, scope shared.Scope, branchID uuid.UUID, contentType string, body io.Reader, size int64) (Branch, error)
}

// Handler serves the profile and branch endpoints.
type Handler struct {
	logger   *slog.Logger
	service  tenancyService
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler builds the tenancy handler.
func NewHandler(logger *slog.Logger, service tenancyService, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountMe registers GET /me on r.
func (h *Handler) MountMe(r chi.Router) {
	r.Get("/me", h.me)
}

// MountBranches registers branch routes.
func (h *Handler) MountBranches(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermBranchView, shared.PermBranchManage))
		r.Get("/", h.listBranches)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermBranchManage))
		r.Post("/", h.createBranch)
		r.Post("/{id}/logo", h.uploadLogo)
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
		return
	}
	profile, err := h.service.Me(r.Context(), scope)
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if h.rbac.Service != nil {
		profile.Permissions = h.rbac.Service.EffectivePermissions(scope.Role)
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
		return
	}
	branches, err := h.service.ListBranches(r.Context(), scope)
	if err != nil {
		h.logger.Error("list branches", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, branches)
}

type createBranchRequest struct {
	Name             string `json:"name" validate:"required,max=120"`
	TaxID            string `json:"tax_id" validate:"max=32"`
	Address          string `json:"address" validate:"max=255"`
	Phone            string `json:"phone" validate:"max=32"`
	IsVATResponsible bool   `json:"is_vat_responsible"`
}

func (h *Handler) createBranch(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
		return
	}
	var req createBranchRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validate, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	branch, err := h.service.CreateBranch(r.Context(), scope, CreateBranchInput{
		Name:             req.Name,
		TaxID:            req.TaxID,
		Address:          req.Address,
		Phone:            req.Phone,
		IsVATResponsible: req.IsVATResponsible,
	})
	if err != nil {
		h.logger.Warn("create branch", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, branch)
}

func (h *Handler) uploadLogo(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrNoOrganization)
		return
	}
	branchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid branch id")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxLogoSize+1<<16)
	if err := r.ParseMultipartForm(storage.MaxLogoSize); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "logo must be a multipart upload up to 2MB")
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "logo file required")
		return
	}
	defer file.Close()

	branch, err := h.service.UploadLogo(r.Context(), scope, branchID, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		h.logger.Warn("upload logo", slog.String("branch_id", branchID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, branch)
}
