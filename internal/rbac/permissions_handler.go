package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/shared"
)

// PermissionsHandler exposes the permission catalog and the caller's grants.
type PermissionsHandler struct {
	service *Service
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(service *Service) *PermissionsHandler {
	return &PermissionsHandler{service: service}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
	r.Get("/mine", h.myPermissions)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": h.service.ListPermissions()})
}

func (h *PermissionsHandler) myPermissions(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        scope.Role,
		"permissions": h.service.EffectivePermissions(scope.Role),
	})
}
