package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/shared"
)

type authService interface {
	Authenticate(ctx context.Context, email, password string) (Session, error)
	Verify(ctx context.Context, raw string) (shared.Principal, error)
	SignOut(ctx context.Context, principal shared.Principal) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   authService
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service authService) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(RequireToken(h.service, h.logger))
		r.Post("/logout", h.handleLogout)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.Email = NormalizeEmail(req.Email)
	if err := httpx.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("login failed", slog.String("email", NormalizeEmail(req.Email)), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	if err := h.service.SignOut(r.Context(), principal); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
