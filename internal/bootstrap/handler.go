package bootstrap

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/auth"
	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/shared"
	"github.com/nou-pos/nou/internal/tenancy"
)

// SecretHeader carries the bootstrap secret for server-to-server calls.
const SecretHeader = "X-Bootstrap-Secret"

type accountService interface {
	CreateUser(ctx context.Context, caller Caller, in CreateUserInput) (CreatedUser, error)
	CreateOrganization(ctx context.Context, principal shared.Principal, in CreateOrganizationInput) (CreatedOrganization, error)
}

type tokenVerifier interface {
	Verify(ctx context.Context, raw string) (shared.Principal, error)
}

// Handler serves /functions/*.
type Handler struct {
	logger   *slog.Logger
	service  accountService
	tokens   tokenVerifier
	secret   string
	validate *validator.Validate
}

// NewHandler builds the bootstrap handler. An empty secret disables the
// secret path entirely.
func NewHandler(logger *slog.Logger, service accountService, tokens tokenVerifier, secret string) *Handler {
	return &Handler{logger: logger, service: service, tokens: tokens, secret: secret, validate: validator.New()}
}

// MountRoutes registers the elevated endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/create-user", h.createUser)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireToken(h.tokens, h.logger))
		r.Post("/create-organization", h.createOrganization)
	})
}

type createUserRequest struct {
	Email          string      `json:"email" validate:"required,email"`
	Password       string      `json:"password" validate:"required,min=8,max=72"`
	Name           string      `json:"name" validate:"required,max=120"`
	OrganizationID *uuid.UUID  `json:"organization_id"`
	Role           string      `json:"role" validate:"omitempty,oneof=owner admin cashier delivery"`
	BranchIDs      []uuid.UUID `json:"branch_ids"`
}

type createOrganizationRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) caller(r *http.Request) (Caller, error) {
	var c Caller
	if h.secret != "" {
		provided := r.Header.Get(SecretHeader)
		c.SecretOK = provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) == 1
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") || h.tokens == nil {
		return c, nil
	}
	principal, err := h.tokens.Verify(r.Context(), strings.TrimSpace(header[len("bearer "):]))
	if err != nil {
		return Caller{}, err
	}
	c.Principal = &principal
	return c, nil
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if err := httpx.ValidateStruct(h.validate, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	caller, err := h.caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateUser(r.Context(), caller, CreateUserInput{
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		OrganizationID: req.OrganizationID,
		Role:           shared.Role(req.Role),
		BranchIDs:      req.BranchIDs,
	})
	if err != nil {
		h.logger.Warn("create user", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req createOrganizationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if err := httpx.ValidateStruct(h.validate, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateOrganization(r.Context(), principal, CreateOrganizationInput{
		Name:  req.Name,
		Email: req.Email,
		Plan:  tenancy.PlanFree,
	})
	if err != nil {
		h.logger.Warn("create organization", slog.String("user_id", principal.UserID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}
