package tenancy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nou-pos/nou/internal/observability"
	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/shared"
)

// BranchHeader selects the operating branch for a request.
const BranchHeader = "X-Branch-ID"

type scopeResolver interface {
	ResolveScope(ctx context.Context, principal shared.Principal, requested uuid.UUID) (shared.Scope, error)
}

type organizationResolver interface {
	ResolveOrganizationScope(ctx context.Context, principal shared.Principal, requested uuid.UUID) (shared.Scope, error)
}

type resolveFunc func(ctx context.Context, principal shared.Principal, requested uuid.UUID) (shared.Scope, error)

type signOuter interface {
	SignOut(ctx context.Context, principal shared.Principal) error
}

// RequireScope resolves the tenant scope for the authenticated principal.
// Accounts without an organization have their token revoked before the
// request is rejected, so the client lands on the recovery screen.
func RequireScope(resolver scopeResolver, auth signOuter, logger *slog.Logger, metrics *observability.DomainMetrics) func(http.Handler) http.Handler {
	return scopeMiddleware(resolver.ResolveScope, auth, logger, metrics)
}

// RequireOrganizationScope is RequireScope for onboarding routes (profile,
// branches). An organization without branches passes with a branch-less
// scope instead of being redirected to onboarding.
func RequireOrganizationScope(resolver organizationResolver, auth signOuter, logger *slog.Logger, metrics *observability.DomainMetrics) func(http.Handler) http.Handler {
	return scopeMiddleware(resolver.ResolveOrganizationScope, auth, logger, metrics)
}

func scopeMiddleware(resolve resolveFunc, auth signOuter, logger *slog.Logger, metrics *observability.DomainMetrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			requested := uuid.Nil
			if raw := strings.TrimSpace(r.Header.Get(BranchHeader)); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+BranchHeader)
					return
				}
				requested = id
			}

			scope, err := resolve(r.Context(), principal, requested)
			switch {
			case err == nil:
			case errors.Is(err, shared.ErrNoOrganization):
				if auth != nil {
					if serr := auth.SignOut(r.Context(), principal); serr != nil {
						logger.Error("forced sign-out", slog.String("user_id", principal.UserID.String()), slog.Any("error", serr))
					}
				}
				metrics.ForcedSignOut()
				logger.Warn("account without organization", slog.String("user_id", principal.UserID.String()))
				httpx.RespondError(w, err)
				return
			default:
				if errors.Is(err, shared.ErrBackend) {
					logger.Error("resolve scope", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithScope(r.Context(), scope)))
		})
	}
}
