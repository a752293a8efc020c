package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
// It must run after the tenancy scope middleware.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard("rbac require any", normalized, hasAnyPermission)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard("rbac require all", normalized, hasAllPermissions)
}

func (m Middleware) guard(op string, required []string, check func(granted, required []string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			scope, ok := shared.ScopeFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if check(m.Service.EffectivePermissions(scope.Role), required) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Warn(op+" denied",
					slog.String("user_id", scope.UserID.String()),
					slog.String("role", string(scope.Role)),
					slog.String("required", strings.Join(required, ",")),
				)
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
