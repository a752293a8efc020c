package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/shared"
)

type verifier interface {
	Verify(ctx context.Context, raw string) (shared.Principal, error)
}

// RequireToken rejects requests without a valid bearer token and stores the
// principal in the request context.
func RequireToken(v verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			principal, err := v.Verify(r.Context(), raw)
			if err != nil {
				if !errors.Is(err, shared.ErrUnauthorized) && logger != nil {
					logger.Error("verify token", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
