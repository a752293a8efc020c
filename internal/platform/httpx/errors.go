// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/nou-pos/nou/internal/shared"
)

// Client routes the UI follows for tenancy failures.
const (
	RecoveryPath   = "/recovery"
	OnboardingPath = "/onboarding"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrMissingReason):
		Problem(w, http.StatusUnprocessableEntity, "Difference Reason Required", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrNoOrganization):
		JSON(w, http.StatusUnauthorized, ProblemDetail{
			Title:    "No Organization",
			Status:   http.StatusUnauthorized,
			Detail:   "account is not linked to an organization",
			Redirect: RecoveryPath,
		})
	case errors.Is(err, shared.ErrNoBranch):
		JSON(w, http.StatusConflict, ProblemDetail{
			Title:    "No Branch",
			Status:   http.StatusConflict,
			Detail:   "organization has no branch yet",
			Redirect: OnboardingPath,
		})
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrBackend):
		Problem(w, http.StatusBadGateway, "Backend Error", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
