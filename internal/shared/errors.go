package shared

import "errors"

var (
	// ErrValidation indicates a missing or malformed required field.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition indicates a state machine violation.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrMissingReason is returned when a non-zero difference lacks an explanation.
	ErrMissingReason = errors.New("difference reason required")
	// ErrNoOrganization indicates the principal is not bound to any organization.
	ErrNoOrganization = errors.New("no organization")
	// ErrNoBranch indicates the organization has no branch yet.
	ErrNoBranch = errors.New("no branch")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrBackend wraps failures of the data or storage collaborator.
	ErrBackend = errors.New("backend error")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrForbidden indicates the principal lacks access to the scope.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
