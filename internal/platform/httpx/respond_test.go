package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nou-pos/nou/internal/shared"
)

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err      error
		status   int
		redirect string
	}{
		{err: fmt.Errorf("warranty: %w", shared.ErrValidation), status: http.StatusBadRequest},
		{err: fmt.Errorf("closing: %w", shared.ErrMissingReason), status: http.StatusUnprocessableEntity},
		{err: fmt.Errorf("warranty: %w", shared.ErrInvalidTransition), status: http.StatusConflict},
		{err: shared.ErrNoOrganization, status: http.StatusUnauthorized, redirect: RecoveryPath},
		{err: shared.ErrNoBranch, status: http.StatusConflict, redirect: OnboardingPath},
		{err: shared.ErrNotFound, status: http.StatusNotFound},
		{err: shared.ErrDuplicate, status: http.StatusConflict},
		{err: shared.ErrForbidden, status: http.StatusForbidden},
		{err: shared.ErrInvalidCredentials, status: http.StatusUnauthorized},
		{err: fmt.Errorf("db: %w: timeout", shared.ErrBackend), status: http.StatusBadGateway},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, tc.status, body.Status)
		assert.Equal(t, tc.redirect, body.Redirect)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := DecodeJSON(httptest.NewRecorder(), req, &target)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Centro"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &target))
	require.Equal(t, "Centro", target.Name)
}

func TestValidateStructFoldsFieldErrors(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
		Name  string `validate:"required"`
	}
	err := ValidateStruct(validator.New(), form{Email: "nope"})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "email email")
	require.Contains(t, err.Error(), "name required")
}
