package httpx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nou-pos/nou/internal/shared"
)

// ValidateStruct runs struct tags and folds field failures into a single ErrValidation.
func ValidateStruct(v *validator.Validate, target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(parts, ", "))
}
