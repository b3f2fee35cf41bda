package models

import (
	"github.com/go-playground/validator/v10"

	domainerrors "zerodha-trader/internal/errors"
)

var validate = validator.New()

// NewValidationError constructs a domain validation error; re-exported here
// so artifact constructors in this package don't need to import the errors
// package under an alias at every call site.
func NewValidationError(field string, value interface{}, message string) error {
	return domainerrors.NewValidationError(field, value, message)
}

// NewRiskError constructs a domain risk-cap error.
func NewRiskError(rule string, current, limit float64, message string) error {
	return domainerrors.NewRiskError(rule, current, limit, message)
}

// validateStruct runs struct-tag validation and flattens the first failure
// into a ValidationError, matching the error shape the rest of the code
// returns from constructors.
func validateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return NewValidationError(fe.Field(), fe.Value(), fe.Tag())
		}
		return NewValidationError("", nil, err.Error())
	}
	return nil
}
