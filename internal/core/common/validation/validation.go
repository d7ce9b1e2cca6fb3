package validation

import (
	"fmt"
	"strings"

	errors "github.com/frahmantamala/procurement-management/internal"
	"github.com/shopspring/decimal"
)

type ValidatorFunc func(interface{}) *errors.ValidationError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]*FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := &FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return fv
}

// Required fails when a string value is empty after trimming.
func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return &errors.ValidationError{
					Field:   fv.FieldName,
					Message: fmt.Sprintf("%s is required", fv.FieldName),
					Code:    string(errors.ErrCodeValidationFailed),
				}
			}
		case *string:
			if v == nil || strings.TrimSpace(*v) == "" {
				return &errors.ValidationError{
					Field:   fv.FieldName,
					Message: fmt.Sprintf("%s is required", fv.FieldName),
					Code:    string(errors.ErrCodeValidationFailed),
				}
			}
		}
		return nil
	})
	return fv
}

// RequiredCode behaves like Required but tags the violation with a specific
// error code instead of the generic one.
func (fv *FieldValidator) RequiredCode(code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		if v, ok := value.(string); ok && strings.TrimSpace(v) == "" {
			return &errors.ValidationError{
				Field:   fv.FieldName,
				Message: fmt.Sprintf("%s is required", fv.FieldName),
				Code:    string(code),
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		if v, ok := value.(string); ok && len(v) > max {
			return &errors.ValidationError{
				Field:   fv.FieldName,
				Message: fmt.Sprintf("%s must be at most %d characters", fv.FieldName, max),
				Code:    string(errors.ErrCodeValidationFailed),
			}
		}
		return nil
	})
	return fv
}

// OneOf fails when a string value is not among the allowed set. Unknown values
// are rejected, never coerced.
func (fv *FieldValidator) OneOf(allowed []string, code errors.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		v, ok := value.(string)
		if !ok {
			return nil
		}
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return &errors.ValidationError{
			Field:   fv.FieldName,
			Message: fmt.Sprintf("%s must be one of: %s", fv.FieldName, strings.Join(allowed, ", ")),
			Code:    string(code),
		}
	})
	return fv
}

// PositiveDecimal parses a decimal string and enforces 0 < value <= max.
// Each violation carries its own error code so callers can distinguish
// unparseable, non-positive and oversized quantities.
func (fv *FieldValidator) PositiveDecimal(max decimal.Decimal) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.ValidationError {
		raw, ok := value.(string)
		if !ok {
			return nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return &errors.ValidationError{
				Field:   fv.FieldName,
				Message: fmt.Sprintf("%s must be a number", fv.FieldName),
				Code:    string(errors.ErrCodeInvalidQuantity),
			}
		}
		if d.LessThanOrEqual(decimal.Zero) {
			return &errors.ValidationError{
				Field:   fv.FieldName,
				Message: fmt.Sprintf("%s must be greater than zero", fv.FieldName),
				Code:    string(errors.ErrCodeNonPositiveQuantity),
			}
		}
		if d.GreaterThan(max) {
			return &errors.ValidationError{
				Field:   fv.FieldName,
				Message: fmt.Sprintf("%s must not exceed %s", fv.FieldName, max.String()),
				Code:    string(errors.ErrCodeQuantityTooLarge),
			}
		}
		return nil
	})
	return fv
}

// Validate runs all field validators and returns a single AppError carrying
// the per-field violations, or nil when everything passes. Only the first
// violated rule per field is reported.
func (v *ValidationBuilder) Validate() *errors.AppError {
	var violations []errors.ValidationError
	for _, fv := range v.fields {
		for _, check := range fv.Validators {
			if verr := check(fv.Value); verr != nil {
				violations = append(violations, *verr)
				break
			}
		}
	}

	if len(violations) == 0 {
		return nil
	}

	return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
		WithDetails(errors.ValidationErrors{Errors: violations})
}
