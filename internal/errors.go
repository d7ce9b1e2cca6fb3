package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidQuantity     ErrorCode = "INVALID_QUANTITY"
	ErrCodeNonPositiveQuantity ErrorCode = "NON_POSITIVE_QUANTITY"
	ErrCodeQuantityTooLarge    ErrorCode = "QUANTITY_TOO_LARGE"
	ErrCodeInvalidUnit         ErrorCode = "INVALID_UNIT"
	ErrCodeMissingItem         ErrorCode = "MISSING_ITEM"
	ErrCodeMissingReason       ErrorCode = "MISSING_REASON"

	ErrCodeRequestNotFound    ErrorCode = "REQUEST_NOT_FOUND"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeStaleState         ErrorCode = "STALE_STATE"
	ErrCodeUnauthorizedAccess ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeCannotModify       ErrorCode = "CANNOT_MODIFY_REQUEST"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	ErrCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrCodeSupervisorCycle ErrorCode = "SUPERVISOR_CYCLE"
	ErrCodeGroupNotEmpty   ErrorCode = "GROUP_NOT_EMPTY"
	ErrCodeGroupNotFound   ErrorCode = "GROUP_NOT_FOUND"
	ErrCodeOwnWorksite     ErrorCode = "OWN_WORKSITE"
	ErrCodeWorksiteMissing ErrorCode = "WORKSITE_NOT_FOUND"

	ErrCodeDocumentNotFound      ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeDocumentNotUploadable ErrorCode = "DOCUMENT_NOT_UPLOADABLE"
	ErrCodeUploadNotConfirmed    ErrorCode = "UPLOAD_NOT_CONFIRMED"
	ErrCodeStorageUnavailable    ErrorCode = "STORAGE_UNAVAILABLE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// FieldMap flattens the errors into a field -> first violated rule mapping so
// callers can highlight the offending field.
func (v ValidationErrors) FieldMap() map[string]string {
	fields := make(map[string]string, len(v.Errors))
	for _, e := range v.Errors {
		if _, seen := fields[e.Field]; !seen {
			fields[e.Field] = e.Message
		}
	}
	return fields
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewInvalidTransitionError names the current status and the attempted action,
// per the workflow contract: rejected transitions never mutate state.
func NewInvalidTransitionError(currentStatus, action string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeInvalidTransition,
		Message:    fmt.Sprintf("cannot %s a request in %s status", action, currentStatus),
		StatusCode: http.StatusBadRequest,
	}
}

// NewStaleStateError reports that another actor moved the request between the
// caller's read and write. The caller should refresh and re-evaluate.
func NewStaleStateError(expectedStatus, action string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       ErrCodeStaleState,
		Message:    fmt.Sprintf("request is no longer in %s status; refresh before retrying %s", expectedStatus, action),
		StatusCode: http.StatusConflict,
	}
}

var (
	ErrRequestNotFound    = NewNotFoundError("Request not found", ErrCodeRequestNotFound)
	ErrUnauthorizedAccess = NewForbiddenError("unauthorized access to request", ErrCodeUnauthorizedAccess)
	ErrCannotModify       = NewValidationError("Cannot modify request in current status", ErrCodeCannotModify)
	ErrMissingReason      = NewValidationFieldError("notes", "notes are required for this action", ErrCodeMissingReason)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid username or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)

	ErrUserNotFound    = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrSupervisorCycle = NewConflictError("supervisor assignment would create a cycle", ErrCodeSupervisorCycle)
	ErrGroupNotEmpty   = NewConflictError("group still has members", ErrCodeGroupNotEmpty)
	ErrOwnWorksite     = NewForbiddenError("administrators may not delete their own worksite", ErrCodeOwnWorksite)

	ErrDocumentNotFound   = NewNotFoundError("Document not found", ErrCodeDocumentNotFound)
	ErrUploadNotConfirmed = NewValidationError("file not found in storage; document record removed", ErrCodeUploadNotConfirmed)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
