package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Parameter validation errors
	ErrInvalidK              = errors.New("invalid k: must be at least 1")
	ErrInvalidDepth          = errors.New("invalid generalization depth: must be non-negative")
	ErrInvalidBounds         = errors.New("invalid bounds: lower must not exceed upper")
	ErrInvalidEpsilon        = errors.New("invalid epsilon: must be strictly positive and finite")
	ErrInvalidSensitivity    = errors.New("invalid sensitivity: must be strictly positive and finite")
	ErrInvalidTaxonomyLevel  = errors.New("invalid taxonomy level: exceeds tree height")
	ErrEmptyQuasiIdentifiers = errors.New("quasi-identifier set must be non-empty")
	ErrUnknownColumn         = errors.New("column not present in dataset schema")
	ErrSchemaMismatch        = errors.New("row does not conform to dataset schema")

	// Sensitivity errors
	ErrUndeclaredSensitivity = errors.New("sensitivity not declared for query kind")

	// Search results
	ErrGeneralizationNotFound = errors.New("no generalization meets the target group size")

	// Budget errors
	ErrBudgetExceeded = errors.New("privacy budget exceeded")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypePrivacy       ErrorType = "privacy"
	ErrorTypeSearch        ErrorType = "search"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeInternal      ErrorType = "internal"
)

// Error codes for different error scenarios
const (
	CodeInvalidParameter      = "INVALID_PARAMETER"
	CodeUndeclaredSensitivity = "UNDECLARED_SENSITIVITY"
	CodeNotFound              = "NOT_FOUND"
	CodeBudgetExceeded        = "BUDGET_EXCEEDED"
	CodeInvalidConfiguration  = "INVALID_CONFIGURATION"
	CodeInternalError         = "INTERNAL_ERROR"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewInvalidParameter creates a parameter validation error. These are always
// surfaced to the caller; parameters are never silently clamped, since that
// would misrepresent the privacy guarantee actually delivered.
func NewInvalidParameter(message string) *AppError {
	return NewAppError(ErrorTypeValidation, CodeInvalidParameter, message)
}

// NewUndeclaredSensitivity creates an error for a query kind whose sensitivity
// has not been declared. The analyzer refuses to guess.
func NewUndeclaredSensitivity(kind string) *AppError {
	return WrapError(ErrUndeclaredSensitivity, ErrorTypePrivacy, CodeUndeclaredSensitivity,
		fmt.Sprintf("no declared sensitivity for query kind %q", kind))
}

// NewNotFound creates the negative result of an exhausted generalization
// search. It is a normal outcome the caller must plan for, not a failure of
// the engine.
func NewNotFound(message string) *AppError {
	return WrapError(ErrGeneralizationNotFound, ErrorTypeSearch, CodeNotFound, message)
}

// NewBudgetExceeded creates an error for a charge that would push the
// accountant past its ceiling.
func NewBudgetExceeded(message string) *AppError {
	return WrapError(ErrBudgetExceeded, ErrorTypePrivacy, CodeBudgetExceeded, message)
}

// NewConfigurationError creates a configuration loading/validation error
func NewConfigurationError(message string) *AppError {
	return NewAppError(ErrorTypeConfiguration, CodeInvalidConfiguration, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, CodeInternalError, message)
}

// IsInvalidParameter reports whether err is a parameter validation error.
func IsInvalidParameter(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeInvalidParameter
	}
	return false
}

// IsNotFound reports whether err is the search's negative result.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGeneralizationNotFound)
}

// IsBudgetExceeded reports whether err is a budget ceiling rejection.
func IsBudgetExceeded(err error) bool {
	return errors.Is(err, ErrBudgetExceeded)
}

// IsUndeclaredSensitivity reports whether err is a refusal to infer sensitivity.
func IsUndeclaredSensitivity(err error) bool {
	return errors.Is(err, ErrUndeclaredSensitivity)
}
