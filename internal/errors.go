package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeForbidden   ErrorType = "FORBIDDEN"
	ErrorTypeConflict    ErrorType = "CONFLICT"
	ErrorTypeUnsupported ErrorType = "UNSUPPORTED"
	ErrorTypeInternal    ErrorType = "INTERNAL_ERROR"
	ErrorTypeDependency  ErrorType = "DEPENDENCY_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrCodeAmountOutOfRange    ErrorCode = "AMOUNT_OUT_OF_RANGE"
	ErrCodeInvalidCurrency     ErrorCode = "INVALID_CURRENCY"
	ErrCodeInvalidAction       ErrorCode = "INVALID_ACTION"
	ErrCodeMethodNotConfigured ErrorCode = "METHOD_NOT_CONFIGURED"
	ErrCodeBankDetailsRequired ErrorCode = "BANK_DETAILS_REQUIRED"

	ErrCodePaymentNotFound  ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodeMerchantNotFound ErrorCode = "MERCHANT_NOT_FOUND"
	ErrCodeMerchantInactive ErrorCode = "MERCHANT_INACTIVE"
	ErrCodeAlreadyProcessed ErrorCode = "ALREADY_PROCESSED"
	ErrCodeForbiddenAccess  ErrorCode = "FORBIDDEN_ACCESS"

	ErrCodeLinkNotFound   ErrorCode = "LINK_NOT_FOUND"
	ErrCodeLinkInactive   ErrorCode = "LINK_INACTIVE"
	ErrCodeLinkExpired    ErrorCode = "LINK_EXPIRED"
	ErrCodeLinkUsageLimit ErrorCode = "LINK_USAGE_LIMIT"

	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeParseFailed       ErrorCode = "PARSE_FAILED"
	ErrCodeAmbiguousMatch    ErrorCode = "AMBIGUOUS_MATCH"
	ErrCodeCodeExhausted     ErrorCode = "CODE_EXHAUSTED"

	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidAPIKey      ErrorCode = "INVALID_API_KEY"

	ErrCodeDependencyFailure ErrorCode = "DEPENDENCY_FAILURE"
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

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewConflictError reports a state-machine precondition violation. Callers
// must never retry these automatically.
func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewUnsupportedFormatError(contentType string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnsupported,
		Code:       ErrCodeUnsupportedFormat,
		Message:    fmt.Sprintf("unsupported statement format: %s", contentType),
		StatusCode: http.StatusUnsupportedMediaType,
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

// NewDependencyError wraps a storage or downstream failure. This is the only
// error class eligible for retry at the store boundary.
func NewDependencyError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDependency,
		Code:       ErrCodeDependencyFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrPaymentNotFound  = NewNotFoundError("Payment not found", ErrCodePaymentNotFound)
	ErrMerchantNotFound = NewNotFoundError("Merchant not found", ErrCodeMerchantNotFound)
	ErrMerchantInactive = NewForbiddenError("Merchant account is inactive", ErrCodeMerchantInactive)
	ErrAlreadyProcessed = NewConflictError("Payment has already been processed", ErrCodeAlreadyProcessed)
	ErrForbiddenAccess  = NewForbiddenError("Not authorized to access this transaction", ErrCodeForbiddenAccess)

	ErrLinkNotFound   = NewNotFoundError("Payment link not found", ErrCodeLinkNotFound)
	ErrLinkInactive   = NewValidationError("This payment link is no longer active", ErrCodeLinkInactive)
	ErrLinkExpired    = NewValidationError("This payment link has expired", ErrCodeLinkExpired)
	ErrLinkUsageLimit = NewValidationError("This payment link has reached its maximum usage limit", ErrCodeLinkUsageLimit)

	ErrAmbiguousMatch = NewConflictError("Multiple pending payments match this transaction", ErrCodeAmbiguousMatch)

	ErrInvalidToken  = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrInvalidAPIKey = NewUnauthorizedError("Invalid API key", ErrCodeInvalidAPIKey)
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
