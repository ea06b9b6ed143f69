package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Business logic errors
	ErrCodePortfolioNotFound   ErrorCode = "PORTFOLIO_NOT_FOUND"
	ErrCodeTransactionNotFound ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrCodeInstrumentNotFound  ErrorCode = "INSTRUMENT_NOT_FOUND"
	ErrCodeBacktestNotFound    ErrorCode = "BACKTEST_NOT_FOUND"
	ErrCodeTransactionVoid     ErrorCode = "TRANSACTION_ALREADY_VOID"
	ErrCodeUnbalancedLegs      ErrorCode = "INVALID_TRANSACTION_LEGS"
	ErrCodeInvalidTargets      ErrorCode = "INVALID_TARGET_WEIGHTS"
	ErrCodePriceUnavailable    ErrorCode = "PRICE_UNAVAILABLE"
	ErrCodeSimulationFailure   ErrorCode = "SIMULATION_FAILURE"

	// System errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a standardized error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: httpStatusFor(code),
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: httpStatusFor(code),
		Details:    map[string]interface{}{"original_error": err.Error()},
	}
}

// AddDetail adds a detail to the error
func (e *AppError) AddDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// As unwraps err into an *AppError, if it is one.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func httpStatusFor(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeUnbalancedLegs, ErrCodeInvalidTargets:
		return http.StatusBadRequest
	case ErrCodePortfolioNotFound, ErrCodeTransactionNotFound,
		ErrCodeInstrumentNotFound, ErrCodeBacktestNotFound:
		return http.StatusNotFound
	case ErrCodeTransactionVoid:
		return http.StatusConflict
	case ErrCodePriceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeSimulationFailure:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

func NotFound(resource string) *AppError {
	code := ErrCodePortfolioNotFound
	switch resource {
	case "transaction":
		code = ErrCodeTransactionNotFound
	case "instrument":
		code = ErrCodeInstrumentNotFound
	case "backtest":
		code = ErrCodeBacktestNotFound
	}
	return New(code, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func UnbalancedLegs(message string) *AppError {
	return New(ErrCodeUnbalancedLegs, message)
}

func PriceUnavailable(instrumentID string) *AppError {
	return New(ErrCodePriceUnavailable, fmt.Sprintf("no price available for %s", instrumentID)).
		AddDetail("instrument_id", instrumentID)
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}
