package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError carries both an operator-facing message and a safe user-facing one.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewValidationError reports malformed caller input: unsupported method,
// short reference, bad amount. No state was changed.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// NewNotFoundError reports an operation against a record that does not exist.
func NewNotFoundError(msg string) *AppError {
	return &AppError{
		Code:        "E110",
		Message:     msg,
		UserMessage: "Record not found",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// NewInvalidStateError reports an operation that is not legal for the record's
// current status, e.g. approving an already approved deposit.
func NewInvalidStateError(msg string) *AppError {
	return &AppError{
		Code:        "E120",
		Message:     msg,
		UserMessage: "Operation is not possible in the current state",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

// NewUnauthorizedError reports a missing or wrong operator token. The user
// message deliberately leaks nothing about record existence.
func NewUnauthorizedError() *AppError {
	return &AppError{
		Code:        "E130",
		Message:     "operator token missing or invalid",
		UserMessage: "Unauthorized",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

// NewDatabaseError wraps a storage failure.
func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("database error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewDeliveryError wraps a failed best-effort side effect such as a support
// channel notification. Delivery failures never roll back ledger changes.
func NewDeliveryError(target string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("delivery to %s failed", target),
		UserMessage: "Service is temporarily unavailable",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}
