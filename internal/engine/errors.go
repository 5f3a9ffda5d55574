package engine

import "fmt"

// Error codes surfaced by the engine. Callers branch on Code; no retries or
// silent recovery happen here.
const (
	CodeMissingArgument      = "MISSING_ARGUMENT"
	CodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	CodeConcurrencyViolation = "CONCURRENCY_VIOLATION"
	CodeIntegrityViolation   = "INTEGRITY_VIOLATION"

	CodeUnknownType      = "UNKNOWN_TYPE"
	CodeNotFound         = "NOT_FOUND"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUnauthorized     = "UNAUTHORIZED"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func MissingArgumentError(format string, args ...any) *AppError {
	return &AppError{Code: CodeMissingArgument, Status: 400, Message: fmt.Sprintf(format, args...)}
}

func UnsupportedOperationError(format string, args ...any) *AppError {
	return &AppError{Code: CodeUnsupportedOperation, Status: 400, Message: fmt.Sprintf(format, args...)}
}

func ConcurrencyViolationError(table string, affected int64) *AppError {
	return &AppError{
		Code:    CodeConcurrencyViolation,
		Status:  409,
		Message: fmt.Sprintf("write to %s affected %d rows, expected exactly 1", table, affected),
	}
}

func IntegrityViolationError(format string, args ...any) *AppError {
	return &AppError{Code: CodeIntegrityViolation, Status: 422, Message: fmt.Sprintf(format, args...)}
}

func UnknownTypeError(name string) *AppError {
	return &AppError{Code: CodeUnknownType, Status: 404, Message: fmt.Sprintf("Unknown request type: %s", name)}
}

func NotFoundError(model string, id any) *AppError {
	return &AppError{Code: CodeNotFound, Status: 404, Message: fmt.Sprintf("%s with id %v not found", model, id)}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    CodeValidationFailed,
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Status: 401, Message: msg}
}
