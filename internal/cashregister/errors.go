package cashregister

import "fmt"

// ErrorCode classifies domain rejections. Handlers map codes to HTTP status.
type ErrorCode string

const (
	CodeRegisterUnavailable ErrorCode = "REGISTER_UNAVAILABLE"
	CodeInvalidState        ErrorCode = "INVALID_STATE"
	CodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeForbidden           ErrorCode = "FORBIDDEN"
)

// DomainError is a rejected request. Nothing has been written when one is
// returned.
type DomainError struct {
	Code    ErrorCode
	Field   string
	Message string
}

func (e DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// Is matches on code, so errors.Is(err, ErrInvalidState) holds for any
// InvalidState error regardless of message.
func (e DomainError) Is(target error) bool {
	t, ok := target.(DomainError)
	return ok && t.Code == e.Code
}

var (
	ErrRegisterUnavailable = DomainError{Code: CodeRegisterUnavailable, Message: "register unavailable"}
	ErrInvalidState        = DomainError{Code: CodeInvalidState, Message: "invalid state"}
	ErrInvalidAmount       = DomainError{Code: CodeInvalidAmount, Message: "invalid amount"}
	ErrInvalidInput        = DomainError{Code: CodeInvalidInput, Message: "invalid input"}
	ErrNotFound            = DomainError{Code: CodeNotFound, Message: "not found"}
	ErrForbidden           = DomainError{Code: CodeForbidden, Message: "forbidden"}
)

func newError(code ErrorCode, field, msg string) DomainError {
	return DomainError{Code: code, Field: field, Message: msg}
}

func notFound(what string) DomainError {
	return newError(CodeNotFound, "", what+" not found")
}
