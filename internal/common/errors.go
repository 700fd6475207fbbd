package common

import (
	"errors"
	"fmt"
)

// Sentinels that callers match with errors.Is. ToStatus maps them to gRPC
// codes and the CLIs map ErrInvalidInput to exit status 2.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInternal         = errors.New("internal error")
	ErrDatabase         = errors.New("database error")
	ErrValidation       = errors.New("validation failed")
	ErrRateLimited      = errors.New("rate limited")
	ErrInsufficientText = errors.New("insufficient text extracted")
	ErrUnsupportedInput = errors.New("unsupported input")
)

// AppError carries a stable machine code (PDF_READ, LLM_PARSE, ...) next
// to a human message. Cause is usually one of the sentinels above,
// possibly joined with the underlying error.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func (e *AppError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Cause == nil {
		return msg
	}
	return msg + ": " + e.Cause.Error()
}

func (e *AppError) Unwrap() error { return e.Cause }

// WrapError prefixes err with message. A nil err stays nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorCode returns the code of the outermost AppError in err's chain,
// or "" when there is none.
func ErrorCode(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
