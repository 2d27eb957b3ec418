package thoughtspace

import (
	"errors"
	"fmt"
)

// Stable machine-readable error codes. The transport layers map these to
// protocol status codes 1:1.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidThoughtType = "INVALID_THOUGHT_TYPE"
	CodeMissingSourceIDs   = "MISSING_SOURCE_IDS"
	CodeSourceNotFound     = "SOURCE_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeEmbeddingFailed    = "EMBEDDING_FAILED"
	CodeStoreError         = "STORE_ERROR"
)

// Error is an engine error carrying a stable code plus a human-readable
// message.
type Error struct {
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// NewError creates an engine error with the given code.
func NewError(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an underlying error with an engine code.
func WrapError(code string, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), err: err}
}

// ErrorCode extracts the engine code from err, or CodeStoreError when err is
// not an engine error.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStoreError
}

// IsValidation reports whether err is a client-side input error that should
// never be retried.
func IsValidation(err error) bool {
	switch ErrorCode(err) {
	case CodeValidation, CodeInvalidThoughtType, CodeMissingSourceIDs:
		return true
	}
	return false
}

// IsNotFound reports whether err references a thought id that does not exist.
func IsNotFound(err error) bool {
	code := ErrorCode(err)
	return code == CodeNotFound || code == CodeSourceNotFound
}
