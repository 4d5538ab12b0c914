// Package domainerrors provides coded errors shared by all modules. Services
// return these so transport layers can translate consistently and callers can
// distinguish retryable failures from terminal ones.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Codes are stable API; messages are not.
type Code string

const (
	CodeNotFound              Code = "not_found"
	CodeConflict              Code = "conflict"
	CodeValidation            Code = "validation"
	CodeInvalidInput          Code = "invalid_input"
	CodeBadRequest            Code = "bad_request"
	CodeUnauthorized          Code = "unauthorized"
	CodeForbidden             Code = "forbidden"
	CodeInvariantViolation    Code = "invariant_violation"
	CodeTimeout               Code = "timeout"
	CodeInternal              Code = "internal"
	CodeLockedEvidence        Code = "locked_evidence"
	CodeNoEvidenceSelected    Code = "no_evidence_selected"
	CodeInvalidDocument       Code = "invalid_document"
	CodeRenderFailure         Code = "render_failure"
	CodeSerializationConflict Code = "serialization_conflict"
)

// Error is a coded domain error. It may wrap an underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a convenience alias for HasCode, matching the call style used in
// handlers.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Retryable reports whether the caller may safely resubmit the operation.
// Only serialization conflicts from the transactional store qualify.
func Retryable(err error) bool {
	return HasCode(err, CodeSerializationConflict)
}

// ToHTTPStatus maps a code to an HTTP status for the transport layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeLockedEvidence, CodeSerializationConflict:
		return http.StatusConflict
	case CodeValidation, CodeInvalidInput, CodeBadRequest, CodeNoEvidenceSelected, CodeInvalidDocument:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
