// Package apperr maps domain failures onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindConflict
	KindUpstream
)

// Status returns the HTTP status for a kind. Conflicts are reported as 400
// so existing clients that check for "bad request" on duplicate e-mails keep working.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindNotFound:
		return "NotFound"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindForbidden:
		return "Forbidden"
	case KindConflict:
		return "Conflict"
	case KindUpstream:
		return "UpstreamError"
	default:
		return "InternalError"
	}
}

// Error is a classified failure. Message is safe to show to clients;
// Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Code so sentinels such as ErrInvalidSignature work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code != "" && e.Code == t.Code
}

// Body is the JSON shape of every error response.
type Body struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Response converts err into a status and body. Unclassified errors become
// a generic internal error without leaking their text.
func Response(err error) (int, Body) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, Body{Message: "Internal server error"}
	}
	body := Body{Message: e.Message, Code: e.Code}
	if e.Kind == KindValidation || e.Kind == KindUpstream {
		body.Details = e.Details
	}
	if body.Message == "" {
		body.Message = http.StatusText(e.Kind.Status())
	}
	return e.Kind.Status(), body
}

func Validation(msg, details string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Upstream(msg string, err error) *Error {
	e := &Error{Kind: KindUpstream, Message: msg, Err: err}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// Payment gateway sentinels.
var (
	ErrGatewayUnavailable = &Error{Kind: KindUpstream, Code: "PaymentGatewayUnavailable", Message: "Payment gateway is not configured"}
	ErrInvalidAmount      = &Error{Kind: KindValidation, Code: "InvalidAmount", Message: "Valid amount is required"}
	ErrInvalidSignature   = &Error{Kind: KindValidation, Code: "InvalidSignature", Message: "Invalid signature"}
)
