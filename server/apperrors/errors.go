package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure independently of how it is transported.
type Kind string

const (
	BadRequest         Kind = "bad_request"
	ValidationError    Kind = "validation_error"
	NotFound           Kind = "not_found"
	Rejected           Kind = "rejected"
	ExtractionFailed   Kind = "extraction_failed"
	StorageUnavailable Kind = "storage_unavailable"
	NotConfigured      Kind = "not_configured"
	Internal           Kind = "internal"
)

// GenericFailureMessage is the only text clients see for unexpected failures.
const GenericFailureMessage = "Processing failed"

// Error is a classified failure. Message and Details are safe to show to a
// client; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, &Error{Kind: k}) match any error of kind k.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails returns a copy of e carrying client-facing details.
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// From returns err as an *Error. Unclassified errors become Internal with
// the generic failure message.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	return Wrap(Internal, err, GenericFailureMessage)
}

// HTTPStatus maps a kind onto the status code used by the HTTP surface.
func HTTPStatus(kind Kind) int {
	switch kind {
	case BadRequest, ValidationError, Rejected, NotConfigured:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
