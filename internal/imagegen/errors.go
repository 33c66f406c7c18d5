package imagegen

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindAssetUnavailable    Kind = "asset_unavailable"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindNoImageReturned     Kind = "no_image_returned"
	KindInternal            Kind = "internal_error"
)

// HTTPStatus maps the kind onto the status returned to the browser. Only
// invalid input is the caller's fault.
func (k Kind) HTTPStatus() int {
	if k == KindInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var (
	// ErrMissingCredentials is wrapped by providers configured without an API key.
	ErrMissingCredentials = errors.New("imagegen: provider credentials are not configured")
	// ErrMalformedResponse is wrapped by providers that received an undecodable payload.
	ErrMalformedResponse = errors.New("imagegen: malformed provider response")
)

// Error is returned by Pipeline.Generate for every failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown to the visitor.
func (e *Error) UserMessage() string {
	if e.Kind == KindInternal && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// KindOf extracts the failure kind. Errors that did not come from the
// pipeline are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindInternal
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
