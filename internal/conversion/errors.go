package conversion

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps failures to reach the service or read its reply.
	ErrTransport = errors.New("conversion service unreachable")
	// ErrMalformedResponse reports a body that does not match the
	// operation's response kind.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	// Detail is the service-provided explanation, if it sent one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("conversion service returned %d %s: %s", e.Code, http.StatusText(e.Code), e.Detail)
	}

	return fmt.Sprintf("conversion service returned %d %s", e.Code, http.StatusText(e.Code))
}

// ClientError reports whether the service rejected the request itself
// (4xx) rather than failing to process it.
func (e *StatusError) ClientError() bool {
	return e.Code >= 400 && e.Code < 500
}
