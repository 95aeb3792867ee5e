package api

import (
	"fmt"
	"net/http"
)

// TransportError means no usable response reached the client: connection
// refused, DNS failure, context cancellation, a broken body read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError means the server answered with a non-2xx status. Detail carries
// the server's own message when the body had one.
type HTTPError struct {
	Op     string
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	detail := e.Detail
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, detail)
}

// DecodeError means the server answered 2xx but the payload did not parse.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError is a client-side precondition failure. No request is
// issued when one is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
