package fastbill

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingCredentials = errors.New("missing_credentials")

// TransportError means no response body is available: the credentials were
// unset or the HTTP call itself did not complete.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fastbill %s: transport: %v", serviceName(e.Service), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError means a body was received but is not a usable response document.
type ParseError struct {
	Service string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fastbill %s: parse response: %v", serviceName(e.Service), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// APIError is a well-formed response carrying an ERRORS element.
type APIError struct {
	Service  string
	Messages []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fastbill %s: %s", serviceName(e.Service), e.Message())
}

// Message joins the error texts reported by the API.
func (e *APIError) Message() string {
	return strings.Join(e.Messages, "; ")
}

func serviceName(service string) string {
	if service == "" {
		return "request"
	}
	return service
}
