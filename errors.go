package drs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failure to resolve or fetch a DRS object
type Kind int

// Failure kinds.  OK is the zero value and means no failure.
const (
	OK Kind = iota
	Unresolved
	BadRequest
	Unauthorized
	NotFound
	ServerError
	ProxyError
	Status
	MalformedResponse
	RegistryUnavailable
	Configuration
	Canceled
	Transport
)

var kindNames = [...]string{
	OK:                  "ok",
	Unresolved:          "unresolved",
	BadRequest:          "bad_request",
	Unauthorized:        "unauthorized",
	NotFound:            "not_found",
	ServerError:         "server_error",
	ProxyError:          "proxy_error",
	Status:              "status",
	MalformedResponse:   "malformed_response",
	RegistryUnavailable: "registry_unavailable",
	Configuration:       "configuration",
	Canceled:            "canceled",
	Transport:           "transport",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Describe gives the human readable classification used in diagnostics output
func (k Kind) Describe() string {
	switch k {
	case OK:
		return "Success"
	case Unresolved:
		return "prefix unrecognized"
	case BadRequest:
		return "request error"
	case Unauthorized:
		return "Unauthorized"
	case NotFound:
		return "id not found"
	case ServerError:
		return "server error - may be unauthorized"
	case ProxyError:
		return "proxy error 502"
	case MalformedResponse:
		return "malformed response"
	case Canceled:
		return "canceled"
	default:
		return "Failed"
	}
}

// KindForStatus maps an HTTP status code to a failure kind.  2xx codes map to OK.
func KindForStatus(code int) Kind {
	switch {
	case code >= 200 && code < 300:
		return OK
	case code == http.StatusBadRequest:
		return BadRequest
	case code == http.StatusUnauthorized:
		return Unauthorized
	case code == http.StatusNotFound:
		return NotFound
	case code == http.StatusInternalServerError:
		return ServerError
	case code == http.StatusBadGateway:
		return ProxyError
	default:
		return Status
	}
}

// ErrUnrecognized is the cause of every Unresolved error produced while
// dispatching.
var ErrUnrecognized = errors.New("prefix unrecognized")

// Error is a failure tagged with its Kind.  ID is the identifier being processed,
// if any, and Status the backend's HTTP status, if any.
type Error struct {
	Kind   Kind
	ID     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Status)
	}
	if e.ID != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.ID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

// Cause supports errors.Cause
func (e *Error) Cause() error { return e.Err }

// Unwrap supports errors.Is and errors.As
func (e *Error) Unwrap() error { return e.Err }

// Errorf creates a tagged error with a formatted message
func Errorf(kind Kind, id string, format string, args ...interface{}) error {
	return &Error{Kind: kind, ID: id, Err: fmt.Errorf(format, args...)}
}

// Wrap tags an error with a kind.  A nil err yields nil.
func Wrap(err error, kind Kind, id string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, ID: id, Err: err}
}

// StatusError creates a tagged error for a backend HTTP status
func StatusError(code int, id, body string) error {
	var err error
	if body != "" {
		err = errors.New(body)
	}
	return &Error{Kind: KindForStatus(code), ID: id, Status: code, Err: err}
}

// KindOf classifies an arbitrary error.  Tagged errors anywhere in the chain win;
// context errors are Canceled, and anything else is a Transport failure.
func KindOf(err error) Kind {
	if err == nil {
		return OK
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}

	cause := errors.Cause(err)
	if cause == context.Canceled || cause == context.DeadlineExceeded ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Canceled
	}

	return Transport
}

// StatusOf returns the backend HTTP status carried by err, or 0
func StatusOf(err error) int {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Status
	}
	return 0
}
