package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/go-resty/resty/v2"
)

// Kind tags why a prediction failed.
type Kind int

const (
	Unknown Kind = iota
	NoDrawing
	MalformedResponse
	ServerRejected
	Unreachable
	TimedOut
)

func (k Kind) String() string {
	switch k {
	case NoDrawing:
		return "no_drawing"
	case MalformedResponse:
		return "malformed_response"
	case ServerRejected:
		return "server_rejected"
	case Unreachable:
		return "unreachable"
	case TimedOut:
		return "timed_out"
	}

	return "unknown"
}

// Error is returned for every failed prediction.
type Error struct {
	Kind Kind

	// StatusCode and Body are set for ServerRejected.
	StatusCode int
	Body       string

	// Field names the offending response field for MalformedResponse,
	// empty when the body was not a JSON object at all.
	Field string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("inference: ")
	b.WriteString(strings.ReplaceAll(e.Kind.String(), "_", " "))

	switch e.Kind {
	case ServerRejected:
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)

		if e.Body != "" {
			b.WriteString(": ")
			b.WriteString(e.Body)
		}

	case MalformedResponse:
		if e.Field != "" {
			b.WriteString(": field ")
			b.WriteString(e.Field)
		}
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user.
func (e *Error) Message() string {
	switch e.Kind {
	case NoDrawing:
		return "Draw a digit first."

	case MalformedResponse:
		if e.Field != "" {
			return fmt.Sprintf("Unexpected response shape from the inference service (field %q).", e.Field)
		}

		return "Unexpected response shape from the inference service."

	case ServerRejected:
		msg := fmt.Sprintf("The inference service rejected the request (status %d).", e.StatusCode)

		if detail := e.Detail(); detail != "" {
			msg += " " + detail
		}

		return msg

	case Unreachable:
		return "Cannot reach the inference service. Check that it is running."

	case TimedOut:
		return "The inference service did not answer in time. It may be overloaded."
	}

	if e.Err != nil {
		return "Error: " + e.Err.Error()
	}

	return "Error: unknown failure"
}

// Detail returns the "detail" member of a JSON error body, the shape
// FastAPI-style services use, or the raw body otherwise.
func (e *Error) Detail() string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}

	if err := json.Unmarshal([]byte(e.Body), &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(e.Body)
	}

	var text string

	if err := json.Unmarshal(body.Detail, &text); err == nil {
		return text
	}

	return string(body.Detail)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error

	if !errors.As(err, &e) {
		return false
	}

	return e.Kind == kind
}

func malformed(field string, err error) *Error {
	return &Error{
		Kind:  MalformedResponse,
		Field: field,
		Err:   err,
	}
}

// classify maps a transport failure onto the error taxonomy.
func classify(err error) *Error {
	var e *Error

	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return malformed("", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: TimedOut, Err: err}
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Kind: Unknown, Err: err}
	}

	var netErr net.Error

	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: TimedOut, Err: err}
	}

	var dnsErr *net.DNSError

	if errors.As(err, &dnsErr) {
		return &Error{Kind: Unreachable, Err: err}
	}

	var opErr *net.OpError

	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &Error{Kind: Unreachable, Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Kind: Unreachable, Err: err}
	}

	return &Error{Kind: Unknown, Err: err}
}
