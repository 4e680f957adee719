package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork covers an unreachable gateway and any non-2xx reply.
	ErrNetwork = errors.New("gateway request failed")
	// ErrAuthExpired is returned for 401 replies; the session has already
	// been torn down when callers see it.
	ErrAuthExpired = errors.New("session expired")
)

// StatusError is a non-2xx gateway reply.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	// Expired is set when a 401 rejected a credential that was sent.
	Expired bool
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

func (e *StatusError) Unwrap() error {
	if e.Expired {
		return ErrAuthExpired
	}
	return ErrNetwork
}

// UserMessage extracts the gateway-provided message for display, falling
// back to def.
func UserMessage(err error, def string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return def
}
