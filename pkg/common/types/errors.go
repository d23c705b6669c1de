package types

import (
	"fmt"
	"strings"
	"sync"
)

// TransportError wraps a network-level failure: connection reset, timeout,
// DNS failure, aborted request. Always retryable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is a non-2xx response from the node. Retryability depends
// on the status code.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// JSONRPCError is a node-reported error object, carrying the numeric code
// and message from the response envelope.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// DecodeError is a non-JSON body or an ABI/byte-layout decode failure.
// Transient is set when the HTTP layer also signaled transience (a garbage
// body behind a 502 is the node's problem, not the caller's).
type DecodeError struct {
	Msg       string
	Transient bool
	Err       error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Msg, e.Err)
	}
	return "decode: " + e.Msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError is a caller error: argument-count mismatch, malformed
// address. Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// MultiError collects errors from concurrent fan-out.
type MultiError struct {
	mu     sync.Mutex
	Errors []error
}

func (m *MultiError) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, err)
}

func (m *MultiError) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Errors) == 0
}
