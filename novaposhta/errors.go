package novaposhta

import (
	"fmt"
	"strings"
)

// RemoteError is returned when the API answers with success:false.
type RemoteError struct {
	Model      string
	Method     string
	Errors     []string
	ErrorCodes []string
	Warnings   []string
}

func (e *RemoteError) Error() string {
	return e.Message()
}

// Message joins errors (or error codes) and appends warnings, so the caller
// sees the API's own wording.
func (e *RemoteError) Message() string {
	msg := joinNonEmpty(e.Errors)
	if msg == "" {
		msg = joinNonEmpty(e.ErrorCodes)
	}
	if msg == "" {
		msg = "Unknown error"
	}
	if w := joinNonEmpty(e.Warnings); w != "" {
		msg += " (Попередження: " + w + ")"
	}
	return msg
}

// TransportError covers network failures, non-2xx statuses and undecodable
// bodies. It never means the API rejected the request.
type TransportError struct {
	Model      string
	Method     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("novaposhta %s.%s: http status %d: %v", e.Model, e.Method, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("novaposhta %s.%s: %v", e.Model, e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func joinNonEmpty(items []string) string {
	parts := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
