package apierror

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusError is a non-2xx engine response. Type, Reason and Index come from
// the structured error body when the engine sent one.
type StatusError struct {
	Status int
	Type   string
	Reason string
	Index  string
	Body   string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Type != "":
		return fmt.Sprintf("engine returned status %d: %s: %s", e.Status, e.Type, e.Reason)
	case e.Body != "":
		return fmt.Sprintf("engine returned status %d: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("engine returned status %d", e.Status)
	}
}

// message is the text searched for error markers.
func (e *StatusError) message() string {
	return e.Type + " " + e.Reason + " " + e.Body
}

// NewStatusError builds a StatusError from a response status and body. Both
// the structured {"error":{...},"status":n} shape and plain-text bodies are
// accepted.
func NewStatusError(status int, body []byte) *StatusError {
	e := &StatusError{Status: status, Body: strings.TrimSpace(string(body))}
	var raw struct {
		Error  json.RawMessage `json:"error"`
		Status int             `json:"status"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || len(raw.Error) == 0 {
		return e
	}
	var cause struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
		Index  string `json:"index"`
	}
	if err := json.Unmarshal(raw.Error, &cause); err == nil {
		e.Type, e.Reason, e.Index = cause.Type, cause.Reason, cause.Index
	} else {
		var text string
		if json.Unmarshal(raw.Error, &text) == nil {
			e.Reason = text
		}
	}
	return e
}

// ValidationError is a request rejected before it reached the engine.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}
