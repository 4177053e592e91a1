package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/eshaffer321/dishdash-go/internal/types"
)

// HTTPError is a raw failure travelling between stages.
// StatusCode 0 means no response was received.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s %s: no response: %v", e.Method, e.URL, e.Err)
		}
		return fmt.Sprintf("%s %s: no response", e.Method, e.URL)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

// Unwrap returns the underlying transport error, if any
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// RefreshError reports that a 401 could not be cured by refreshing the access token
type RefreshError struct {
	// Original is the 401 that triggered the refresh
	Original error
	// Err is why the refresh failed
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

// Unwrap returns the refresh failure
func (e *RefreshError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err and whether one was found.
// A RefreshError reports the 401 that triggered it.
func StatusOf(err error) (int, bool) {
	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) {
		return 401, true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	var enhanced *types.EnhancedError
	if errors.As(err, &enhanced) {
		return enhanced.StatusCode, true
	}
	return 0, false
}

// errorBody is the server's error envelope
type errorBody struct {
	Message json.RawMessage            `json:"message"`
	Error   string                     `json:"error"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

// parseErrorBody extracts the server message and field errors, tolerating any shape
func parseErrorBody(body []byte) (string, map[string][]string) {
	if len(body) == 0 {
		return "", nil
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", nil
	}

	msg := rawToMessages(eb.Message)
	message := strings.Join(msg, "; ")
	if message == "" {
		message = eb.Error
	}

	var fields map[string][]string
	for field, raw := range eb.Errors {
		msgs := rawToMessages(raw)
		if len(msgs) == 0 {
			continue
		}
		if fields == nil {
			fields = make(map[string][]string)
		}
		fields[field] = msgs
	}

	return message, fields
}

// rawToMessages accepts a JSON string or array of strings
func rawToMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := list[:0]
		for _, m := range list {
			if m != "" {
				out = append(out, m)
			}
		}
		return out
	}

	return nil
}
