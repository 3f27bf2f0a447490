package llm

import (
	"fmt"
	"strings"
)

// RemoteServiceError wraps any failure of the completion service: network,
// auth, rate limit or an unusable response. It is not locally recoverable.
type RemoteServiceError struct {
	Provider string
	Model    string
	Err      error
}

func (e *RemoteServiceError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s (%s): completion failed: %v", e.Provider, e.Model, e.Err)
	}
	return fmt.Sprintf("%s: completion failed: %v", e.Provider, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = fmt.Errorf("empty completion response")

// ContainsAny reports whether the lower-cased error message mentions one of
// the markers. Providers use it to classify transient failures.
func ContainsAny(err error, markers ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// CommonTransientMarkers covers overloads, rate limits and network hiccups.
var CommonTransientMarkers = []string{
	"429", "rate limit", "resource exhausted",
	"500 internal", "internal error",
	"502", "bad gateway",
	"503", "service unavailable", "overloaded",
	"context deadline exceeded", "connection refused", "connection reset", "timeout",
}
