package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	msgNotAuthenticated = "Not authenticated"
	msgNetworkError     = "Network error. Please check your connection."
	msgSomethingWrong   = "Something went wrong"
)

// Error is returned for every failed backend call. Message is always safe to
// show to the user.
type Error struct {
	StatusCode int // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether the backend rejected the session
func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNetwork reports whether the request failed before a response arrived
func (e *Error) IsNetwork() bool {
	return e.StatusCode == 0
}

// IsUnauthorized unwraps err and reports whether it is a 401
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}

func networkError(err error) *Error {
	return &Error{Message: msgNetworkError, Err: err}
}

// errorFromResponse maps a non-2xx response body onto an Error
func errorFromResponse(status int, body []byte) *Error {
	if status == http.StatusUnauthorized {
		return &Error{StatusCode: status, Message: msgNotAuthenticated}
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return &Error{StatusCode: status, Message: msg}
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return &Error{StatusCode: status, Message: msg}
		}
	}

	return &Error{StatusCode: status, Message: msgSomethingWrong}
}
