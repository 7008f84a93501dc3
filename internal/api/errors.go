package api

import (
	"errors"
	"net/http"
)

// GenericFailureMessage is shown when the backend gave no explanation.
const GenericFailureMessage = "An error occurred. Please try again."

// UserMessage picks the text to show an actor for a failed submission:
// the backend's message when it sent one, a generic fallback otherwise.
func UserMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return GenericFailureMessage
}

// StatusCode returns the backend status carried by err, or 0 for transport failures.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
