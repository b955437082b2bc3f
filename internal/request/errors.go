package request

import (
	"errors"
	"fmt"
)

// StatusError reports a response other than 200.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.Status)
}

// StatusCode extracts the HTTP status from err, or 0 if err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
