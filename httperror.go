package encdoc

import (
	"fmt"
	"net/http"
)

// HTTPError represents a non-2xx response from the remote store.
// It unwraps to ErrConflict for 409 and ErrNotFound for 404, so callers can
// use errors.Is regardless of the transport.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("encdoc: http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("encdoc: http error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Unwrap returns the codec-visible signal for the status, if any.
func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch e.StatusCode {
	case http.StatusConflict:
		return ErrConflict
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// StatusError converts a store response status into an error.
// 2xx statuses return nil.
func StatusError(status int, body []byte) error {
	if status >= 200 && status <= 299 {
		return nil
	}
	return &HTTPError{StatusCode: status, Body: body}
}
