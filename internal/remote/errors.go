package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnavailable is returned by gateway implementations when the remote
// side cannot be reached at all. It classifies as transient.
var ErrUnavailable = errors.New("remote unavailable")

// APIError is a non-2xx response from the remote service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("remote: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsCredential reports whether the error is a rejected bearer credential
// (401-class). Credential faults abort the whole drain pass instead of
// being classified per operation, since they affect every remaining
// operation too.
func IsCredential(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsTerminal reports whether retrying the operation is futile: the
// record is gone or forbidden server-side, or the payload itself can
// never validate. Terminal operations are dropped from the queue after
// one attempt so they cannot block everything behind them.
func IsTerminal(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusGone,
		http.StatusUnprocessableEntity:
		return true
	}
	return false
}
