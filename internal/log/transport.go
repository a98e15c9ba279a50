package log

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPTransport is an http.RoundTripper that logs every outbound request
// with a request id, status, and duration. It wraps the gateway client's
// transport; the module has no inbound HTTP surface.
type HTTPTransport struct {
	base   http.RoundTripper
	logger *Logger
}

// NewHTTPTransport wraps base (http.DefaultTransport when nil).
func NewHTTPTransport(base http.RoundTripper) *HTTPTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &HTTPTransport{
		base:   base,
		logger: ForComponent(ComponentRemote),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		t.logger.WarnContext(req.Context(), "Outbound request failed",
			FieldRequestID, requestID,
			FieldMethod, req.Method,
			FieldURL, req.URL.String(),
			FieldDuration, elapsed.Milliseconds(),
			FieldError, err)
		return nil, err
	}

	t.logger.DebugContext(req.Context(), "Outbound request",
		FieldRequestID, requestID,
		FieldMethod, req.Method,
		FieldURL, req.URL.String(),
		FieldStatusCode, resp.StatusCode,
		FieldDuration, elapsed.Milliseconds())
	return resp, nil
}
