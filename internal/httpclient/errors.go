package httpclient

import (
	"fmt"
	"net/http"
)

// UpstreamError represents an error returned by an upstream service.
// URL never carries a query-string credential.
type UpstreamError struct {
	StatusCode int
	Method     string
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("[%s] %q: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}
