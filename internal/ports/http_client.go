package ports

import "net/http"

// HTTPClient is what the status webhook needs from an HTTP client, so tests
// can replace it. The standard *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
