package util

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single archive request.
const DefaultTimeout = 60 * time.Second

// Response is a fully read HTTP response body with its status.
type Response struct {
	URL        string
	StatusCode int
	Status     string
	Body       []byte
}

// DownloadFile executes a pre-built HTTP request and returns the body bytes
// whatever the status code. Error pages are returned to the caller, who decides
// what a non-archive body means. Only transport and read failures are errors.
func DownloadFile(client *http.Client, req *http.Request) (*Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do request for %s: %w", req.URL.String(), err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading body from %s: %w", req.URL.String(), err)
	}
	return &Response{
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       bodyBytes,
	}, nil
}

// DefaultHTTPClient creates an http.Client with the archive request timeout.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}
