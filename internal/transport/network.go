package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eshaffer321/dishdash-go/internal/types"
	"github.com/pkg/errors"
)

// Options for the HTTP stage
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Headers    map[string]string
	DeviceID   string
}

// HTTPTransport sends requests over HTTP. It is the innermost stage of the pipeline.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	deviceID   string
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(opts *Options) *HTTPTransport {
	if opts == nil {
		opts = &Options{}
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = types.DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: types.DefaultTimeout,
		}
	}

	headers := map[string]string{
		"Accept":     contentType,
		"User-Agent": types.UserAgent,
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		headers:    headers,
		deviceID:   opts.DeviceID,
	}
}

// BaseURL returns the API root requests are resolved against
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

// Handler returns the transport as a terminal pipeline handler
func (t *HTTPTransport) Handler() Handler {
	return t.Do
}

// Do sends req. Non-2xx statuses and connection failures come back as *HTTPError.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	target := t.resolve(req.URL())

	var body io.Reader
	if req.HasBody() {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), target, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}
	if req.HasBody() {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	// opt-out flags never leave the client
	httpReq.Header.Del(HeaderSkipRetry)
	httpReq.Header.Del(HeaderSkipToast)

	httpReq.Header.Set(HeaderRequestID, req.ID())
	if t.deviceID != "" {
		httpReq.Header.Set(HeaderDeviceID, t.deviceID)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &HTTPError{Method: req.Method(), URL: req.URL(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &HTTPError{Method: req.Method(), URL: req.URL(), Err: errors.Wrap(err, "failed to read response")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Method:     req.Method(),
			URL:        req.URL(),
			Body:       respBody,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		Duration:   time.Since(start),
	}, nil
}

func (t *HTTPTransport) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.baseURL + path
}
