package transport

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Opt-out headers. They are read by the pipeline and stripped before the request leaves.
const (
	HeaderSkipRetry = "X-Skip-Retry"
	HeaderSkipToast = "X-Skip-Toast"
	HeaderRequestID = "X-Request-ID"
	HeaderDeviceID  = "X-Device-ID"

	authHeaderKey = "Authorization"
	contentType   = "application/json"
)

// Request is an outgoing API request. It is immutable: every With* method
// returns a copy and leaves the receiver untouched.
type Request struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
	id     string
}

// NewRequest creates a request for path (relative to the API base URL, or absolute)
func NewRequest(method, path string, body []byte) *Request {
	return &Request{
		method: strings.ToUpper(method),
		path:   path,
		header: make(http.Header),
		body:   body,
		id:     uuid.NewString(),
	}
}

// NewJSONRequest creates a request whose body is v encoded as JSON. A nil v sends no body.
func NewJSONRequest(method, path string, v interface{}) (*Request, error) {
	if v == nil {
		return NewRequest(method, path, nil), nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}
	return NewRequest(method, path, body), nil
}

// Method returns the HTTP method
func (r *Request) Method() string { return r.method }

// Path returns the path without query string
func (r *Request) Path() string { return r.path }

// ID identifies one logical request; retries and refresh re-issues share it
func (r *Request) ID() string { return r.id }

// URL returns the path with its encoded query
func (r *Request) URL() string {
	if len(r.query) == 0 {
		return r.path
	}
	return r.path + "?" + r.query.Encode()
}

// Query returns a copy of the query parameters
func (r *Request) Query() url.Values {
	out := make(url.Values, len(r.query))
	for k, v := range r.query {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Header returns the first value for key
func (r *Request) Header(key string) string {
	return r.header.Get(key)
}

// Headers returns a copy of all headers
func (r *Request) Headers() http.Header {
	return r.header.Clone()
}

// Body returns a copy of the body
func (r *Request) Body() []byte {
	if r.body == nil {
		return nil
	}
	out := make([]byte, len(r.body))
	copy(out, r.body)
	return out
}

// HasBody reports whether the request carries a non-empty body
func (r *Request) HasBody() bool {
	return len(r.body) > 0
}

// SkipRetry reports whether the caller opted out of retries
func (r *Request) SkipRetry() bool {
	return r.header.Get(HeaderSkipRetry) != ""
}

// SkipToast reports whether the caller opted out of notifications
func (r *Request) SkipToast() bool {
	return r.header.Get(HeaderSkipToast) != ""
}

// WithHeader returns a copy with key set to value
func (r *Request) WithHeader(key, value string) *Request {
	c := r.clone()
	c.header = r.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithoutHeader returns a copy without key
func (r *Request) WithoutHeader(key string) *Request {
	if r.header.Get(key) == "" {
		return r
	}
	c := r.clone()
	c.header = r.header.Clone()
	c.header.Del(key)
	return c
}

// WithQuery returns a copy with the query replaced
func (r *Request) WithQuery(q url.Values) *Request {
	c := r.clone()
	c.query = make(url.Values, len(q))
	for k, v := range q {
		c.query[k] = append([]string(nil), v...)
	}
	return c
}

// WithBearer returns a copy carrying an Authorization bearer token
func (r *Request) WithBearer(token string) *Request {
	return r.WithHeader(authHeaderKey, "Bearer "+token)
}

// WithSkipRetry returns a copy that bypasses the retry stage
func (r *Request) WithSkipRetry() *Request {
	return r.WithHeader(HeaderSkipRetry, "1")
}

// WithSkipToast returns a copy whose failures are not shown to the user
func (r *Request) WithSkipToast() *Request {
	return r.WithHeader(HeaderSkipToast, "1")
}

func (r *Request) clone() *Request {
	c := *r
	return &c
}

// Response is a successful API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v interface{}) error {
	if v == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
