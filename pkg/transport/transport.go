// Package transport issues single requests against the Twitter API host over
// one reusable connection.
package transport

import (
	"context"
	"net/http"
	"net/url"
)

// FormContentType is sent with every form-encoded request body.
const FormContentType = "application/x-www-form-urlencoded;charset=UTF-8"

// Request is one API call relative to the transport's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header

	// Form is sent form-encoded as the request body when non-nil.
	Form url.Values
}

// Clone returns a copy of r whose Query and Header can be modified freely.
func (r *Request) Clone() *Request {
	c := *r
	c.Query = cloneValues(r.Query)
	c.Form = cloneValues(r.Form)
	if r.Header != nil {
		c.Header = r.Header.Clone()
	}
	return &c
}

// Response is the raw result of one request. Non-2xx statuses are not errors
// at this layer.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Transport sends requests over a single connection until closed.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// Factory opens a new Transport. The reader calls it on every connect and
// reconnect so a dropped connection is never reused.
type Factory func(ctx context.Context) (Transport, error)

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	c := make(url.Values, len(v))
	for k, vals := range v {
		c[k] = append([]string(nil), vals...)
	}
	return c
}
