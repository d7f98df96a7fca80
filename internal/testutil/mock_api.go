// Package testutil provides testing utilities for the Twitter reader.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/twitter-reader/pkg/ratelimit"
)

// TestBearerToken is the access token issued by the mock token endpoint.
const TestBearerToken = "test-bearer-token"

// MockAPIResponse defines one scripted response.
type MockAPIResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Form   url.Values
}

// MockAPI is a scriptable mock of the v1.1 API. Responses queued for a path
// are served in order; the last one is repeated once the queue is drained.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.Mutex
	queues   map[string][]MockAPIResponse
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockAPI starts a mock server with a working token endpoint and a rate
// limit status endpoint reporting a fresh window for every resource.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		queues:   make(map[string][]MockAPIResponse),
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprintf(w, `{"token_type":"bearer","access_token":%q}`, TestBearerToken)
	}
	mock.handlers[ratelimit.StatusPath] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(RateLimitStatusBody(180, time.Now().Add(15*time.Minute).Unix()))
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

func (m *MockAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(body))

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Form:   form,
	})

	queue, queued := m.queues[r.URL.Path]
	var resp MockAPIResponse
	if queued && len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			m.queues[r.URL.Path] = queue[1:]
		}
	}
	handler := m.handlers[r.URL.Path]
	m.mu.Unlock()

	switch {
	case queued && len(queue) > 0:
		writeResponse(w, resp)
	case handler != nil:
		handler(w, r)
	default:
		writeResponse(w, NewErrorResponse(http.StatusNotFound, 34, "Sorry, that page does not exist."))
	}
}

func writeResponse(w http.ResponseWriter, resp MockAPIResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Enqueue appends responses served for path in order.
func (m *MockAPI) Enqueue(path string, responses ...MockAPIResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[path] = append(m.queues[path], responses...)
}

// SetHandler sets a custom handler for path. Queued responses take
// precedence.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// Requests returns the requests received for path in arrival order. An
// empty path returns every request.
func (m *MockAPI) Requests(path string) []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []RecordedRequest
	for _, r := range m.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// RequestCount returns the number of requests received for path.
func (m *MockAPI) RequestCount(path string) int {
	return len(m.Requests(path))
}

// Reset forgets all recorded requests.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// NewPageResponse creates a 200 response carrying quota headers.
func NewPageResponse(body string, remaining int) MockAPIResponse {
	return MockAPIResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			ratelimit.HeaderRemaining: strconv.Itoa(remaining),
			ratelimit.HeaderReset:     strconv.FormatInt(time.Now().Add(15*time.Minute).Unix(), 10),
			"Content-Type":            "application/json; charset=utf-8",
		},
	}
}

// NewErrorResponse creates a response with the API error envelope.
func NewErrorResponse(status, code int, message string) MockAPIResponse {
	return MockAPIResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"errors":[{"code":%d,"message":%q}]}`, code, message),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 response whose window resets at reset.
func NewRateLimitResponse(reset int64) MockAPIResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, 88, "Rate limit exceeded")
	resp.Headers[ratelimit.HeaderRemaining] = "0"
	resp.Headers[ratelimit.HeaderReset] = strconv.FormatInt(reset, 10)
	return resp
}

// RateLimitStatusBody renders a rate_limit_status document listing every
// tracked resource with the given quota.
func RateLimitStatusBody(remaining int, reset int64) []byte {
	families := make(map[string]map[string]interface{})
	for _, r := range ratelimit.Resources() {
		if families[r.Family()] == nil {
			families[r.Family()] = make(map[string]interface{})
		}
		families[r.Family()][r.StatusKey()] = map[string]interface{}{
			"limit":     remaining,
			"remaining": remaining,
			"reset":     reset,
		}
	}

	body, err := json.Marshal(map[string]interface{}{"resources": families})
	if err != nil {
		panic(err)
	}
	return body
}
