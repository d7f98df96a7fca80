package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/twitter-reader/pkg/logging"
)

// DefaultBaseURL is the Twitter API host.
const DefaultBaseURL = "https://api.twitter.com"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// OAuth1Credentials enable user-context request signing.
type OAuth1Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// Options configures an HTTPTransport.
type Options struct {
	// BaseURL is the scheme and host requests are sent to.
	BaseURL string

	// UserAgent is sent with every request (the application name).
	UserAgent string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// MaxRetries is how often a connection-level failure is retried.
	// HTTP status codes are never retried here.
	MaxRetries int

	// OAuth1, when set, signs every request in user context.
	OAuth1 *OAuth1Credentials

	// Debug logs every request and response status.
	Debug bool

	Logger zerolog.Logger
}

// DefaultOptions returns options for the public API host.
func DefaultOptions(userAgent string) Options {
	return Options{
		BaseURL:    DefaultBaseURL,
		UserAgent:  userAgent,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		Logger:     logging.NewLogger("transport"),
	}
}

// HTTPTransport is a Transport over a dedicated single-connection
// http.Transport.
type HTTPTransport struct {
	baseURL   string
	userAgent string
	conn      *http.Transport
	client    *retryablehttp.Client
	logger    zerolog.Logger
	closed    bool
}

// Open creates a transport with its own connection pool of size one.
func Open(opts Options) (*HTTPTransport, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("user agent is required")
	}

	conn := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxConnsPerHost:     1,
		MaxIdleConns:        1,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	httpClient := &http.Client{Transport: conn, Timeout: opts.Timeout}
	if opts.OAuth1 != nil {
		cfg := oauth1.NewConfig(opts.OAuth1.ConsumerKey, opts.OAuth1.ConsumerSecret)
		token := oauth1.NewToken(opts.OAuth1.AccessToken, opts.OAuth1.AccessSecret)
		// oauth1 layers its signing transport over the client found in ctx.
		ctx := context.WithValue(context.Background(), oauth1.HTTPClient, httpClient)
		httpClient = cfg.Client(ctx, token)
		httpClient.Timeout = opts.Timeout
	}

	t := &HTTPTransport{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		conn:      conn,
		logger:    opts.Logger,
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = opts.MaxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.CheckRetry = retryConnectionErrors
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logging.NewLeveledLogger(opts.Logger)
	if opts.Debug {
		rc.RequestLogHook = t.logRequest
		rc.ResponseLogHook = t.logResponse
	}
	t.client = rc

	return t, nil
}

// NewFactory returns a Factory opening a fresh HTTPTransport with opts.
func NewFactory(opts Options) Factory {
	return func(ctx context.Context) (Transport, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Open(opts)
	}
}

// retryConnectionErrors retries failed round trips but hands every HTTP
// response back to the caller for classification.
func retryConnectionErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

// Send issues one request and reads the full response body.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	if t.closed {
		return nil, ErrClosed
	}

	target := t.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body interface{}
	if req.Form != nil {
		body = []byte(req.Form.Encode())
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, req.Path, err)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	if req.Form != nil {
		httpReq.Header.Set("Content-Type", FormContentType)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body %s: %w", req.Path, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Close drops the connection. Further Sends fail with ErrClosed.
func (t *HTTPTransport) Close() error {
	t.closed = true
	t.conn.CloseIdleConnections()
	return nil
}

func (t *HTTPTransport) logRequest(_ retryablehttp.Logger, req *http.Request, attempt int) {
	t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("attempt", attempt).
		Msg("Sending request")
}

func (t *HTTPTransport) logResponse(_ retryablehttp.Logger, resp *http.Response) {
	t.logger.Debug().
		Str("url", resp.Request.URL.Redacted()).
		Int("status", resp.StatusCode).
		Str("x_rate_limit_remaining", resp.Header.Get("x-rate-limit-remaining")).
		Msg("Received response")
}
