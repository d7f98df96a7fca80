// Package client is the Twitter reader: a connection state machine exposing
// the high-level read operations batch collectors are built on.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/twitter-reader/pkg/auth"
	"github.com/Sternrassler/twitter-reader/pkg/cache"
	"github.com/Sternrassler/twitter-reader/pkg/logging"
	"github.com/Sternrassler/twitter-reader/pkg/pagination"
	"github.com/Sternrassler/twitter-reader/pkg/ratelimit"
	"github.com/Sternrassler/twitter-reader/pkg/retry"
	"github.com/Sternrassler/twitter-reader/pkg/transport"
)

var connectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "twitter_reader_connections_total",
	Help: "Total number of transport connections opened by kind (connect, reconnect)",
}, []string{"kind"})

// State is the connection state of a Client.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Config holds the client configuration.
type Config struct {
	Credentials auth.Credentials

	// BaseURL is the API host (default https://api.twitter.com).
	BaseURL string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// TransportRetries is how often a connection-level failure is retried.
	TransportRetries int

	// QuotaPollInterval is the wait between failed quota status queries.
	QuotaPollInterval time.Duration

	// Debug logs every HTTP request and response status.
	Debug bool

	// Cache, when set, serves GetUserInfo from Redis for CacheTTL.
	Cache    *cache.Manager
	CacheTTL time.Duration

	// Transport overrides how connections are opened.
	Transport transport.Factory

	// Clock overrides the wall clock used for quota waits.
	Clock ratelimit.Clock
}

// DefaultConfig returns a configuration for the public API.
func DefaultConfig(creds auth.Credentials) Config {
	return Config{
		Credentials:       creds,
		BaseURL:           transport.DefaultBaseURL,
		Timeout:           30 * time.Second,
		TransportRetries:  2,
		QuotaPollInterval: ratelimit.DefaultPollInterval,
		CacheTTL:          24 * time.Hour,
	}
}

// Client reads from the Twitter v1.1 API. It owns its quota table, bearer
// token and transport; it is not safe for concurrent use.
type Client struct {
	id        string
	config    Config
	state     State
	dial      transport.Factory
	transport transport.Transport
	token     *auth.BearerToken
	tokens    *auth.TokenManager
	limiter   *ratelimit.Limiter
	engine    *pagination.Engine
	cache     *cache.Manager
	logger    zerolog.Logger
}

// New creates a disconnected client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.QuotaPollInterval <= 0 {
		return nil, fmt.Errorf("quota poll interval must be positive (got %s)", cfg.QuotaPollInterval)
	}
	if cfg.Cache != nil && cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive when a cache is configured (got %s)", cfg.CacheTTL)
	}

	id := uuid.NewString()
	componentLogger := func(component string) zerolog.Logger {
		return logging.NewLogger(component).With().Str("client_id", id).Logger()
	}
	logger := componentLogger("client")

	dial := cfg.Transport
	if dial == nil {
		dial = transport.NewFactory(transport.Options{
			BaseURL:    cfg.BaseURL,
			UserAgent:  cfg.Credentials.AppName,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.TransportRetries,
			OAuth1:     cfg.Credentials.OAuth1(),
			Debug:      cfg.Debug,
			Logger:     componentLogger("transport"),
		})
	}

	limiterOpts := []ratelimit.Option{
		ratelimit.WithPollPolicy(retry.Forever(cfg.QuotaPollInterval)),
		ratelimit.WithLogger(componentLogger("ratelimit")),
	}
	if cfg.Clock != nil {
		limiterOpts = append(limiterOpts, ratelimit.WithClock(cfg.Clock))
	}

	c := &Client{
		id:      id,
		config:  cfg,
		state:   Disconnected,
		dial:    dial,
		tokens:  auth.NewTokenManager(),
		limiter: ratelimit.NewLimiter(limiterOpts...),
		cache:   cfg.Cache,
		logger:  logger,
	}
	c.engine = pagination.NewEngine(c.limiter, c, componentLogger("pagination"))

	return c, nil
}

// ID identifies this instance in logs.
func (c *Client) ID() string {
	return c.id
}

// State returns the connection state.
func (c *Client) State() State {
	return c.state
}

// Quota returns the last known quota of r.
func (c *Client) Quota(r ratelimit.Resource) ratelimit.Quota {
	return c.limiter.Quota(r)
}

// Connect opens a transport and, for application-only auth, obtains a bearer
// token if none is held yet.
func (c *Client) Connect(ctx context.Context) error {
	if c.state == Connected {
		return ErrAlreadyConnected
	}

	c.logger.Debug().Str("base_url", c.config.BaseURL).Msg("Connecting")

	t, err := c.dial(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to open transport")
		return fmt.Errorf("open transport: %w", err)
	}

	if !c.config.Credentials.UserContext() && c.token == nil {
		token, err := c.tokens.Exchange(ctx, t, c.config.Credentials)
		if err != nil {
			_ = t.Close()
			c.logger.Error().Err(err).Msg("Failed to obtain bearer token")
			return err
		}
		c.token = &token
	}

	c.transport = t
	c.state = Connected
	connectionsTotal.WithLabelValues("connect").Inc()

	return nil
}

// Reconnect closes the transport and connects again. A bearer token already
// held is reused.
func (c *Client) Reconnect(ctx context.Context) error {
	c.logger.Info().Msg("Restarting connection")

	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Error closing transport while reconnecting")
		}
	}
	c.transport = nil
	c.state = Disconnected
	connectionsTotal.WithLabelValues("reconnect").Inc()

	return c.Connect(ctx)
}

// Cleanup closes the transport and discards the bearer token.
func (c *Client) Cleanup() error {
	var err error
	if c.transport != nil {
		err = c.transport.Close()
	}
	c.transport = nil
	c.token = nil
	c.state = Disconnected

	c.logger.Debug().Msg("Connection closed")
	return err
}

// Send issues one authenticated request over the current connection. It is
// the session the rate limiter and pagination engine work over.
func (c *Client) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if c.state != Connected {
		return nil, ErrNotConnected
	}

	if c.token != nil {
		req = req.Clone()
		if req.Header == nil {
			req.Header = http.Header{}
		}
		req.Header.Set("Authorization", c.token.Header())
	}

	return c.transport.Send(ctx, req)
}

func (c *Client) requireConnected(op string) error {
	if c.state != Connected {
		c.logger.Error().Str("operation", op).Msg("Operation called while disconnected")
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	return nil
}
