package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dghubble/go-twitter/twitter"
	"github.com/google/go-querystring/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/twitter-reader/pkg/apierror"
	"github.com/Sternrassler/twitter-reader/pkg/logging"
	"github.com/Sternrassler/twitter-reader/pkg/retry"
	"github.com/Sternrassler/twitter-reader/pkg/transport"
)

// StatusPath is the quota status endpoint.
const StatusPath = "/1.1/application/rate_limit_status.json"

// DefaultPollInterval is the wait between failed quota status queries. The
// status endpoint allows 180 calls per 15 minutes, one every 5 seconds.
const DefaultPollInterval = 5 * time.Second

// DefaultExhaustedWindow is assumed for a 429 response without a reset header.
const DefaultExhaustedWindow = 15 * time.Minute

var (
	quotaRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "twitter_reader_quota_remaining",
		Help: "Requests remaining in the current quota window by resource (-1 = unknown)",
	}, []string{"resource"})

	quotaWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_reader_quota_waits_total",
		Help: "Total number of waits for an exhausted quota window by resource",
	}, []string{"resource"})

	quotaWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twitter_reader_quota_wait_seconds",
		Help:    "Time spent waiting for a quota window to renew by resource",
		Buckets: []float64{1, 10, 60, 300, 600, 900},
	}, []string{"resource"})

	quotaStatusQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_reader_quota_status_queries_total",
		Help: "Total number of rate_limit_status queries by resource family",
	}, []string{"family"})

	quotaRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_reader_quota_rejections_total",
		Help: "Total number of 429 responses by resource",
	}, []string{"resource"})
)

// Session is the connection a Limiter queries quota status over and
// restarts after a long wait.
type Session interface {
	Send(ctx context.Context, req *transport.Request) (*transport.Response, error)
	Reconnect(ctx context.Context) error
}

// Limiter owns the quota table of one reader instance. It is not safe for
// concurrent use.
type Limiter struct {
	table  Table
	clock  Clock
	poll   retry.Policy
	logger zerolog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithPollPolicy replaces the quota status retry policy.
func WithPollPolicy(p retry.Policy) Option {
	return func(l *Limiter) { l.poll = p }
}

// WithLogger replaces the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// NewLimiter creates a Limiter with every resource at InitialQuota.
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{
		table:  NewTable(),
		clock:  SystemClock(),
		poll:   retry.Forever(DefaultPollInterval),
		logger: logging.NewLogger("ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Quota returns the current quota of r.
func (l *Limiter) Quota(r Resource) Quota {
	return l.table[r]
}

// Snapshot returns a copy of the whole table keyed by resource.
func (l *Limiter) Snapshot() map[Resource]Quota {
	out := make(map[Resource]Quota, numResources)
	for _, r := range Resources() {
		out[r] = l.table[r]
	}
	return out
}

// Set overwrites the quota of r.
func (l *Limiter) Set(r Resource, q Quota) {
	l.table[r] = q
	quotaRemaining.WithLabelValues(r.String()).Set(float64(q.Remaining))
}

// Observe records the quota headers of a response for r.
func (l *Limiter) Observe(r Resource, h http.Header) {
	q := QuotaFromHeaders(h)
	l.Set(r, q)

	l.logger.Debug().
		Str("resource", r.String()).
		Int("remaining", q.Remaining).
		Int64("reset", q.Reset).
		Msg("Quota observed")
}

// Reject marks r exhausted after a 429 response. The reset header is used
// when it lies in the future, otherwise a full window from now: a reset
// already passed on the local clock would not block at all.
func (l *Limiter) Reject(r Resource, h http.Header) {
	now := l.clock.Now()
	q := QuotaFromHeaders(h)
	q.Remaining = 0
	if q.Reset == Unknown || q.TimeUntilReset(now) <= 0 {
		q.Reset = now.Add(DefaultExhaustedWindow).Unix()
	}
	l.Set(r, q)
	quotaRejectionsTotal.WithLabelValues(r.String()).Inc()

	l.logger.Warn().
		Str("resource", r.String()).
		Int64("reset", q.Reset).
		Msg("Request rejected for exhausted quota")
}

// Admit blocks until a request for r may be sent. An unknown quota is
// queried from the status endpoint until it succeeds. An exhausted quota is
// waited out until one second past its reset, after which the session is
// reconnected. Admit only fails when ctx is done or the reconnect fails.
func (l *Limiter) Admit(ctx context.Context, r Resource, s Session) error {
	if !r.Valid() {
		return fmt.Errorf("invalid resource %d", int(r))
	}

	q := l.table[r]
	if q.Remaining > 0 {
		return nil
	}

	if q.IsUnknown() {
		if err := l.refresh(ctx, r, s); err != nil {
			return err
		}
		q = l.table[r]
	}

	if !q.Exhausted() {
		return nil
	}

	wait := q.TimeUntilReset(l.clock.Now())
	l.logger.Warn().
		Str("resource", r.String()).
		Dur("wait", wait).
		Time("reset_at", q.ResetAt()).
		Msg("Quota exhausted, waiting for window reset")

	quotaWaitsTotal.WithLabelValues(r.String()).Inc()
	quotaWaitSeconds.WithLabelValues(r.String()).Observe(wait.Seconds())

	if err := l.clock.Sleep(ctx, wait); err != nil {
		return fmt.Errorf("wait for %s quota: %w", r, err)
	}

	// The server may have dropped the idle connection during the wait.
	if err := s.Reconnect(ctx); err != nil {
		return fmt.Errorf("reconnect after %s quota wait: %w", r, err)
	}
	return nil
}

// refresh queries the quota of r's family until the response carries r.
func (l *Limiter) refresh(ctx context.Context, r Resource, s Session) error {
	params, err := query.Values(twitter.RateLimitParams{Resources: []string{r.Family()}})
	if err != nil {
		return fmt.Errorf("encode rate limit params: %w", err)
	}
	req := &transport.Request{Method: http.MethodGet, Path: StatusPath, Query: params}

	return retry.Do(l.logger.WithContext(ctx), "rate_limit_status", l.poll, func() error {
		l.logger.Debug().
			Str("resource", r.String()).
			Str("family", r.Family()).
			Msg("Quota unknown, requesting rate limit status")
		quotaStatusQueriesTotal.WithLabelValues(r.Family()).Inc()

		resp, err := s.Send(ctx, req)
		if err != nil {
			return err
		}
		if err := apierror.Check(resp.StatusCode, resp.Status, resp.Body, r.Family()); err != nil {
			return err
		}

		var status twitter.RateLimit
		if err := json.Unmarshal(resp.Body, &status); err != nil {
			return fmt.Errorf("decode rate limit status: %w", err)
		}

		entry := familyLimits(status.Resources, r.Family())[r.StatusKey()]
		if entry == nil {
			return fmt.Errorf("rate limit status has no entry for %s", r.StatusKey())
		}

		l.Set(r, Quota{Remaining: entry.Remaining, Reset: int64(entry.Reset)})
		return nil
	})
}

func familyLimits(res *twitter.RateLimitResources, family string) map[string]*twitter.RateLimitResource {
	if res == nil {
		return nil
	}
	switch family {
	case "users":
		return res.Users
	case "statuses":
		return res.Statuses
	case "search":
		return res.Search
	case "friends":
		return res.Friends
	case "followers":
		return res.Followers
	case "friendships":
		return res.Friendships
	default:
		return nil
	}
}
