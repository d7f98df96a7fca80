package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/buger/jsonparser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/twitter-reader/pkg/apierror"
	"github.com/Sternrassler/twitter-reader/pkg/ratelimit"
	"github.com/Sternrassler/twitter-reader/pkg/transport"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_reader_requests_total",
		Help: "Total number of API requests by resource and HTTP status",
	}, []string{"resource", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "twitter_reader_request_duration_seconds",
		Help:    "API request duration by resource",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})

	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_reader_page_items_total",
		Help: "Total number of items received in pages by resource",
	}, []string{"resource"})
)

// ErrMalformedPage is returned when a successful response lacks a field the
// paging protocol depends on.
var ErrMalformedPage = errors.New("malformed page")

// Engine fetches pages for one reader instance.
type Engine struct {
	limiter *ratelimit.Limiter
	session ratelimit.Session
	logger  zerolog.Logger
}

// NewEngine creates an Engine sending over session and gated by limiter.
func NewEngine(limiter *ratelimit.Limiter, session ratelimit.Session, logger zerolog.Logger) *Engine {
	return &Engine{
		limiter: limiter,
		session: session,
		logger:  logger,
	}
}

// Fetch sends one request for resource r and returns the body of a success
// response. A 429 response marks the quota exhausted and the request is
// admitted again instead of failing.
func (e *Engine) Fetch(ctx context.Context, r ratelimit.Resource, req *transport.Request, subject string) ([]byte, error) {
	for {
		if err := e.limiter.Admit(ctx, r, e.session); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := e.session.Send(ctx, req)
		requestDuration.WithLabelValues(r.String()).Observe(time.Since(start).Seconds())
		if err != nil {
			requestsTotal.WithLabelValues(r.String(), "error").Inc()
			return nil, fmt.Errorf("%s: %w", r, err)
		}
		requestsTotal.WithLabelValues(r.String(), strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests {
			e.limiter.Reject(r, resp.Header)
			continue
		}

		e.limiter.Observe(r, resp.Header)

		if err := apierror.Check(resp.StatusCode, resp.Status, resp.Body, subject); err != nil {
			e.logger.Debug().
				Str("resource", r.String()).
				Str("subject", subject).
				Int("status", resp.StatusCode).
				Err(err).
				Msg("Request failed")
			return nil, err
		}

		return resp.Body, nil
	}
}

// Cursor follows next_cursor from FirstPage until LastPage and returns the
// items of the container array of every page in fetch order.
func (e *Engine) Cursor(ctx context.Context, r ratelimit.Resource, req *transport.Request, container, subject string) ([]json.RawMessage, error) {
	page := req.Clone()
	if page.Query == nil {
		page.Query = url.Values{}
	}

	var all []json.RawMessage
	cursor := FirstPage
	for pages := 1; ; pages++ {
		page.Query.Set("cursor", cursor.String())

		body, err := e.Fetch(ctx, r, page, subject)
		if err != nil {
			return nil, err
		}

		items, err := Items(body, container)
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w", r, pages, err)
		}
		all = append(all, items...)
		itemsTotal.WithLabelValues(r.String()).Add(float64(len(items)))

		next, err := jsonparser.GetInt(body, "next_cursor")
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w: next_cursor: %v", r, pages, ErrMalformedPage, err)
		}
		cursor = Cursor(next)

		e.logger.Debug().
			Str("resource", r.String()).
			Str("subject", subject).
			Int("page", pages).
			Int("items", len(items)).
			Int("total", len(all)).
			Int64("next_cursor", next).
			Int("remaining", e.limiter.Quota(r).Remaining).
			Msg("Fetched cursor page")

		if cursor.Done() {
			return all, nil
		}
	}
}

// Token follows search_metadata.next_results. maxResults of 0 means no
// limit; otherwise the walk stops after the page that reaches it. The last
// page is not truncated.
func (e *Engine) Token(ctx context.Context, r ratelimit.Resource, req *transport.Request, container string, maxResults int) ([]json.RawMessage, error) {
	if maxResults < 0 {
		return nil, fmt.Errorf("max results must not be negative, got %d", maxResults)
	}

	page := req.Clone()

	var all []json.RawMessage
	for pages := 1; ; pages++ {
		body, err := e.Fetch(ctx, r, page, "")
		if err != nil {
			return nil, err
		}

		items, err := Items(body, container)
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w", r, pages, err)
		}
		all = append(all, items...)
		itemsTotal.WithLabelValues(r.String()).Add(float64(len(items)))

		e.logger.Debug().
			Str("resource", r.String()).
			Int("page", pages).
			Int("items", len(items)).
			Int("total", len(all)).
			Int("remaining", e.limiter.Quota(r).Remaining).
			Msg("Fetched search page")

		if maxResults > 0 && len(all) >= maxResults {
			return all, nil
		}

		next, err := jsonparser.GetString(body, "search_metadata", "next_results")
		token := ContinuationToken(next)
		if err != nil || token.Done() {
			return all, nil
		}

		q, err := token.Query()
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w: next_results %q: %v", r, pages, ErrMalformedPage, next, err)
		}
		page = req.Clone()
		page.Query = q
	}
}

// WindowBackfill walks a timeline whose pages are bare arrays ordered by
// descending id.
//
// The first request uses the caller's window. If it is empty the walk ends.
// Older pages follow with max_id just below the last item seen until a page
// comes back empty. A final request with since_id set to the first item of
// the first page collects items posted meanwhile; they are placed in front.
func (e *Engine) WindowBackfill(ctx context.Context, r ratelimit.Resource, req *transport.Request, window IDWindow, subject string) ([]json.RawMessage, error) {
	page := req.Clone()
	if page.Query == nil {
		page.Query = url.Values{}
	}
	window.Apply(page.Query)

	first, err := e.windowPage(ctx, r, page, subject)
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return nil, nil
	}

	all := append([]json.RawMessage(nil), first...)
	last := first
	for {
		lastID, err := itemID(last[len(last)-1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r, err)
		}
		IDWindow{SinceID: window.SinceID, MaxID: lastID - 1}.Apply(page.Query)

		older, err := e.windowPage(ctx, r, page, subject)
		if err != nil {
			return nil, err
		}
		if len(older) == 0 {
			break
		}
		all = append(all, older...)
		last = older
	}

	newestID, err := itemID(first[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r, err)
	}
	IDWindow{SinceID: newestID}.Apply(page.Query)

	newer, err := e.windowPage(ctx, r, page, subject)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("resource", r.String()).
		Str("subject", subject).
		Int("items", len(all)).
		Int("newer", len(newer)).
		Int("remaining", e.limiter.Quota(r).Remaining).
		Msg("Backfilled timeline")

	return append(newer, all...), nil
}

func (e *Engine) windowPage(ctx context.Context, r ratelimit.Resource, req *transport.Request, subject string) ([]json.RawMessage, error) {
	body, err := e.Fetch(ctx, r, req, subject)
	if err != nil {
		return nil, err
	}
	items, err := Items(body, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r, err)
	}
	itemsTotal.WithLabelValues(r.String()).Add(float64(len(items)))
	return items, nil
}

// Items returns the elements of the array at container, or of the
// body itself when container is empty.
func Items(body []byte, container string) ([]json.RawMessage, error) {
	var keys []string
	if container != "" {
		keys = []string{container}
	}

	value, dataType, _, err := jsonparser.Get(body, keys...)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedPage, container, err)
	}
	if dataType != jsonparser.Array {
		return nil, fmt.Errorf("%w: %q is %s, not an array", ErrMalformedPage, container, dataType)
	}

	items := []json.RawMessage{}
	var itemErr error
	_, err = jsonparser.ArrayEach(value, func(item []byte, dt jsonparser.ValueType, _ int, err error) {
		if err != nil {
			itemErr = err
			return
		}
		if dt == jsonparser.String {
			// ArrayEach strips the quotes of string elements.
			item = append(append([]byte{'"'}, item...), '"')
		}
		items = append(items, json.RawMessage(item))
	})
	if err == nil {
		err = itemErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedPage, container, err)
	}
	return items, nil
}

// itemID reads the numeric id of a tweet, falling back to id_str.
func itemID(item json.RawMessage) (int64, error) {
	if id, err := jsonparser.GetInt(item, "id"); err == nil {
		return id, nil
	}
	idStr, err := jsonparser.GetString(item, "id_str")
	if err != nil {
		return 0, fmt.Errorf("%w: item has no id", ErrMalformedPage)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id_str %q: %v", ErrMalformedPage, idStr, err)
	}
	return id, nil
}
