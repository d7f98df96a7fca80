package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dghubble/go-twitter/twitter"

	"github.com/Sternrassler/twitter-reader/pkg/apierror"
	"github.com/Sternrassler/twitter-reader/pkg/pagination"
	"github.com/Sternrassler/twitter-reader/pkg/ratelimit"
)

// TweetModeExtended requests untruncated tweet text.
const TweetModeExtended = "extended"

// TimelineOptions narrows GetUserTimeline.
type TimelineOptions struct {
	// SinceID returns only tweets newer than this id. Zero means no bound.
	SinceID int64

	// Extended requests full_text instead of truncated text.
	Extended bool
}

func tweetMode(extended bool) string {
	if extended {
		return TweetModeExtended
	}
	return ""
}

// SearchExpression returns recent tweets containing the exact phrase expr in
// language lang, retweets excluded. maxResults of 0 means no limit.
func (c *Client) SearchExpression(ctx context.Context, expr, lang string, maxResults int) ([]json.RawMessage, error) {
	if err := c.requireConnected("search expression"); err != nil {
		return nil, err
	}

	req, err := get(pathSearchTweets, &twitter.SearchTweetParams{
		Query:           `"` + expr + `" -filter:retweets`,
		Lang:            lang,
		ResultType:      "recent",
		Count:           100,
		IncludeEntities: twitter.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	return c.engine.Token(ctx, ratelimit.SearchTweets, req, "statuses", maxResults)
}

// GetUserTimeline returns the timeline of userID, retweets and replies
// included. The newest tweets posted during the walk come first, followed by
// the rest in descending id order.
func (c *Client) GetUserTimeline(ctx context.Context, userID int64, opts TimelineOptions) ([]json.RawMessage, error) {
	if err := c.requireConnected("get user timeline"); err != nil {
		return nil, err
	}
	if opts.SinceID < 0 {
		return nil, fmt.Errorf("since id must not be negative, got %d", opts.SinceID)
	}

	req, err := get(pathUserTimeline, &twitter.UserTimelineParams{
		UserID:          userID,
		Count:           200,
		TrimUser:        twitter.Bool(true),
		ExcludeReplies:  twitter.Bool(false),
		IncludeRetweets: twitter.Bool(true),
		TweetMode:       tweetMode(opts.Extended),
	})
	if err != nil {
		return nil, err
	}

	window := pagination.IDWindow{SinceID: opts.SinceID}
	return c.engine.WindowBackfill(ctx, ratelimit.StatusesUserTimeline, req, window, strconv.FormatInt(userID, 10))
}

// HydrateTweets looks up tweets by id in batches of 100. Deleted or
// protected tweets are absent from the result.
func (c *Client) HydrateTweets(ctx context.Context, tweetIDs []int64, extended bool) ([]json.RawMessage, error) {
	if err := c.requireConnected("hydrate tweets"); err != nil {
		return nil, err
	}

	var tweets []json.RawMessage
	for _, batch := range batches(tweetIDs, lookupBatchSize) {
		req, err := get(pathStatusLookup, &twitter.StatusLookupParams{
			ID:              batch,
			IncludeEntities: twitter.Bool(true),
			TweetMode:       tweetMode(extended),
		})
		if err != nil {
			return nil, err
		}

		body, err := c.engine.Fetch(ctx, ratelimit.StatusesLookup, req, "")
		if errors.Is(err, apierror.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		items, err := pagination.Items(body, "")
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, items...)
	}

	return tweets, nil
}

type retweeterParams struct {
	ID    int64 `url:"id"`
	Count int   `url:"count,omitempty"`
}

// GetRetweeters returns the ids of every user who retweeted tweetID,
// following the cursor through all pages of 100.
func (c *Client) GetRetweeters(ctx context.Context, tweetID int64) ([]int64, error) {
	if err := c.requireConnected("get retweeters"); err != nil {
		return nil, err
	}

	req, err := get(pathRetweeterIDs, &retweeterParams{ID: tweetID, Count: 100})
	if err != nil {
		return nil, err
	}

	items, err := c.engine.Cursor(ctx, ratelimit.StatusesRetweeters, req, "ids", strconv.FormatInt(tweetID, 10))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := strconv.ParseInt(string(item), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("retweeter id %s: %w", item, pagination.ErrMalformedPage)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
