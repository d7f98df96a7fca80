package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/dghubble/go-twitter/twitter"

	"github.com/Sternrassler/twitter-reader/pkg/apierror"
	"github.com/Sternrassler/twitter-reader/pkg/cache"
	"github.com/Sternrassler/twitter-reader/pkg/pagination"
	"github.com/Sternrassler/twitter-reader/pkg/ratelimit"
)

// SearchUsers searches recent tweets containing word in language lang and
// returns their authors keyed by id_str. A user seen again on a later tweet
// keeps the profile of the first occurrence. maxResults bounds the number of
// tweets scanned; 0 means no limit.
func (c *Client) SearchUsers(ctx context.Context, word, lang string, maxResults int) (map[string]json.RawMessage, error) {
	if err := c.requireConnected("search users"); err != nil {
		return nil, err
	}

	req, err := get(pathSearchTweets, &twitter.SearchTweetParams{
		Query:           word + " -filter:retweets",
		Lang:            lang,
		ResultType:      "recent",
		Count:           100,
		IncludeEntities: twitter.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	tweets, err := c.engine.Token(ctx, ratelimit.SearchTweets, req, "statuses", maxResults)
	if err != nil {
		return nil, err
	}

	users := make(map[string]json.RawMessage)
	for _, tweet := range tweets {
		user, _, _, err := jsonparser.Get(tweet, "user")
		if err != nil {
			c.logger.Debug().Err(err).Msg("Tweet without user, skipping")
			continue
		}
		id, err := jsonparser.GetString(user, "id_str")
		if err != nil {
			c.logger.Debug().Err(err).Msg("User without id_str, skipping")
			continue
		}
		if _, seen := users[id]; seen {
			continue
		}
		users[id] = append(json.RawMessage(nil), user...)
	}

	c.logger.Debug().
		Str("word", word).
		Int("tweets", len(tweets)).
		Int("users", len(users)).
		Msg("Searched users")

	return users, nil
}

// GetUserInfo returns the profile of userID. With a cache configured the
// profile is served from it until the cache TTL elapses; cache failures fall
// back to the API.
func (c *Client) GetUserInfo(ctx context.Context, userID int64) (json.RawMessage, error) {
	if err := c.requireConnected("get user info"); err != nil {
		return nil, err
	}

	id := strconv.FormatInt(userID, 10)
	key := cache.Key{
		Resource: ratelimit.UsersShow.String(),
		Params:   url.Values{"user_id": {id}},
	}

	if c.cache != nil {
		entry, err := c.cache.Get(ctx, key)
		if err == nil {
			return entry.Data, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("user_id", id).Msg("Profile cache read failed")
		}
	}

	req, err := get(pathUsersShow, &twitter.UserShowParams{UserID: userID})
	if err != nil {
		return nil, err
	}

	body, err := c.engine.Fetch(ctx, ratelimit.UsersShow, req, id)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, cache.NewEntry(body, c.config.CacheTTL)); err != nil {
			c.logger.Warn().Err(err).Str("user_id", id).Msg("Profile cache write failed")
		}
	}

	return json.RawMessage(body), nil
}

// GetUsersInfo looks up profiles in batches of 100. Unknown or suspended ids
// are silently absent from the result. A batch of only such ids is answered
// with 404 and yields nothing.
func (c *Client) GetUsersInfo(ctx context.Context, userIDs []int64) ([]json.RawMessage, error) {
	if err := c.requireConnected("get users info"); err != nil {
		return nil, err
	}

	var users []json.RawMessage
	for _, batch := range batches(userIDs, lookupBatchSize) {
		req, err := get(pathUsersLookup, &twitter.UserLookupParams{
			UserID:          batch,
			IncludeEntities: twitter.Bool(false),
		})
		if err != nil {
			return nil, err
		}

		body, err := c.engine.Fetch(ctx, ratelimit.UsersLookup, req, "")
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
		users = append(users, items...)
	}

	return users, nil
}
