package client

import (
	"context"
	"encoding/json"

	"github.com/dghubble/go-twitter/twitter"

	"github.com/Sternrassler/twitter-reader/pkg/ratelimit"
)

// GetFriends returns the accounts screenName follows, most recent first.
func (c *Client) GetFriends(ctx context.Context, screenName string) ([]json.RawMessage, error) {
	if err := c.requireConnected("get friends"); err != nil {
		return nil, err
	}

	req, err := get(pathFriendsList, &twitter.FriendListParams{
		ScreenName:          screenName,
		Count:               200,
		SkipStatus:          twitter.Bool(true),
		IncludeUserEntities: twitter.Bool(false),
	})
	if err != nil {
		return nil, err
	}

	return c.engine.Cursor(ctx, ratelimit.FriendsList, req, "users", screenName)
}

// GetFollowers returns the accounts following screenName, most recent first.
func (c *Client) GetFollowers(ctx context.Context, screenName string) ([]json.RawMessage, error) {
	if err := c.requireConnected("get followers"); err != nil {
		return nil, err
	}

	req, err := get(pathFollowerList, &twitter.FollowerListParams{
		ScreenName:          screenName,
		Count:               200,
		SkipStatus:          twitter.Bool(true),
		IncludeUserEntities: twitter.Bool(false),
	})
	if err != nil {
		return nil, err
	}

	return c.engine.Cursor(ctx, ratelimit.FollowersList, req, "users", screenName)
}

// GetFriendship returns the relationship between two accounts.
func (c *Client) GetFriendship(ctx context.Context, source, target string) (json.RawMessage, error) {
	if err := c.requireConnected("get friendship"); err != nil {
		return nil, err
	}

	req, err := get(pathFriendship, &twitter.FriendshipShowParams{
		SourceScreenName: source,
		TargetScreenName: target,
	})
	if err != nil {
		return nil, err
	}

	body, err := c.engine.Fetch(ctx, ratelimit.FriendshipsShow, req, source)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
