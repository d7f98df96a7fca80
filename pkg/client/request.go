package client

import (
	"fmt"
	"net/http"

	"github.com/google/go-querystring/query"

	"github.com/Sternrassler/twitter-reader/pkg/transport"
)

// API endpoint paths.
const (
	pathSearchTweets = "/1.1/search/tweets.json"
	pathUsersShow    = "/1.1/users/show.json"
	pathUsersLookup  = "/1.1/users/lookup.json"
	pathUserTimeline = "/1.1/statuses/user_timeline.json"
	pathStatusLookup = "/1.1/statuses/lookup.json"
	pathRetweeterIDs = "/1.1/statuses/retweeters/ids.json"
	pathFriendsList  = "/1.1/friends/list.json"
	pathFollowerList = "/1.1/followers/list.json"
	pathFriendship   = "/1.1/friendships/show.json"
)

// lookupBatchSize is the most ids users/lookup and statuses/lookup accept.
const lookupBatchSize = 100

// get builds a GET request whose query is encoded from a tagged params struct.
func get(path string, params interface{}) (*transport.Request, error) {
	values, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", path, err)
	}
	return &transport.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  values,
	}, nil
}

// batches splits ids into chunks of at most size.
func batches(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > 0 {
		n := size
		if len(ids) < n {
			n = len(ids)
		}
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
