// Package pagination walks the three paging protocols of the Twitter v1.1
// API one page at a time.
//
// Every page goes through the same steps: the Limiter admits the request,
// the session sends it, the quota headers are observed and the status is
// classified. Non-success outcomes end the walk with an *apierror.Error;
// exhausted quota never does.
//
// Protocols:
//   - Cursor: friends/list, followers/list, statuses/retweeters/ids. Starts
//     at cursor -1 and follows next_cursor until it is 0.
//   - Token: search/tweets. Follows search_metadata.next_results until it is
//     absent or enough items were collected.
//   - WindowBackfill: statuses/user_timeline. Walks max_id downwards until an
//     empty page, then catches up once with since_id.
//
// Example usage:
//
//	engine := pagination.NewEngine(limiter, session, logger)
//	req := &transport.Request{Path: "/1.1/friends/list.json", Query: params}
//	users, err := engine.Cursor(ctx, ratelimit.FriendsList, req, "users", screenName)
//
// Items are returned as raw JSON and are never decoded beyond the fields
// the protocol needs.
package pagination
