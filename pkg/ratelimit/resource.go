package ratelimit

import "strings"

// Resource is one endpoint tracked with its own quota window.
type Resource int

const (
	UsersShow Resource = iota
	UsersLookup
	StatusesUserTimeline
	StatusesLookup
	SearchTweets
	StatusesRetweeters
	FriendsList
	FollowersList
	FriendshipsShow

	numResources
)

var resourcePaths = [numResources]string{
	UsersShow:            "/users/show",
	UsersLookup:          "/users/lookup",
	StatusesUserTimeline: "/statuses/user_timeline",
	StatusesLookup:       "/statuses/lookup",
	SearchTweets:         "/search/tweets",
	StatusesRetweeters:   "/statuses/retweeters",
	FriendsList:          "/friends/list",
	FollowersList:        "/followers/list",
	FriendshipsShow:      "/friendships/show",
}

// Resources returns every tracked resource in table order.
func Resources() []Resource {
	all := make([]Resource, 0, numResources)
	for r := Resource(0); r < numResources; r++ {
		all = append(all, r)
	}
	return all
}

// Valid reports whether r is one of the tracked resources.
func (r Resource) Valid() bool {
	return r >= 0 && r < numResources
}

// String returns the resource path, e.g. "/statuses/user_timeline".
func (r Resource) String() string {
	if !r.Valid() {
		return "unknown"
	}
	return resourcePaths[r]
}

// Family is the first path segment, used to query quota status.
func (r Resource) Family() string {
	return strings.SplitN(strings.TrimPrefix(r.String(), "/"), "/", 2)[0]
}

// StatusKey is the key of r inside its family in a rate_limit_status response.
func (r Resource) StatusKey() string {
	if r == UsersShow {
		return r.String() + "/:id"
	}
	return r.String()
}
