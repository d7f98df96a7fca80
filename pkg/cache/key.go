package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix starts every key written by this package.
const KeyPrefix = "twitter-reader"

// Key identifies a cached response by resource and request parameters.
type Key struct {
	// Resource is the quota resource path, e.g. "/users/show".
	Resource string

	// Params are the request parameters that select the subject.
	Params url.Values
}

// String generates a deterministic key.
// Format: twitter-reader:users/show:user_id=783214
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if resource := strings.Trim(k.Resource, "/"); resource != "" {
		parts = append(parts, resource)
	}

	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := append([]string(nil), k.Params[name]...)
		sort.Strings(values)
		parts = append(parts, name+"="+strings.Join(values, ","))
	}

	return strings.Join(parts, ":")
}
