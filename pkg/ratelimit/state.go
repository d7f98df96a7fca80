// Package ratelimit tracks the per-resource request quota announced by the
// API and blocks before a request until quota is known to be available.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Response headers carrying the quota of the requested resource.
const (
	HeaderRemaining = "x-rate-limit-remaining"
	HeaderReset     = "x-rate-limit-reset"
)

// Unknown marks a quota field that has not been observed yet.
const Unknown = -1

// Quota is the last known request budget of one resource.
type Quota struct {
	// Remaining requests in the current window, or Unknown.
	Remaining int `json:"remaining"`

	// Reset is the epoch second at which the window renews, or Unknown.
	Reset int64 `json:"reset"`
}

// InitialQuota permits exactly one probing request.
func InitialQuota() Quota {
	return Quota{Remaining: 1, Reset: Unknown}
}

// IsUnknown reports whether the remaining count was never observed.
func (q Quota) IsUnknown() bool {
	return q.Remaining == Unknown
}

// Exhausted reports whether the window has no requests left.
func (q Quota) Exhausted() bool {
	return q.Remaining == 0
}

// ResetAt is the wall-clock time one second after the window renews.
func (q Quota) ResetAt() time.Time {
	return time.Unix(q.Reset+1, 0)
}

// TimeUntilReset returns how long to wait at now before the window renews.
// Never negative.
func (q Quota) TimeUntilReset(now time.Time) time.Duration {
	d := q.ResetAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// QuotaFromHeaders reads the quota headers. Absent or malformed headers
// yield Unknown.
func QuotaFromHeaders(h http.Header) Quota {
	return Quota{
		Remaining: int(headerInt(h, HeaderRemaining)),
		Reset:     headerInt(h, HeaderReset),
	}
}

func headerInt(h http.Header, key string) int64 {
	v := h.Get(key)
	if v == "" {
		return Unknown
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < Unknown {
		return Unknown
	}
	return n
}

// Table holds one Quota per Resource.
type Table [numResources]Quota

// NewTable returns a table with every resource at InitialQuota.
func NewTable() Table {
	var t Table
	for i := range t {
		t[i] = InitialQuota()
	}
	return t
}
