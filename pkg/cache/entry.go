package cache

import (
	"encoding/json"
	"time"
)

// Entry is one cached API response body.
type Entry struct {
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
	Expires  time.Time       `json:"expires"`
}

// NewEntry creates an entry for data that expires after ttl.
func NewEntry(data []byte, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Data:     append(json.RawMessage(nil), data...),
		CachedAt: now,
		Expires:  now.Add(ttl),
	}
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
