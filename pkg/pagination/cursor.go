package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

// Cursor is a numeric page pointer.
type Cursor int64

const (
	// FirstPage requests the first page of a cursored list.
	FirstPage Cursor = -1

	// LastPage is returned as next_cursor when no pages remain.
	LastPage Cursor = 0
)

// Done reports whether no further pages exist.
func (c Cursor) Done() bool {
	return c == LastPage
}

func (c Cursor) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// ContinuationToken is the query fragment a search response offers for the
// next page, e.g. "?max_id=123&q=golang&include_entities=1". Empty means no
// further pages.
type ContinuationToken string

// Done reports whether no further pages exist.
func (t ContinuationToken) Done() bool {
	return t == ""
}

// Query parses the fragment into the full query of the next request.
func (t ContinuationToken) Query() (url.Values, error) {
	return url.ParseQuery(strings.TrimPrefix(string(t), "?"))
}

// IDWindow bounds a walk over descending tweet ids. Zero fields are unset.
type IDWindow struct {
	SinceID int64
	MaxID   int64
}

// Apply writes the bounds into q, removing unset ones.
func (w IDWindow) Apply(q url.Values) {
	setID(q, "since_id", w.SinceID)
	setID(q, "max_id", w.MaxID)
}

func setID(q url.Values, key string, id int64) {
	if id > 0 {
		q.Set(key, strconv.FormatInt(id, 10))
		return
	}
	q.Del(key)
}
