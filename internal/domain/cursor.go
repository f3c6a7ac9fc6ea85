package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
// Callers must treat it as "start from the beginning", never as fatal.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the pagination boundary after the last like returned on the
// previous page. The next page contains only likes strictly before
// (IndexedAt, URI) under the feed's descending sort. The URI tie-break is
// required because multiple likes can share a millisecond timestamp.
type Cursor struct {
	IndexedAt time.Time
	URI       string
}

// Encode serializes the cursor as "unixmillis::uri". The format is opaque to
// callers.
func (c Cursor) Encode() string {
	return fmt.Sprintf("%d::%s", c.IndexedAt.UnixMilli(), c.URI)
}

// DecodeCursor parses an encoded cursor. Malformed input returns an error
// wrapping ErrInvalidCursor.
func DecodeCursor(s string) (Cursor, error) {
	parts := strings.SplitN(s, "::", 2)
	if len(parts) != 2 || parts[1] == "" {
		return Cursor{}, fmt.Errorf("%w: must be in format 'timestamp::uri'", ErrInvalidCursor)
	}
	millis, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalidCursor, parts[0])
	}
	return Cursor{IndexedAt: time.UnixMilli(millis).UTC(), URI: parts[1]}, nil
}
