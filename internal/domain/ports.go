package domain

import (
	"context"
	"time"
)

// LikeRepository defines persistence operations for indexed likes.
type LikeRepository interface {
	// CreateLike inserts a new like event. Replays of an already-stored
	// like URI are ignored.
	CreateLike(ctx context.Context, like *Like) error

	// DeleteLike removes a like by its AT-URI.
	DeleteLike(ctx context.Context, uri string) error

	// ListLikesBySubject retrieves up to limit likes whose subject is
	// subjectDID, ordered by indexedAt descending with URI descending as
	// tie-break. When before is non-nil, only likes strictly before
	// (before.IndexedAt, before.URI) under that order are returned.
	ListLikesBySubject(ctx context.Context, subjectDID string, before *Cursor, limit int) ([]Like, error)

	// CountLikesByActor counts likes for subjectDID at or after the given
	// boundary, grouped by the liker's DID. These are the events earlier
	// pages already consumed.
	CountLikesByActor(ctx context.Context, subjectDID string, from Cursor) (map[string]int, error)

	// DeleteOldLikes removes likes older than maxAge. Returns the number
	// of rows deleted.
	DeleteOldLikes(ctx context.Context, maxAge time.Duration) (int64, error)
}

// CursorRepository defines persistence operations for firehose cursors.
type CursorRepository interface {
	// GetCursor retrieves the last-processed firehose cursor for the given
	// service name. Returns 0 if no cursor has been saved.
	GetCursor(ctx context.Context, service string) (int64, error)

	// UpdateCursor persists the firehose cursor so we can resume on restart.
	UpdateCursor(ctx context.Context, service string, cursor int64) error
}

// SubscriberRepository lists the users who opted in to the feed.
type SubscriberRepository interface {
	// ListSubscriberDIDs returns the DIDs of all opted-in users.
	ListSubscriberDIDs(ctx context.Context) ([]string, error)
}

// AuthorFeedSource fetches an actor's recent authored posts, most recent
// first, excluding replies. Reposts are included in the result and flagged
// so callers can filter them.
type AuthorFeedSource interface {
	FetchRecentPosts(ctx context.Context, actorDID string, limit int) ([]AuthorPost, error)
}
