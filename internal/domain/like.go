package domain

import "time"

// Like represents an indexed like event stored in our database.
type Like struct {
	// URI is the AT-URI of the like record itself
	// (e.g. at://did:plc:abc/app.bsky.feed.like/3l3qo2vuowo2b).
	// It uniquely identifies the event.
	URI string

	// DID is the actor who performed the like.
	DID string

	// SubjectDID is the author of the liked post, i.e. the user whose
	// likes-back feed this event contributes to.
	SubjectDID string

	// IndexedAt is when we indexed this like.
	IndexedAt time.Time
}

// AuthorPost is a candidate post fetched from a liker's authored feed.
type AuthorPost struct {
	// URI is the AT-URI of the post.
	URI string

	// AuthorDID is the DID of the post's author.
	AuthorDID string

	// Repost is true when the post appears in the author's feed as a
	// repost rather than an original post.
	Repost bool
}
