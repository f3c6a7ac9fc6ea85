package domain

import "fmt"

// FeedSkeleton is the response body for getFeedSkeleton.
type FeedSkeleton struct {
	Cursor string
	Posts  []SkeletonPost
}

// SkeletonPost is a single entry in a feed skeleton.
type SkeletonPost struct {
	// Post is the AT-URI of the post.
	Post string
}

// FeedDescription describes a single feed served by this generator.
type FeedDescription struct {
	// URI is the AT-URI of the feed generator record.
	URI string
}

// LikesBackFeedName is the record key of the likes-back feed generator record.
const LikesBackFeedName = "likes-back"

// NewLikesBackFeedURI returns the AT-URI of the likes-back feed generator
// record published by publisherDID.
func NewLikesBackFeedURI(publisherDID string) string {
	return fmt.Sprintf("at://%s/app.bsky.feed.generator/%s", publisherDID, LikesBackFeedName)
}
