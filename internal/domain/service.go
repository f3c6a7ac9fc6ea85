package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrUnknownFeed is returned when a skeleton is requested for a feed URI this
// generator does not serve.
var ErrUnknownFeed = errors.New("unknown feed")

// ErrMissingSubject is returned when no requester DID is supplied for a
// personalized feed page.
var ErrMissingSubject = errors.New("subject DID is required")

const (
	minPageSize = 1
	maxPageSize = 100
)

// FeedService is the core domain service. It records like events from the
// firehose, prunes stale likes, and assembles likes-back feed pages: recent
// posts authored by the people who recently liked the requester's posts, one
// post per like, newest like first.
type FeedService struct {
	feedURI string
	repo    LikeRepository
	cursors CursorRepository
	source  AuthorFeedSource
	logger  *slog.Logger
}

// NewFeedService creates a FeedService serving the likes-back feed at feedURI.
func NewFeedService(feedURI string, repo LikeRepository, cursors CursorRepository, source AuthorFeedSource, logger *slog.Logger) *FeedService {
	return &FeedService{
		feedURI: feedURI,
		repo:    repo,
		cursors: cursors,
		source:  source,
		logger:  logger,
	}
}

// FeedURIs returns the AT-URIs of all feeds this generator serves.
func (s *FeedService) FeedURIs() []string {
	return []string{s.feedURI}
}

// ProcessLike records a like event. Replays of an already-stored like URI are
// no-ops.
func (s *FeedService) ProcessLike(ctx context.Context, like *Like) error {
	if err := s.repo.CreateLike(ctx, like); err != nil {
		return fmt.Errorf("create like: %w", err)
	}
	return nil
}

// ProcessUnlike removes a like by its record URI.
func (s *FeedService) ProcessUnlike(ctx context.Context, uri string) error {
	return s.repo.DeleteLike(ctx, uri)
}

// GetCursor retrieves the last-processed firehose cursor for the given service.
func (s *FeedService) GetCursor(ctx context.Context, service string) (int64, error) {
	return s.cursors.GetCursor(ctx, service)
}

// UpdateCursor persists the firehose cursor for the given service.
func (s *FeedService) UpdateCursor(ctx context.Context, service string, cursor int64) error {
	return s.cursors.UpdateCursor(ctx, service, cursor)
}

// GetFeedSkeleton assembles one page of the likes-back feed for subjectDID.
//
// The page is driven by the subject's stored likes in (indexedAt, uri)
// descending order. Each like pulls the liker's next unconsumed authored
// post; a like whose liker has no post left contributes nothing. Output
// order always equals like order, regardless of fetch completion order.
//
// A malformed cursor restarts pagination from the top. The returned cursor
// is empty when no further page exists.
func (s *FeedService) GetFeedSkeleton(ctx context.Context, feedURI, subjectDID string, limit int, cursor string) (*FeedSkeleton, error) {
	if feedURI != s.feedURI {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, feedURI)
	}
	if subjectDID == "" {
		return nil, ErrMissingSubject
	}
	if limit < minPageSize {
		limit = minPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var before *Cursor
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			s.logger.Warn("ignoring malformed cursor", "cursor", cursor, "error", err)
		} else {
			before = &c
		}
	}

	// limit+1 lookahead detects whether a next page exists.
	likes, err := s.repo.ListLikesBySubject(ctx, subjectDID, before, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}

	hasMore := len(likes) > limit
	if hasMore {
		likes = likes[:limit]
	}

	if len(likes) == 0 {
		return &FeedSkeleton{Posts: []SkeletonPost{}}, nil
	}

	// Likers at or after the boundary were consumed by earlier pages; their
	// counts become skip offsets into the fresh candidate stream. Deriving
	// the offsets from stored likes keeps the cursor boundary-only.
	var consumed map[string]int
	if before != nil {
		consumed, err = s.repo.CountLikesByActor(ctx, subjectDID, *before)
		if err != nil {
			return nil, fmt.Errorf("count consumed likes: %w", err)
		}
	}

	needs := make(map[string]candidateNeed)
	for _, l := range likes {
		n := needs[l.DID]
		n.count++
		n.offset = consumed[l.DID]
		needs[l.DID] = n
	}

	candidates := fetchCandidates(ctx, s.source, needs, s.logger)

	// next indexes each liker's immutable candidate slice; used dedupes
	// post URIs within the page.
	next := make(map[string]int, len(needs))
	used := make(map[string]struct{})
	posts := make([]SkeletonPost, 0, len(likes))

	for _, l := range likes {
		pool := candidates[l.DID]
		i := next[l.DID]
		for i < len(pool) {
			if _, dup := used[pool[i].URI]; !dup {
				break
			}
			i++
		}
		if i >= len(pool) {
			// Liker has no fresh post left for this like.
			next[l.DID] = i
			continue
		}
		posts = append(posts, SkeletonPost{Post: pool[i].URI})
		used[pool[i].URI] = struct{}{}
		next[l.DID] = i + 1
	}

	skeleton := &FeedSkeleton{Posts: posts}
	if hasMore {
		last := likes[len(likes)-1]
		skeleton.Cursor = Cursor{IndexedAt: last.IndexedAt, URI: last.URI}.Encode()
	}
	return skeleton, nil
}

// StartCleanupJob runs a background loop that removes likes older than
// maxAge. It runs immediately on start and then repeats at the given
// interval. It blocks until ctx is cancelled.
func (s *FeedService) StartCleanupJob(ctx context.Context, interval, maxAge time.Duration) {
	s.runCleanup(ctx, maxAge)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup(ctx, maxAge)
		}
	}
}

func (s *FeedService) runCleanup(ctx context.Context, maxAge time.Duration) {
	deleted, err := s.repo.DeleteOldLikes(ctx, maxAge)
	if err != nil {
		s.logger.Error("like cleanup failed", "error", err)
	} else if deleted > 0 {
		s.logger.Info("like cleanup complete", "deleted", deleted)
	}
}
