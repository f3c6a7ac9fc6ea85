package domain

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// fetchConcurrency bounds parallel author feed fetches. The AppView
	// rate-limits per client, so the bound stays fixed no matter how many
	// distinct likers appear on a page.
	fetchConcurrency = 10

	// fetchTimeout caps a single author feed fetch. A timed-out fetch is
	// treated like any other fetch failure.
	fetchTimeout = 10 * time.Second

	// sourcePageCap is the getAuthorFeed maximum page size.
	sourcePageCap = 100
)

// candidateNeed describes how many posts a single liker owes the page being
// assembled.
type candidateNeed struct {
	// count is the number of posts owed within this page, one per like.
	count int

	// offset is the number of posts earlier pages already consumed from
	// this liker's candidate stream.
	offset int
}

// fetchCandidates retrieves each liker's candidate posts concurrently. Per
// liker it over-fetches, drops reposts, skips the first offset posts, and
// truncates to count. A failed or timed-out fetch is logged and degrades to
// an empty candidate list for that liker only; it never aborts the batch.
func fetchCandidates(ctx context.Context, source AuthorFeedSource, needs map[string]candidateNeed, logger *slog.Logger) map[string][]AuthorPost {
	var (
		mu         sync.Mutex
		candidates = make(map[string][]AuthorPost, len(needs))
	)

	g := new(errgroup.Group)
	g.SetLimit(fetchConcurrency)

	for did, need := range needs {
		did, need := did, need
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()

			wanted := need.offset + need.count

			// Over-fetch so repost filtering rarely starves the liker.
			limit := wanted * 2
			if limit > sourcePageCap {
				limit = sourcePageCap
			}

			posts, err := source.FetchRecentPosts(fetchCtx, did, limit)
			if err != nil {
				logger.Warn("author feed fetch failed", "actor", did, "error", err)
				return nil
			}

			kept := make([]AuthorPost, 0, wanted)
			for _, p := range posts {
				if p.Repost {
					continue
				}
				kept = append(kept, p)
				if len(kept) == wanted {
					break
				}
			}
			if need.offset < len(kept) {
				kept = kept[need.offset:]
			} else {
				kept = nil
			}

			mu.Lock()
			candidates[did] = kept
			mu.Unlock()
			return nil
		})
	}

	// Fetch errors are swallowed per liker, so Wait only synchronizes.
	_ = g.Wait()

	return candidates
}
