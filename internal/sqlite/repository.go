package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kmurata/bluesky-likesback/internal/domain"
	_ "modernc.org/sqlite"
)

// Repository implements domain.LikeRepository, domain.CursorRepository and
// domain.SubscriberRepository using SQLite.
type Repository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS likes (
	uri         TEXT PRIMARY KEY,
	did         TEXT NOT NULL,
	subject_did TEXT NOT NULL,
	indexed_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_likes_subject ON likes (subject_did, indexed_at DESC, uri DESC);
CREATE INDEX IF NOT EXISTS idx_likes_indexed_at ON likes (indexed_at);

CREATE TABLE IF NOT EXISTS sub_state (
	service      TEXT PRIMARY KEY,
	cursor_value INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriber (
	did TEXT PRIMARY KEY
);
`

// NewRepository opens (creating if necessary) the SQLite database at path and
// ensures the schema exists. The caller should call Close when the repository
// is no longer needed.
func NewRepository(path string) (*Repository, error) {
	// WAL lets feed reads proceed while the firehose writes; busy_timeout
	// covers the remaining write-write contention.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateLike inserts a like event. Replayed events with the same URI are
// ignored.
func (r *Repository) CreateLike(ctx context.Context, like *domain.Like) error {
	query := `
		INSERT INTO likes (uri, did, subject_did, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (uri) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		like.URI,
		like.DID,
		like.SubjectDID,
		like.IndexedAt.UnixMilli(),
	)
	return err
}

// DeleteLike removes a like by its record URI.
func (r *Repository) DeleteLike(ctx context.Context, uri string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM likes WHERE uri = ?`, uri)
	return err
}

// ListLikesBySubject retrieves likes for subjectDID ordered by indexed_at
// descending, uri descending, strictly before the boundary when present.
func (r *Repository) ListLikesBySubject(ctx context.Context, subjectDID string, before *domain.Cursor, limit int) ([]domain.Like, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if before != nil {
		rows, err = r.db.QueryContext(ctx, `
			SELECT uri, did, subject_did, indexed_at
			FROM likes
			WHERE subject_did = ? AND (indexed_at, uri) < (?, ?)
			ORDER BY indexed_at DESC, uri DESC
			LIMIT ?`,
			subjectDID, before.IndexedAt.UnixMilli(), before.URI, limit,
		)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT uri, did, subject_did, indexed_at
			FROM likes
			WHERE subject_did = ?
			ORDER BY indexed_at DESC, uri DESC
			LIMIT ?`,
			subjectDID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query likes (subject=%s, limit=%d): %w", subjectDID, limit, err)
	}
	defer rows.Close()

	var likes []domain.Like
	for rows.Next() {
		var (
			l      domain.Like
			millis int64
		)
		if err := rows.Scan(&l.URI, &l.DID, &l.SubjectDID, &millis); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		l.IndexedAt = time.UnixMilli(millis).UTC()
		likes = append(likes, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}

	return likes, nil
}

// CountLikesByActor counts likes for subjectDID at or after the boundary,
// grouped by liker DID.
func (r *Repository) CountLikesByActor(ctx context.Context, subjectDID string, from domain.Cursor) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT did, COUNT(*)
		FROM likes
		WHERE subject_did = ? AND (indexed_at, uri) >= (?, ?)
		GROUP BY did`,
		subjectDID, from.IndexedAt.UnixMilli(), from.URI,
	)
	if err != nil {
		return nil, fmt.Errorf("count likes (subject=%s): %w", subjectDID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			did   string
			count int
		)
		if err := rows.Scan(&did, &count); err != nil {
			return nil, fmt.Errorf("scan like count: %w", err)
		}
		counts[did] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate like counts: %w", err)
	}

	return counts, nil
}

// DeleteOldLikes removes likes older than maxAge. Returns the number of rows
// deleted.
func (r *Repository) DeleteOldLikes(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM likes WHERE indexed_at < ?`,
		time.Now().UTC().Add(-maxAge).UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired likes: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

// GetCursor retrieves the saved firehose cursor for a service.
func (r *Repository) GetCursor(ctx context.Context, service string) (int64, error) {
	var cursor int64
	err := r.db.QueryRowContext(ctx,
		`SELECT cursor_value FROM sub_state WHERE service = ?`, service,
	).Scan(&cursor)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return cursor, err
}

// UpdateCursor upserts the firehose cursor for a service.
func (r *Repository) UpdateCursor(ctx context.Context, service string, cursor int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sub_state (service, cursor_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (service) DO UPDATE SET cursor_value = excluded.cursor_value, updated_at = excluded.updated_at`,
		service, cursor, time.Now().UTC().UnixMilli(),
	)
	return err
}

// AddSubscriber records a user as opted in to the feed. Adding an existing
// subscriber is a no-op.
func (r *Repository) AddSubscriber(ctx context.Context, did string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriber (did) VALUES (?)
		ON CONFLICT (did) DO NOTHING`, did,
	)
	return err
}

// RemoveSubscriber removes a user's opt-in.
func (r *Repository) RemoveSubscriber(ctx context.Context, did string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subscriber WHERE did = ?`, did)
	return err
}

// ListSubscriberDIDs returns the DIDs of all opted-in users.
func (r *Repository) ListSubscriberDIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT did FROM subscriber`)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var dids []string
	for rows.Next() {
		var did string
		if err := rows.Scan(&did); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		dids = append(dids, did)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}

	return dids, nil
}
