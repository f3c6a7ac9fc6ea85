package firehose

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmurata/bluesky-likesback/internal/domain"
)

// fakeStore implements the like and cursor ports with an in-memory map.
type fakeStore struct {
	likes   map[string]domain.Like
	cursors map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		likes:   make(map[string]domain.Like),
		cursors: make(map[string]int64),
	}
}

func (f *fakeStore) CreateLike(_ context.Context, like *domain.Like) error {
	if _, ok := f.likes[like.URI]; ok {
		return nil
	}
	f.likes[like.URI] = *like
	return nil
}

func (f *fakeStore) DeleteLike(_ context.Context, uri string) error {
	delete(f.likes, uri)
	return nil
}

func (f *fakeStore) ListLikesBySubject(context.Context, string, *domain.Cursor, int) ([]domain.Like, error) {
	return nil, nil
}

func (f *fakeStore) CountLikesByActor(context.Context, string, domain.Cursor) (map[string]int, error) {
	return nil, nil
}

func (f *fakeStore) DeleteOldLikes(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeStore) GetCursor(_ context.Context, service string) (int64, error) {
	return f.cursors[service], nil
}

func (f *fakeStore) UpdateCursor(_ context.Context, service string, cursor int64) error {
	f.cursors[service] = cursor
	return nil
}

type fakeGate struct {
	admitted map[string]bool
}

func (f *fakeGate) IsAdmitted(did string) bool {
	return f.admitted[did]
}

func newTestSubscriber(store *fakeStore, gate *fakeGate) *Subscriber {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := domain.NewFeedService("at://did:ex:pub/app.bsky.feed.generator/likes-back", store, store, nil, logger)
	return NewSubscriber("wss://jetstream.test/subscribe", svc, gate, logger)
}

func likeCommitEvent(liker, rkey, subjectURI, op string) *jetstreamEvent {
	commit := &jetstreamCommit{
		Operation:  op,
		Collection: likeCollection,
		RKey:       rkey,
		CID:        "bafyrei",
	}
	if op == "create" {
		commit.Record = &likeRecord{
			Type:      likeCollection,
			Subject:   strongRef{URI: subjectURI, CID: "bafyrei"},
			CreatedAt: "2026-08-30T00:00:00Z",
		}
	}
	return &jetstreamEvent{DID: liker, TimeUS: 1, Kind: "commit", Commit: commit}
}

func TestHandleCommitStoresAdmittedLike(t *testing.T) {
	store := newFakeStore()
	gate := &fakeGate{admitted: map[string]bool{"did:ex:subject": true}}
	sub := newTestSubscriber(store, gate)

	event := likeCommitEvent("did:ex:liker", "3l3q", "at://did:ex:subject/app.bsky.feed.post/3abc", "create")
	stored, err := sub.handleCommit(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, stored)

	uri := "at://did:ex:liker/app.bsky.feed.like/3l3q"
	like, ok := store.likes[uri]
	require.True(t, ok)
	assert.Equal(t, "did:ex:liker", like.DID)
	assert.Equal(t, "did:ex:subject", like.SubjectDID)
	assert.False(t, like.IndexedAt.IsZero())
}

func TestHandleCommitSkipsUnadmittedSubject(t *testing.T) {
	store := newFakeStore()
	sub := newTestSubscriber(store, &fakeGate{admitted: map[string]bool{}})

	event := likeCommitEvent("did:ex:liker", "3l3q", "at://did:ex:nobody/app.bsky.feed.post/3abc", "create")
	stored, err := sub.handleCommit(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Empty(t, store.likes)
}

func TestHandleCommitSkipsMalformedSubject(t *testing.T) {
	store := newFakeStore()
	gate := &fakeGate{admitted: map[string]bool{"did:ex:subject": true}}
	sub := newTestSubscriber(store, gate)

	event := likeCommitEvent("did:ex:liker", "3l3q", "https://not-an-at-uri", "create")
	stored, err := sub.handleCommit(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Empty(t, store.likes)
}

func TestHandleCommitDeleteRemovesLike(t *testing.T) {
	store := newFakeStore()
	gate := &fakeGate{admitted: map[string]bool{"did:ex:subject": true}}
	sub := newTestSubscriber(store, gate)

	create := likeCommitEvent("did:ex:liker", "3l3q", "at://did:ex:subject/app.bsky.feed.post/3abc", "create")
	_, err := sub.handleCommit(context.Background(), create)
	require.NoError(t, err)
	require.Len(t, store.likes, 1)

	del := likeCommitEvent("did:ex:liker", "3l3q", "", "delete")
	stored, err := sub.handleCommit(context.Background(), del)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Empty(t, store.likes)
}

func TestHandleCommitIgnoresOtherCollections(t *testing.T) {
	store := newFakeStore()
	sub := newTestSubscriber(store, &fakeGate{})

	event := &jetstreamEvent{
		DID:  "did:ex:liker",
		Kind: "commit",
		Commit: &jetstreamCommit{
			Operation:  "create",
			Collection: "app.bsky.feed.post",
			RKey:       "3abc",
		},
	}
	stored, err := sub.handleCommit(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestParseEventLikeCommit(t *testing.T) {
	data := []byte(`{
		"did": "did:plc:liker",
		"time_us": 1725000000000000,
		"kind": "commit",
		"commit": {
			"rev": "3l3r",
			"operation": "create",
			"collection": "app.bsky.feed.like",
			"rkey": "3l3q",
			"cid": "bafyrei",
			"record": {
				"$type": "app.bsky.feed.like",
				"subject": {"uri": "at://did:plc:subject/app.bsky.feed.post/3abc", "cid": "bafyrei"},
				"createdAt": "2026-08-30T00:00:00Z"
			}
		}
	}`)

	event, err := parseEvent(data)
	require.NoError(t, err)

	assert.Equal(t, "did:plc:liker", event.DID)
	assert.Equal(t, int64(1725000000000000), event.TimeUS)
	require.NotNil(t, event.Commit)
	require.NotNil(t, event.Commit.Record)
	assert.Equal(t, "at://did:plc:subject/app.bsky.feed.post/3abc", event.Commit.Record.Subject.URI)
}

func TestParseEventNonCommit(t *testing.T) {
	event, err := parseEvent([]byte(`{"did": "did:plc:x", "time_us": 5, "kind": "identity"}`))
	require.NoError(t, err)
	assert.Nil(t, event.Commit)
}

func TestAuthorDID(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{"post uri", "at://did:plc:abc/app.bsky.feed.post/3abc", "did:plc:abc", false},
		{"bare authority", "at://did:plc:abc", "did:plc:abc", false},
		{"not at-uri", "https://example.com/x", "", true},
		{"empty authority", "at:///app.bsky.feed.post/3abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authorDID(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
