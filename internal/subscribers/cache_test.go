package subscribers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriberRepo struct {
	dids []string
	err  error
}

func (f *fakeSubscriberRepo) ListSubscriberDIDs(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.dids, nil
}

func newTestCache(repo *fakeSubscriberRepo) *Cache {
	return NewCache(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCacheStartsEmpty(t *testing.T) {
	cache := newTestCache(&fakeSubscriberRepo{dids: []string{"did:ex:a"}})

	assert.False(t, cache.IsAdmitted("did:ex:a"))
	assert.Zero(t, cache.Size())
}

func TestCacheRefresh(t *testing.T) {
	repo := &fakeSubscriberRepo{dids: []string{"did:ex:a", "did:ex:b"}}
	cache := newTestCache(repo)

	require.NoError(t, cache.Refresh(context.Background()))

	assert.True(t, cache.IsAdmitted("did:ex:a"))
	assert.True(t, cache.IsAdmitted("did:ex:b"))
	assert.False(t, cache.IsAdmitted("did:ex:c"))
	assert.Equal(t, 2, cache.Size())
}

func TestCacheRefreshReplacesSnapshot(t *testing.T) {
	repo := &fakeSubscriberRepo{dids: []string{"did:ex:a"}}
	cache := newTestCache(repo)
	require.NoError(t, cache.Refresh(context.Background()))

	repo.dids = []string{"did:ex:b"}
	require.NoError(t, cache.Refresh(context.Background()))

	assert.False(t, cache.IsAdmitted("did:ex:a"))
	assert.True(t, cache.IsAdmitted("did:ex:b"))
}

func TestCacheRefreshFailureKeepsSnapshot(t *testing.T) {
	repo := &fakeSubscriberRepo{dids: []string{"did:ex:a"}}
	cache := newTestCache(repo)
	require.NoError(t, cache.Refresh(context.Background()))

	repo.err = errors.New("database locked")
	require.Error(t, cache.Refresh(context.Background()))

	assert.True(t, cache.IsAdmitted("did:ex:a"))
}
