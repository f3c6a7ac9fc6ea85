package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FEEDGEN_PUBLISHER_DID", "did:plc:pub")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Hostname)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "did:plc:pub", cfg.PublisherDID)
	assert.Equal(t, "likesback.db", cfg.SQLitePath)
	assert.Equal(t, "https://bsky.social", cfg.PDSHost)
}

func TestLoadRequiresPublisherDID(t *testing.T) {
	t.Setenv("FEEDGEN_PUBLISHER_DID", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FEEDGEN_PUBLISHER_DID", "did:plc:pub")
	t.Setenv("FEEDGEN_HOSTNAME", "feed.example.com")
	t.Setenv("PORT", "8080")
	t.Setenv("FEEDGEN_SQLITE_LOCATION", "/data/feed.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "feed.example.com", cfg.Hostname)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/data/feed.db", cfg.SQLitePath)
	assert.Equal(t, "did:web:feed.example.com", cfg.ServiceDID())
}
