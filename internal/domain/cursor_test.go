package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{
		IndexedAt: time.UnixMilli(1700000000123).UTC(),
		URI:       "at://did:plc:abc/app.bsky.feed.like/3l3qo2vuowo2b",
	}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestDecodeCursor(t *testing.T) {
	decoded, err := DecodeCursor("300::e3")
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(300).UTC(), decoded.IndexedAt)
	assert.Equal(t, "e3", decoded.URI)
}

func TestDecodeCursorMalformed(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"empty", ""},
		{"no separator", "garbage"},
		{"timestamp only", "12345"},
		{"non-numeric timestamp", "abc::uri"},
		{"empty timestamp", "::uri"},
		{"empty uri", "123::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.cursor)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}
