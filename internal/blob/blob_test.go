package blob

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-system-backend/internal/apperr"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	n, err := s.Put(ctx, "a.pdf", bytes.NewReader([]byte("%PDF-1.4 body")))
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)

	ok, err := s.Exists(ctx, "a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Open(ctx, "a.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))

	require.NoError(t, s.Remove(ctx, "a.pdf"))
	ok, err = s.Exists(ctx, "a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing twice is fine.
	assert.NoError(t, s.Remove(ctx, "a.pdf"))

	_, err = s.Open(ctx, "a.pdf")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../x.pdf", "dir/x.pdf", ".."} {
		_, err := s.Put(ctx, name, bytes.NewReader(nil))
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}
}

func TestLocalStore_NoTempLeftovers(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	_, err = s.Put(ctx, "b.png", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.png", entries[0].Name())
}
