package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_PutAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir, "/uploads/")
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "recordings/a.webm", strings.NewReader("data"), 4, "video/webm")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/recordings/a.webm", url)

	b, err := os.ReadFile(filepath.Join(dir, "recordings", "a.webm"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))

	require.NoError(t, s.Delete(context.Background(), "recordings/a.webm"))
	_, err = os.Stat(filepath.Join(dir, "recordings", "a.webm"))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing key is not an error.
	assert.NoError(t, s.Delete(context.Background(), "recordings/a.webm"))
}

func TestFSStore_KeyCannotEscapeBase(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(filepath.Join(dir, "base"), "/uploads/")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../../escape.txt", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "base", "escape.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestFSStore_EmptyKey(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "", strings.NewReader("x"), 1, "text/plain")
	assert.Error(t, err)
}
