package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorageContract(t *testing.T, storage TokenStorage) {
	t.Helper()
	ctx := context.Background()

	value, err := storage.GetItem(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, value, "a missing key reads as empty, not an error")

	require.NoError(t, storage.SetItem(ctx, "session", `{"access_token":"abc"}`))
	value, err = storage.GetItem(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"abc"}`, value)

	require.NoError(t, storage.SetItem(ctx, "session", `{"access_token":"overwritten"}`))
	value, err = storage.GetItem(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"overwritten"}`, value)

	require.NoError(t, storage.RemoveItem(ctx, "session"))
	value, err = storage.GetItem(ctx, "session")
	require.NoError(t, err)
	assert.Empty(t, value)

	assert.NoError(t, storage.RemoveItem(ctx, "never-existed"))
}

func TestMemoryStorage(t *testing.T) {
	testStorageContract(t, NewMemoryStorage())
}

func TestFileStorage(t *testing.T) {
	storage, err := NewFileStorage(filepath.Join(t.TempDir(), "tokens"))
	require.NoError(t, err)
	testStorageContract(t, storage)
}

func TestFileStorageSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, first.SetItem(ctx, "session", "persisted"))

	second, err := NewFileStorage(dir)
	require.NoError(t, err)
	value, err := second.GetItem(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, "persisted", value)
}

func TestFileStorageSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileStorage(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, storage.SetItem(ctx, "../escape/attempt", "contained"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the key stays inside the storage directory")

	value, err := storage.GetItem(ctx, "../escape/attempt")
	require.NoError(t, err)
	assert.Equal(t, "contained", value)
}

func TestFileStoragePermissions(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, storage.SetItem(context.Background(), "session", "secret"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
