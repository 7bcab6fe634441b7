package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "https://files.example.org/uploads/")
	require.NoError(t, err)

	rel, err := store.SaveStream("receipts/reg-1/receipt.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.org/uploads/receipts/reg-1/receipt.png", store.PublicURL(rel))

	f, err := store.Open(rel)
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "png-bytes", string(content))

	require.NoError(t, store.Delete(rel))
	require.NoError(t, store.Delete(rel))
}

func TestLocalStorageConfinesPaths(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("../../escape.txt", []byte("x"))
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "escape.txt"))
	assert.NoError(t, statErr)

	_, err = store.Save("", []byte("x"))
	assert.Error(t, err)
}

func TestLocalStorageCleanup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("exports/old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("exports/new.csv", []byte("b"))
	require.NoError(t, err)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "exports/old.csv"), old, old))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("exports", "old.csv")}, deleted)
}
