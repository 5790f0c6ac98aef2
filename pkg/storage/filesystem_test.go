package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveStreamAndDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel := filepath.Join("records", "rec-1", "tesis.pdf")
	name, err := store.SaveStream(rel, strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.Equal(t, rel, name)

	data, err := os.ReadFile(store.Path(rel))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(rel))
	_, err = os.Stat(store.Path(rel))
	require.True(t, os.IsNotExist(err))

	// Deleting an already missing file is not an error.
	require.NoError(t, store.Delete(rel))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	stale := filepath.Join("BATCH_20250101_080000", "reporte.csv")
	fresh := filepath.Join("BATCH_20260815_120000", "reporte.csv")
	_, err = store.SaveStream(stale, strings.NewReader("old"))
	require.NoError(t, err)
	_, err = store.SaveStream(fresh, strings.NewReader("new"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(stale), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{stale}, deleted)

	_, err = os.Stat(store.Path(stale))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(store.Path(fresh))
	require.NoError(t, err)
}
