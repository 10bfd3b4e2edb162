package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPayload struct {
	Symbol string    `json:"symbol"`
	Closes []float64 `json:"closes"`
}

func TestCacheRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Minute, true)
	params := map[string]string{"symbol": "AAPL", "start": "2024-01-02"}
	stored := cachedPayload{Symbol: "AAPL", Closes: []float64{101, 102, 104}}

	require.NoError(t, cm.Set("yahoo", "daily", params, stored))

	var loaded cachedPayload
	require.True(t, cm.Get("yahoo", "daily", params, &loaded))
	assert.Equal(t, stored, loaded)
}

func TestCacheMiss(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Minute, true)

	var loaded cachedPayload
	assert.False(t, cm.Get("yahoo", "daily", map[string]string{"symbol": "AAPL"}, &loaded))
}

func TestCacheDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cm := NewCacheManager(dir, time.Minute, false)
	params := map[string]string{"symbol": "AAPL"}

	require.NoError(t, cm.Set("yahoo", "daily", params, cachedPayload{Symbol: "AAPL"}))

	var loaded cachedPayload
	assert.False(t, cm.Get("yahoo", "daily", params, &loaded))

	// A disabled cache never touches the filesystem.
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestCacheExpiry(t *testing.T) {
	dir := t.TempDir()
	cm := NewCacheManager(dir, time.Millisecond, true)
	params := map[string]string{"symbol": "AAPL"}

	require.NoError(t, cm.Set("yahoo", "daily", params, cachedPayload{Symbol: "AAPL"}))
	time.Sleep(10 * time.Millisecond)

	var loaded cachedPayload
	assert.False(t, cm.Get("yahoo", "daily", params, &loaded))

	// Expired entries are removed on read.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCacheKeyDependsOnParams(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Minute, true)

	a := cm.cacheKey("yahoo", "daily", map[string]string{"symbol": "AAPL"})
	b := cm.cacheKey("yahoo", "daily", map[string]string{"symbol": "AAPL"})
	c := cm.cacheKey("yahoo", "daily", map[string]string{"symbol": "MSFT"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "yahoo_daily_"))
	assert.True(t, strings.HasSuffix(a, ".json"))
}

func TestCacheClearKeepsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	cm := NewCacheManager(dir, time.Minute, true)

	require.NoError(t, cm.Set("yahoo", "daily", map[string]string{"symbol": "AAPL"}, cachedPayload{}))
	require.NoError(t, cm.Set("yahoo", "daily", map[string]string{"symbol": "MSFT"}, cachedPayload{}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.txt"), []byte("keep"), 0644))

	require.NoError(t, cm.Clear())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "note.txt", entries[0].Name())
}

func TestCacheClearMissingDirectory(t *testing.T) {
	cm := NewCacheManager(filepath.Join(t.TempDir(), "missing"), time.Minute, true)

	assert.NoError(t, cm.Clear())
}
