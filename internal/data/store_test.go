package data

import (
	"fmt"
	"testing"
	"time"

	"stratlab/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureBars builds a short daily series for store tests.
func fixtureBars(n int) []types.PriceBar {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]types.PriceBar, n)
	for i := range bars {
		price := 100 + float64(i)
		bars[i] = types.NewPriceBar(day.AddDate(0, 0, i), price, price*1.01, price*0.99, price, 1_000_000)
	}
	return bars
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(StoreConfig{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	bars := fixtureBars(5)

	store.Put("AAPL", start, end, bars)

	got, ok := store.Get("AAPL", start, end)
	require.True(t, ok)
	assert.Equal(t, bars, got)

	// A different range is a different entry.
	_, ok = store.Get("AAPL", start, end.AddDate(0, 0, 1))
	assert.False(t, ok)
	_, ok = store.Get("MSFT", start, end)
	assert.False(t, ok)
}

func TestStoreTTL(t *testing.T) {
	store := NewStore(StoreConfig{TTL: time.Millisecond})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	store.Put("AAPL", start, end, fixtureBars(5))
	time.Sleep(10 * time.Millisecond)

	_, ok := store.Get("AAPL", start, end)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestStoreEvictsOldest(t *testing.T) {
	store := NewStore(StoreConfig{MaxSeries: 2})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	store.Put("AAPL", start, end, fixtureBars(3))
	time.Sleep(2 * time.Millisecond)
	store.Put("MSFT", start, end, fixtureBars(3))
	time.Sleep(2 * time.Millisecond)
	store.Put("NVDA", start, end, fixtureBars(3))

	assert.Equal(t, 2, store.Len())
	_, ok := store.Get("AAPL", start, end)
	assert.False(t, ok)
	_, ok = store.Get("MSFT", start, end)
	assert.True(t, ok)
	_, ok = store.Get("NVDA", start, end)
	assert.True(t, ok)
}

func TestStoreUpdateDoesNotEvict(t *testing.T) {
	store := NewStore(StoreConfig{MaxSeries: 2})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	store.Put("AAPL", start, end, fixtureBars(3))
	store.Put("MSFT", start, end, fixtureBars(3))
	store.Put("AAPL", start, end, fixtureBars(5))

	assert.Equal(t, 2, store.Len())
	got, ok := store.Get("AAPL", start, end)
	require.True(t, ok)
	assert.Len(t, got, 5)
}

func TestStoreSymbols(t *testing.T) {
	store := NewStore(StoreConfig{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	store.Put("MSFT", start, end, fixtureBars(3))
	store.Put("AAPL", start, end, fixtureBars(3))
	store.Put("AAPL", start, end.AddDate(0, 1, 0), fixtureBars(4))

	assert.Equal(t, []string{"AAPL", "MSFT"}, store.Symbols())
}

func TestStoreClear(t *testing.T) {
	store := NewStore(StoreConfig{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	store.Put("AAPL", start, end, fixtureBars(3))
	store.Clear()

	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.Symbols())
}

func TestStoreDefaultCapacity(t *testing.T) {
	store := NewStore(StoreConfig{})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 40; i++ {
		store.Put(fmt.Sprintf("S%02d", i), start, end, fixtureBars(2))
	}

	assert.Equal(t, 32, store.Len())
}
