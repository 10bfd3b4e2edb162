package data

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"stratlab/internal/types"
)

// Store keeps fetched bar series in memory so repeated runs over the
// same range skip the file cache and network entirely
type Store struct {
	series map[string]*storedSeries
	mu     sync.RWMutex

	// Configuration
	maxSeries int
	ttl       time.Duration
}

// storedSeries is one cached range for one symbol
type storedSeries struct {
	Symbol   string
	Bars     []types.PriceBar
	StoredAt time.Time
}

// StoreConfig holds configuration for the in-memory series store
type StoreConfig struct {
	MaxSeries int           `json:"max_series"`
	TTL       time.Duration `json:"ttl"`
}

// NewStore creates an in-memory series store
func NewStore(config StoreConfig) *Store {
	if config.MaxSeries == 0 {
		config.MaxSeries = 32
	}
	if config.TTL == 0 {
		config.TTL = 15 * time.Minute
	}

	return &Store{
		series:    make(map[string]*storedSeries),
		maxSeries: config.MaxSeries,
		ttl:       config.TTL,
	}
}

// seriesKey builds the map key for one symbol and range
func seriesKey(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", symbol,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Get returns a stored series when present and fresh
func (s *Store) Get(symbol string, start, end time.Time) ([]types.PriceBar, bool) {
	key := seriesKey(symbol, start, end)

	s.mu.RLock()
	entry, ok := s.series[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Since(entry.StoredAt) > s.ttl {
		s.mu.Lock()
		delete(s.series, key)
		s.mu.Unlock()
		return nil, false
	}

	return entry.Bars, true
}

// Put stores a series, evicting the oldest entry when full
func (s *Store) Put(symbol string, start, end time.Time, bars []types.PriceBar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey(symbol, start, end)
	if _, exists := s.series[key]; !exists && len(s.series) >= s.maxSeries {
		s.evictOldest()
	}

	s.series[key] = &storedSeries{
		Symbol:   symbol,
		Bars:     bars,
		StoredAt: time.Now(),
	}
}

// evictOldest removes the stalest entry. Callers hold the write lock.
func (s *Store) evictOldest() {
	var oldestKey string
	var oldestAt time.Time

	for key, entry := range s.series {
		if oldestKey == "" || entry.StoredAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.StoredAt
		}
	}

	if oldestKey != "" {
		delete(s.series, oldestKey)
	}
}

// Symbols lists the distinct symbols currently stored
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, entry := range s.series {
		seen[entry.Symbol] = true
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	return symbols
}

// Len returns the number of stored series
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series)
}

// Clear drops every stored series
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = make(map[string]*storedSeries)
}
