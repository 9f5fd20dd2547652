// Package marketcache implements the historical market data service: a
// segmented on-disk cache backed by a hot in-memory layer, with optional
// provider retries and a secondary mirror tier.
package marketcache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/marketreplay/backtester/internal/market"
)

// segment is one cached [start, end] window for a ticker.
type segment struct {
	start, end time.Time
	data       *market.HistoricalData
}

// covers reports whether this segment fully contains [start, end].
func (s segment) covers(start, end time.Time) bool {
	return !s.start.After(start) && !s.end.Before(end)
}

// overlaps reports whether this segment overlaps or is adjacent to
// [start, end] (adjacency lets consecutive fetches merge into one run).
func (s segment) overlaps(start, end time.Time) bool {
	return !s.end.Before(start.Add(-24*time.Hour)) && !s.start.After(end.Add(24*time.Hour))
}

// FileCache is a per-ticker sorted segment index persisted as one binary
// file per (ticker, start, end) window under dir. Corrupted files are
// deleted on deserialization failure.
type FileCache struct {
	dir string
	mu  sync.Mutex
	idx map[string][]segment
}

// NewFileCache creates a file cache rooted at dir, creating it if absent.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("marketcache: create cache dir: %w", err)
	}
	return &FileCache{dir: dir, idx: make(map[string][]segment)}, nil
}

func (c *FileCache) path(ticker string, start, end time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.bin", ticker, start.Format("20060102"), end.Format("20060102"))
	return filepath.Join(c.dir, name)
}

// Lookup returns a HistoricalData covering [start, end] for ticker if a
// cached segment (possibly loaded lazily from disk) already covers it.
func (c *FileCache) Lookup(ticker string, start, end time.Time) (*market.HistoricalData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, seg := range c.idx[ticker] {
		if seg.covers(start, end) {
			return seg.data, true
		}
	}
	return nil, false
}

// Store persists data for ticker's [start, end] window both to the
// in-process index and to disk, merging with any overlapping segment
// already indexed.
func (c *FileCache) Store(ticker string, start, end time.Time, data *market.HistoricalData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	segs := c.idx[ticker]
	merged := segment{start: start, end: end, data: data}
	remaining := segs[:0]
	for _, seg := range segs {
		if seg.overlaps(start, end) {
			if seg.start.Before(merged.start) {
				merged.start = seg.start
			}
			if seg.end.After(merged.end) {
				merged.end = seg.end
			}
			for _, p := range seg.data.All() {
				_ = merged.data.Add(p) // ignore dup-minute overwrite
			}
			continue
		}
		remaining = append(remaining, seg)
	}
	remaining = append(remaining, merged)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].start.Before(remaining[j].start) })
	c.idx[ticker] = remaining

	raw, err := data.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marketcache: marshal %s: %w", ticker, err)
	}
	if err := os.WriteFile(c.path(ticker, start, end), raw, 0o644); err != nil {
		return fmt.Errorf("marketcache: write %s: %w", ticker, err)
	}
	return nil
}

// Load attempts to read ticker's [start, end] window from disk, deleting
// the file if it is corrupt.
func (c *FileCache) Load(ticker string, start, end time.Time) (*market.HistoricalData, bool) {
	p := c.path(ticker, start, end)
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	data := market.NewHistoricalData(ticker)
	if err := data.UnmarshalBinary(raw); err != nil {
		_ = os.Remove(p)
		return nil, false
	}
	c.mu.Lock()
	c.idx[ticker] = append(c.idx[ticker], segment{start: start, end: end, data: data})
	c.mu.Unlock()
	return data, true
}
