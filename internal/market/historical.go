package market

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrEmptySeries is returned when a HistoricalData is asked to compute a
// percentage change with no points in range.
var ErrEmptySeries = errors.New("market: no data points in range")

// HistoricalData owns a time-indexed, ordered series of bars for exactly one
// ticker. Insertion requires a matching ticker so a series can never become
// a mixed bag of symbols.
type HistoricalData struct {
	ticker string
	points map[time.Time]DataPoint
	order  []time.Time // appended on Add; re-sorted lazily on the next read
	dirty  bool
}

// NewHistoricalData constructs an empty series pinned to ticker.
func NewHistoricalData(ticker string) *HistoricalData {
	return &HistoricalData{
		ticker: ticker,
		points: make(map[time.Time]DataPoint),
	}
}

// Ticker returns the symbol this series is pinned to.
func (h *HistoricalData) Ticker() string { return h.ticker }

// Add inserts a bar keyed by its timestamp truncated to minute precision;
// the stored bar keeps its own timestamp, and a later bar in the same
// minute replaces an earlier one. Returns
// ErrTickerMismatch if p.Ticker differs from the series' ticker, or a
// validation error if the bar itself is malformed.
func (h *HistoricalData) Add(p DataPoint) error {
	if p.Ticker != h.ticker {
		return fmt.Errorf("%w: series is %q, got %q", ErrTickerMismatch, h.ticker, p.Ticker)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	minute := p.Minute()
	if _, exists := h.points[minute]; !exists {
		h.order = append(h.order, minute)
		h.dirty = true
	}
	h.points[minute] = p
	return nil
}

func (h *HistoricalData) ensureSorted() {
	if !h.dirty {
		return
	}
	sort.Slice(h.order, func(i, j int) bool { return h.order[i].Before(h.order[j]) })
	h.dirty = false
}

// Len returns the number of distinct minutes recorded.
func (h *HistoricalData) Len() int { return len(h.order) }

// At returns the bar recorded at exactly minute, if any.
func (h *HistoricalData) At(minute time.Time) (DataPoint, bool) {
	p, ok := h.points[minute.Truncate(time.Minute)]
	return p, ok
}

// Range returns every bar with a timestamp in [start, end], inclusive on
// both ends, in ascending time order.
func (h *HistoricalData) Range(start, end time.Time) []DataPoint {
	h.ensureSorted()
	var out []DataPoint
	for _, ts := range h.order {
		if ts.Before(start) {
			continue
		}
		if ts.After(end) {
			break
		}
		out = append(out, h.points[ts])
	}
	return out
}

// All returns every bar in ascending time order.
func (h *HistoricalData) All() []DataPoint {
	h.ensureSorted()
	out := make([]DataPoint, 0, len(h.order))
	for _, ts := range h.order {
		out = append(out, h.points[ts])
	}
	return out
}

// floorAt returns the bar whose minute is the greatest minute <= ts.
func (h *HistoricalData) floorAt(ts time.Time) (DataPoint, bool) {
	h.ensureSorted()
	ts = ts.Truncate(time.Minute)
	idx := sort.Search(len(h.order), func(i int) bool { return h.order[i].After(ts) })
	if idx == 0 {
		return DataPoint{}, false
	}
	return h.points[h.order[idx-1]], true
}

// PercentChange computes the close-to-close percentage change between the
// floor-indexed bars at from and to (the last bar at or before each
// timestamp). Returns ErrEmptySeries if either side has no eligible bar.
func (h *HistoricalData) PercentChange(from, to time.Time) (float64, error) {
	start, ok := h.floorAt(from)
	if !ok {
		return 0, ErrEmptySeries
	}
	end, ok := h.floorAt(to)
	if !ok {
		return 0, ErrEmptySeries
	}
	if start.Close == 0 {
		return 0, fmt.Errorf("market: zero base close at %s", start.Timestamp)
	}
	return (end.Close - start.Close) / start.Close * 100, nil
}

// wireSeries is the stable gob layout used for cache persistence. Field
// order is fixed so encoding/gob's stream format stays deterministic across
// runs of this binary.
type wireSeries struct {
	Ticker string
	Points []DataPoint
}

// MarshalBinary implements a stable binary layout for on-disk caching.
func (h *HistoricalData) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	ws := wireSeries{Ticker: h.ticker, Points: h.All()}
	if err := gob.NewEncoder(&buf).Encode(ws); err != nil {
		return nil, fmt.Errorf("market: encode series: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary reverses MarshalBinary, replacing the receiver's contents.
func (h *HistoricalData) UnmarshalBinary(data []byte) error {
	var ws wireSeries
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ws); err != nil {
		return fmt.Errorf("market: decode series: %w", err)
	}
	h.ticker = ws.Ticker
	h.points = make(map[time.Time]DataPoint, len(ws.Points))
	h.order = h.order[:0]
	for _, p := range ws.Points {
		h.points[p.Minute()] = p
		h.order = append(h.order, p.Minute())
	}
	h.dirty = true
	return nil
}
