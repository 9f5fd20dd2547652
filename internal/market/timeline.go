package market

import (
	"errors"
	"time"

	"golang.org/x/exp/slices"
)

// ErrEmptyTimeline is returned when Build has no input bars to merge.
var ErrEmptyTimeline = errors.New("market: empty timeline")

// Timeline is a total order over minute-truncated timestamps; each
// timestamp maps to a partial ticker->bar mapping (a ticker may be absent at
// a given minute).
type Timeline struct {
	minutes []time.Time
	ticks   map[time.Time]map[string]DataPoint
}

// Len returns the number of distinct minutes in the timeline.
func (t *Timeline) Len() int { return len(t.minutes) }

// Minutes returns the ordered list of distinct minutes.
func (t *Timeline) Minutes() []time.Time { return t.minutes }

// At returns the ticker->bar mapping observed at minute.
func (t *Timeline) At(minute time.Time) map[string]DataPoint { return t.ticks[minute] }

// Build merges per-ticker bar lists into a single time-ordered timeline.
// Tickers are iterated in the order they appear in series so that, per the
// first-bar-wins tie rule, ties are broken deterministically by the order
// callers supplied their series in.
func Build(series []*HistoricalData) (*Timeline, error) {
	if len(series) == 0 {
		return nil, ErrEmptyTimeline
	}
	set := make(map[time.Time]struct{})
	for _, s := range series {
		for _, p := range s.All() {
			set[p.Minute()] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil, ErrEmptyTimeline
	}
	minutes := make([]time.Time, 0, len(set))
	for m := range set {
		minutes = append(minutes, m)
	}
	slices.SortFunc(minutes, func(a, b time.Time) int {
		if a.Before(b) {
			return -1
		}
		if a.After(b) {
			return 1
		}
		return 0
	})

	ticks := make(map[time.Time]map[string]DataPoint, len(minutes))
	for _, m := range minutes {
		ticks[m] = make(map[string]DataPoint)
	}
	for _, s := range series {
		for _, p := range s.All() {
			m := p.Minute()
			bucket := ticks[m]
			if _, already := bucket[p.Ticker]; already {
				continue // first bar at this minute for this ticker wins
			}
			bucket[p.Ticker] = p
		}
	}

	return &Timeline{minutes: minutes, ticks: ticks}, nil
}
