package backtest

import (
	"time"

	"github.com/marketreplay/backtester/internal/marketdata"
)

// admitted reports whether ts falls within the tradeable session named by
// cfg: weekends are always excluded; runOnMarketClosed only lifts the
// time-of-day window, never the weekend check.
func admitted(ts time.Time, cfg marketdata.MarketConfig, runOnMarketClosed bool) bool {
	loc, err := time.LoadLocation(cfg.ZoneID)
	if err != nil {
		loc = time.UTC
	}
	local := ts.In(loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	if runOnMarketClosed {
		return true
	}
	return !beforeTOD(local, cfg.OpenTime) && !afterTOD(local, cfg.CloseTime)
}

func beforeTOD(t, tod time.Time) bool {
	return timeOfDay(t) < timeOfDay(tod)
}

func afterTOD(t, tod time.Time) bool {
	return timeOfDay(t) > timeOfDay(tod)
}

// timeOfDay reduces a timestamp to seconds-since-midnight for comparison,
// ignoring its date component.
func timeOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
