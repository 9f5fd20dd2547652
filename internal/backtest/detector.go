package backtest

import (
	"github.com/marketreplay/backtester/internal/portfolio"
)

// EventAction names the synthetic trade event kind the detector emits.
type EventAction string

const (
	Buy   EventAction = "BUY"
	Sell  EventAction = "SELL"
	Short EventAction = "SHORT"
	Cover EventAction = "COVER"
)

// TradeEvent is one synthetic event inferred from a pre/post portfolio
// snapshot diff. Price is the price the detector attributes to the
// event: avg cost for opens, current close for closes.
type TradeEvent struct {
	Ticker string
	Action EventAction
	Qty    float64
	Price  float64
}

// Detect diffs pre/post snapshots of the long and short mappings,
// synthesizing the trade events a tick's portfolio mutations imply. currentClose
// supplies the mark used for SELL/COVER events (the ticker's close at the
// tick being processed); it is irrelevant for BUY/SHORT events, which use
// the position's own recorded average cost / entry price.
func Detect(pre, post portfolio.Snapshot, currentClose map[string]float64) []TradeEvent {
	var events []TradeEvent

	for ticker, after := range post.Longs {
		before, existed := pre.Longs[ticker]
		switch {
		case !existed:
			events = append(events, TradeEvent{Ticker: ticker, Action: Buy, Qty: after.Quantity, Price: after.AvgCost()})
		case after.Quantity > before.Quantity:
			events = append(events, TradeEvent{Ticker: ticker, Action: Buy, Qty: after.Quantity - before.Quantity, Price: after.AvgCost()})
		case after.Quantity < before.Quantity:
			events = append(events, TradeEvent{Ticker: ticker, Action: Sell, Qty: before.Quantity - after.Quantity, Price: currentClose[ticker]})
		}
	}
	for ticker, before := range pre.Longs {
		if _, stillOpen := post.Longs[ticker]; !stillOpen {
			events = append(events, TradeEvent{Ticker: ticker, Action: Sell, Qty: before.Quantity, Price: currentClose[ticker]})
		}
	}

	for ticker, after := range post.Shorts {
		before, existed := pre.Shorts[ticker]
		switch {
		case !existed:
			events = append(events, TradeEvent{Ticker: ticker, Action: Short, Qty: after.Quantity, Price: after.EntryPrice})
		case after.Quantity > before.Quantity:
			events = append(events, TradeEvent{Ticker: ticker, Action: Short, Qty: after.Quantity - before.Quantity, Price: after.EntryPrice})
		case after.Quantity < before.Quantity:
			events = append(events, TradeEvent{Ticker: ticker, Action: Cover, Qty: before.Quantity - after.Quantity, Price: currentClose[ticker]})
		}
	}
	for ticker, before := range pre.Shorts {
		if _, stillOpen := post.Shorts[ticker]; !stillOpen {
			events = append(events, TradeEvent{Ticker: ticker, Action: Cover, Qty: before.Quantity, Price: currentClose[ticker]})
		}
	}

	return events
}

// Apply replays events onto a snapshot, used to test the reconstruction
// property that applying emitted events to the pre-snapshot
// reconstructs the post-snapshot.
func Apply(pre portfolio.Snapshot, events []TradeEvent) portfolio.Snapshot {
	out := portfolio.Snapshot{
		Longs:  make(map[string]portfolio.Position, len(pre.Longs)),
		Shorts: make(map[string]portfolio.ShortPosition, len(pre.Shorts)),
	}
	for k, v := range pre.Longs {
		out.Longs[k] = v
	}
	for k, v := range pre.Shorts {
		out.Shorts[k] = v
	}

	for _, e := range events {
		switch e.Action {
		case Buy:
			pos := out.Longs[e.Ticker]
			newQty := pos.Quantity + e.Qty
			pos.CostBasis = newQty * e.Price
			pos.Quantity = newQty
			pos.Ticker = e.Ticker
			out.Longs[e.Ticker] = pos
		case Sell:
			pos := out.Longs[e.Ticker]
			pos.Quantity -= e.Qty
			if pos.Quantity <= 0 {
				delete(out.Longs, e.Ticker)
			} else {
				avg := pos.CostBasis / (pos.Quantity + e.Qty)
				pos.CostBasis -= avg * e.Qty
				out.Longs[e.Ticker] = pos
			}
		case Short:
			pos := out.Shorts[e.Ticker]
			if pos.Quantity == 0 {
				pos.EntryPrice = e.Price
			}
			pos.Quantity += e.Qty
			pos.Ticker = e.Ticker
			out.Shorts[e.Ticker] = pos
		case Cover:
			pos := out.Shorts[e.Ticker]
			pos.Quantity -= e.Qty
			if pos.Quantity <= 0 {
				delete(out.Shorts, e.Ticker)
			} else {
				out.Shorts[e.Ticker] = pos
			}
		}
	}
	return out
}
