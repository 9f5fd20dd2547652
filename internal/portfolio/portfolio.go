package portfolio

import "time"

// marginRequirement is the fraction of notional reserved against a short
// position: 50% on open, released at 50% of entry notional on cover.
const marginRequirement = 0.5

// Portfolio is the aggregate of one strategy's holdings, cash, and margin.
// Cash never goes negative, margin is reserved/released symmetrically, and
// a position is removed from its map the instant it goes flat.
type Portfolio struct {
	Cash            float64
	MarginAvailable float64
	TotalPositions  int64

	longs  map[string]*Position
	shorts map[string]*ShortPosition
	opts   map[string][]Option
	stops  map[string][]StopOrder

	lastClose map[string]float64
}

// New creates a Portfolio with the given initial cash. MarginAvailable
// starts at 2x initial cash.
func New(initialCash float64) *Portfolio {
	return &Portfolio{
		Cash:            initialCash,
		MarginAvailable: initialCash * 2,
		longs:           make(map[string]*Position),
		shorts:          make(map[string]*ShortPosition),
		opts:            make(map[string][]Option),
		stops:           make(map[string][]StopOrder),
		lastClose:       make(map[string]float64),
	}
}

// Long returns the long position for ticker, if any.
func (p *Portfolio) Long(ticker string) (*Position, bool) {
	pos, ok := p.longs[ticker]
	return pos, ok
}

// Short returns the short position for ticker, if any.
func (p *Portfolio) Short(ticker string) (*ShortPosition, bool) {
	pos, ok := p.shorts[ticker]
	return pos, ok
}

// Options returns the option legs open for ticker.
func (p *Portfolio) Options(ticker string) []Option { return p.opts[ticker] }

// StopOrders returns the stop orders recorded for ticker.
func (p *Portfolio) StopOrders(ticker string) []StopOrder { return p.stops[ticker] }

// Longs returns every ticker with an open long position.
func (p *Portfolio) Longs() map[string]*Position { return p.longs }

// Shorts returns every ticker with an open short position.
func (p *Portfolio) Shorts() map[string]*ShortPosition { return p.shorts }

func validateOrder(qty, price float64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// BuyStock opens or augments a long position. Fails with
// ErrInsufficientFunds if qty*price exceeds cash, leaving state unchanged.
func (p *Portfolio) BuyStock(ticker string, qty, price float64, at time.Time) error {
	if err := validateOrder(qty, price); err != nil {
		return err
	}
	cost := qty * price
	if cost > p.Cash {
		return ErrInsufficientFunds
	}
	pos, ok := p.longs[ticker]
	if !ok {
		pos = &Position{Ticker: ticker}
		p.longs[ticker] = pos
	}
	pos.add(qty, price, at)
	p.Cash -= cost
	p.TotalPositions++
	return nil
}

// SellStock reduces or closes a long position, crediting cash and realized
// P&L. Fails with ErrNoPosition or ErrInsufficientShares, leaving state
// unchanged.
func (p *Portfolio) SellStock(ticker string, qty, price float64, at time.Time) error {
	if err := validateOrder(qty, price); err != nil {
		return err
	}
	pos, ok := p.longs[ticker]
	if !ok {
		return ErrNoPosition
	}
	if pos.Quantity < qty {
		return ErrInsufficientShares
	}
	pos.reduce(qty, price, at)
	p.Cash += qty * price
	p.TotalPositions++
	if pos.Quantity == 0 {
		delete(p.longs, ticker)
	}
	return nil
}

// ShortStock opens or augments a short position. Fails with
// ErrInsufficientMargin if the required margin (qty*price*0.5) exceeds
// MarginAvailable.
func (p *Portfolio) ShortStock(ticker string, qty, price float64, at time.Time) error {
	if err := validateOrder(qty, price); err != nil {
		return err
	}
	required := qty * price * marginRequirement
	if required > p.MarginAvailable {
		return ErrInsufficientMargin
	}
	pos, ok := p.shorts[ticker]
	if !ok {
		pos = &ShortPosition{Ticker: ticker}
		p.shorts[ticker] = pos
	}
	pos.add(qty, price, at)
	p.Cash += qty * price
	p.MarginAvailable -= required
	p.TotalPositions++
	return nil
}

// CoverShort reduces or closes a short position. Fails with
// ErrNoShortPosition, ErrInsufficientShares, or ErrInsufficientFunds
// (covering at a price requiring more cash than is available).
func (p *Portfolio) CoverShort(ticker string, qty, price float64, at time.Time) error {
	if err := validateOrder(qty, price); err != nil {
		return err
	}
	pos, ok := p.shorts[ticker]
	if !ok {
		return ErrNoShortPosition
	}
	if pos.Quantity < qty {
		return ErrInsufficientShares
	}
	cost := qty * price
	if cost > p.Cash {
		return ErrInsufficientFunds
	}
	entryPrice := pos.EntryPrice
	pos.reduce(qty, price, at)
	p.Cash -= cost
	p.MarginAvailable += qty * entryPrice * marginRequirement
	p.TotalPositions++
	if pos.Quantity == 0 {
		delete(p.shorts, ticker)
	}
	return nil
}

// BuyOption appends a long option leg. Fails with ErrInsufficientFunds if
// contracts*premium*100 exceeds cash.
func (p *Portfolio) BuyOption(o Option) error {
	if o.Contracts <= 0 {
		return ErrInvalidQuantity
	}
	cost := o.Contracts * o.Premium * 100
	if cost > p.Cash {
		return ErrInsufficientFunds
	}
	p.opts[o.Ticker] = append(p.opts[o.Ticker], o)
	p.Cash -= cost
	p.TotalPositions++
	return nil
}

// SetStopLoss records a stop-loss order. The engine never auto-triggers it.
func (p *Portfolio) SetStopLoss(ticker string, trigger, qty float64) {
	p.stops[ticker] = append(p.stops[ticker], StopOrder{
		Ticker: ticker, TriggerPrice: trigger, Quantity: qty, Type: StopLoss,
	})
	p.TotalPositions++
}

// SetTakeProfit records a take-profit order. The engine never auto-triggers
// it.
func (p *Portfolio) SetTakeProfit(ticker string, trigger, qty float64) {
	p.stops[ticker] = append(p.stops[ticker], StopOrder{
		Ticker: ticker, TriggerPrice: trigger, Quantity: qty, Type: TakeProfit,
	})
	p.TotalPositions++
}

// TotalValue sums cash plus long mark-to-close, minus short mark-to-close,
// plus option mark-to-market. currentPrices need not cover every ticker
// held: a ticker absent from the map falls back to the last-seen close
// recorded by a prior TotalValue call, seeded the first time the ticker is
// ever encountered from the long position's average cost or the short
// position's entry price.
func (p *Portfolio) TotalValue(currentPrices map[string]float64, now time.Time) float64 {
	total := p.Cash

	priceFor := func(ticker, fallbackTicker string, fallback float64) float64 {
		if px, ok := currentPrices[ticker]; ok {
			p.lastClose[ticker] = px
			return px
		}
		if px, ok := p.lastClose[ticker]; ok {
			return px
		}
		p.lastClose[ticker] = fallback
		return fallback
	}

	for ticker, pos := range p.longs {
		px := priceFor(ticker, ticker, pos.AvgCost())
		total += pos.Quantity * px
	}
	for ticker, pos := range p.shorts {
		px := priceFor(ticker, ticker, pos.EntryPrice)
		total -= pos.Quantity * px
	}
	for ticker, legs := range p.opts {
		px, ok := currentPrices[ticker]
		if !ok {
			px = p.lastClose[ticker]
		}
		for _, o := range legs {
			total += o.ValueAt(px, now)
		}
	}
	return total
}

// Snapshot is an immutable copy of the long/short mappings used by the
// trade detector to diff pre/post state around a strategy invocation.
type Snapshot struct {
	Longs  map[string]Position
	Shorts map[string]ShortPosition
}

// Snap deep-copies the quantity/cost-basis (or entry-price) fields of every
// open long and short position.
func (p *Portfolio) Snap() Snapshot {
	s := Snapshot{
		Longs:  make(map[string]Position, len(p.longs)),
		Shorts: make(map[string]ShortPosition, len(p.shorts)),
	}
	for k, v := range p.longs {
		s.Longs[k] = *v
	}
	for k, v := range p.shorts {
		s.Shorts[k] = *v
	}
	return s
}
