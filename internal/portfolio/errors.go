package portfolio

import "errors"

// Sentinel errors returned by Portfolio mutations. Every operation that
// returns one of these leaves the portfolio's state unchanged.
var (
	ErrInsufficientFunds  = errors.New("portfolio: insufficient cash")
	ErrInsufficientMargin = errors.New("portfolio: insufficient margin")
	ErrNoPosition         = errors.New("portfolio: no long position")
	ErrNoShortPosition    = errors.New("portfolio: no short position")
	ErrInsufficientShares = errors.New("portfolio: insufficient shares")
	ErrInvalidQuantity    = errors.New("portfolio: quantity must be positive")
	ErrInvalidPrice       = errors.New("portfolio: price must be positive")
)
