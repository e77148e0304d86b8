package eventmodels

import (
	"math"
	"time"
)

// OptionContract is an immutable snapshot of a single quote in an option chain.
type OptionContract struct {
	Symbol           OptionSymbol `json:"symbol"`
	UnderlyingSymbol StockSymbol  `json:"underlying_symbol"`
	Strike           float64      `json:"strike"`
	OptionType       OptionType   `json:"option_type"`
	Expiration       time.Time    `json:"expiration"`
	Bid              float64      `json:"bid"`
	Ask              float64      `json:"ask"`
	OpenInterest     float64      `json:"open_interest"`
	LastIV           *float64     `json:"last_iv,omitempty"`
}

func (c *OptionContract) MidPrice() float64 {
	return math.Round((c.Bid+c.Ask)/2*1000) / 1000
}

// HasConsistentQuote reports whether the quote is usable: a positive bid,
// finite non-negative prices, and bid not above ask.
func (c *OptionContract) HasConsistentQuote() bool {
	if math.IsNaN(c.Bid) || math.IsNaN(c.Ask) || math.IsInf(c.Bid, 0) || math.IsInf(c.Ask, 0) {
		return false
	}

	if c.Bid <= 0 || c.Ask < 0 {
		return false
	}

	return c.Bid <= c.Ask
}

func (c *OptionContract) TimeUntilExpiration(now time.Time) float64 {
	return c.Expiration.Sub(now).Seconds() / (365.0 * 24 * 3600)
}
