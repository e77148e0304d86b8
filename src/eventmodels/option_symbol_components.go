package eventmodels

import "time"

type OptionSymbolComponents struct {
	Underlying  StockSymbol
	Expiration  time.Time
	OptionType  OptionType
	StrikePrice float64
	Symbol      OptionSymbol
}
