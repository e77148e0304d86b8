package eventmodels

import (
	"time"
)

// OptionChainSnapshot holds one ticker/expiration's contracts at a single
// observation time. Contracts are kept in strike order.
type OptionChainSnapshot struct {
	UnderlyingSymbol StockSymbol       `json:"underlying_symbol"`
	Expiration       time.Time         `json:"expiration"`
	UnderlyingPrice  float64           `json:"underlying_price"`
	ObservedAt       time.Time         `json:"observed_at"`
	Contracts        []*OptionContract `json:"contracts"`
}

func (s *OptionChainSnapshot) Strikes() []float64 {
	strikes := make([]float64, 0, len(s.Contracts))
	for _, c := range s.Contracts {
		strikes = append(strikes, c.Strike)
	}

	return strikes
}

// WithContracts returns a copy of the snapshot holding only the given
// contracts, preserving observation metadata.
func (s *OptionChainSnapshot) WithContracts(contracts []*OptionContract) *OptionChainSnapshot {
	return &OptionChainSnapshot{
		UnderlyingSymbol: s.UnderlyingSymbol,
		Expiration:       s.Expiration,
		UnderlyingPrice:  s.UnderlyingPrice,
		ObservedAt:       s.ObservedAt,
		Contracts:        contracts,
	}
}
