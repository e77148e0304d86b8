package eventmodels

import (
	"fmt"
	"math"
	"time"
)

type SignalDirection string

const (
	SignalDirectionBuy  SignalDirection = "buy"
	SignalDirectionSell SignalDirection = "sell"
)

// MispricingSignal marks one contract whose market price deviates from the
// fitted surface by at least the configured threshold. Signals are produced
// and consumed within a single cycle; the ObservedAt stamp guards against
// acting on a stale snapshot.
type MispricingSignal struct {
	Contract         *OptionContract
	MarketPrice      float64
	TheoreticalPrice float64
	Mispricing       float64 // (market - theo) / theo, signed
	Direction        SignalDirection
	ObservedAt       time.Time
}

func (s *MispricingSignal) AbsMispricing() float64 {
	return math.Abs(s.Mispricing)
}

func (s *MispricingSignal) String() string {
	return fmt.Sprintf("%s %s strike %.2f: market %.3f vs theo %.3f (%.1f%%)",
		s.Direction, s.Contract.Symbol, s.Contract.Strike, s.MarketPrice, s.TheoreticalPrice, s.Mispricing*100)
}
