package eventmodels

import "time"

type HedgePhase string

const (
	HedgePhaseIdle    HedgePhase = "idle"
	HedgePhaseHedging HedgePhase = "hedging"
	HedgePhaseResting HedgePhase = "resting"
)

// HedgeState tracks one ticker's hedging loop. Created on the first signal
// for the ticker and kept for as long as the ticker stays configured.
type HedgeState struct {
	Symbol      StockSymbol
	Phase       HedgePhase
	NetDelta    float64
	InFlightQty int // signed share quantity of an unconfirmed hedge order
	LastHedge   time.Time
	RestUntil   time.Time
}

func NewHedgeState(symbol StockSymbol) *HedgeState {
	return &HedgeState{
		Symbol: symbol,
		Phase:  HedgePhaseIdle,
	}
}

// EffectiveNetDelta includes unconfirmed hedge orders so the same imbalance
// is never hedged twice.
func (h *HedgeState) EffectiveNetDelta() float64 {
	return h.NetDelta + float64(h.InFlightQty)
}

func (h *HedgeState) IsResting(now time.Time) bool {
	return h.Phase == HedgePhaseResting && now.Before(h.RestUntil)
}
