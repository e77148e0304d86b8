package eventconsumers

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/utils"
)

// OrderPlacer submits an order to the broker.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order *eventmodels.TradeOrder) (*eventmodels.TradierPlaceOrderResponseDTO, error)
}

// OrderJournaler persists order lifecycle events.
type OrderJournaler interface {
	RecordIntent(ctx context.Context, order *eventmodels.TradeOrder) error
	RecordPlacement(ctx context.Context, order *eventmodels.TradeOrder) error
}

// TradeDecisionEngine turns mispricing signals into at most one order per
// cycle per ticker. After a placement the ticker rests for timeToRest so the
// same dislocation is not traded twice before the book settles.
type TradeDecisionEngine struct {
	placer     OrderPlacer
	journal    OrderJournaler
	sizing     *eventmodels.SizingConfigYAML
	dryRun     bool
	timeToRest time.Duration

	mu          sync.Mutex
	lastTradeAt map[eventmodels.StockSymbol]time.Time
}

func NewTradeDecisionEngine(placer OrderPlacer, journal OrderJournaler, sizing *eventmodels.SizingConfigYAML, dryRun bool, timeToRest time.Duration) *TradeDecisionEngine {
	return &TradeDecisionEngine{
		placer:      placer,
		journal:     journal,
		sizing:      sizing,
		dryRun:      dryRun,
		timeToRest:  timeToRest,
		lastTradeAt: make(map[eventmodels.StockSymbol]time.Time),
	}
}

// SellToOpenLimitPrice nudges the limit a nickel below the rounded-up mid so
// a short opens with a realistic chance of filling.
func SellToOpenLimitPrice(mid float64) float64 {
	return math.Floor((math.Ceil(mid*100)/100-0.05)*100) / 100
}

// BuyToOpenLimitPrice mirrors SellToOpenLimitPrice on the buy side.
func BuyToOpenLimitPrice(mid float64) float64 {
	return math.Ceil((math.Floor(mid*100)/100+0.05)*100) / 100
}

// selectBestSignal applies the per-direction thresholds and returns the
// signal with the largest absolute mispricing, or nil if none qualifies.
func (e *TradeDecisionEngine) selectBestSignal(config *eventmodels.StockConfig, signals []*eventmodels.MispricingSignal) *eventmodels.MispricingSignal {
	var best *eventmodels.MispricingSignal

	for _, signal := range signals {
		switch signal.Direction {
		case eventmodels.SignalDirectionSell:
			if signal.Mispricing < config.MinOverpriced {
				continue
			}
		case eventmodels.SignalDirectionBuy:
			if -signal.Mispricing < config.MinUnderpriced {
				continue
			}
		default:
			continue
		}

		if best == nil || signal.AbsMispricing() > best.AbsMispricing() {
			best = signal
		}
	}

	return best
}

func (e *TradeDecisionEngine) isResting(symbol eventmodels.StockSymbol, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	lastTrade, found := e.lastTradeAt[symbol]
	if !found {
		return false
	}

	return now.Before(lastTrade.Add(e.timeToRest))
}

func (e *TradeDecisionEngine) markTraded(symbol eventmodels.StockSymbol, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastTradeAt[symbol] = now
}

func openContracts(position *eventmodels.Position) float64 {
	total := 0.0
	for _, leg := range position.Options {
		total += math.Abs(leg.Quantity)
	}

	return total
}

// DecideAndPlace evaluates the cycle's signals and places at most one order.
// The returned order is nil when the engine decided to stand down. In dry run
// mode the decision is made and logged but nothing leaves the process.
func (e *TradeDecisionEngine) DecideAndPlace(ctx context.Context, config *eventmodels.StockConfig, signals []*eventmodels.MispricingSignal, position *eventmodels.Position, now time.Time) (*eventmodels.TradeOrder, error) {
	if len(signals) == 0 {
		return nil, nil
	}

	if e.isResting(config.Symbol, now) {
		log.Debugf("TradeDecisionEngine: %s is resting, skipping %d signals", config.Symbol, len(signals))
		return nil, nil
	}

	best := e.selectBestSignal(config, signals)
	if best == nil {
		return nil, nil
	}

	quantity := 1
	maxNoOfPositions := 1
	if sizing, found := e.sizing.GetSizing(config.Symbol); found {
		quantity = sizing.Quantity
		maxNoOfPositions = sizing.MaxNoOfPositions
	}

	if quantity == 0 {
		log.Debugf("TradeDecisionEngine: %s is sized to zero, skipping", config.Symbol)
		return nil, nil
	}

	if openContracts(position)+float64(quantity) > float64(maxNoOfPositions) {
		log.Warnf("TradeDecisionEngine: %s has %v open contracts, max %d reached", config.Symbol, openContracts(position), maxNoOfPositions)
		return nil, nil
	}

	var side eventmodels.OrderSide
	var limitPrice float64

	switch best.Direction {
	case eventmodels.SignalDirectionSell:
		side = eventmodels.OrderSideSellToOpen
		limitPrice = SellToOpenLimitPrice(best.MarketPrice)
	case eventmodels.SignalDirectionBuy:
		side = eventmodels.OrderSideBuyToOpen
		limitPrice = BuyToOpenLimitPrice(best.MarketPrice)
	}

	if limitPrice <= 0 {
		return nil, fmt.Errorf("DecideAndPlace: %s: limit price must be positive, got %f", config.Symbol, limitPrice)
	}

	tag := utils.EncodeTag(best.Direction, best.Mispricing, limitPrice)

	order := eventmodels.NewOptionLimitOrder(config.Symbol, best.Contract.Symbol, side, quantity, limitPrice, tag, now)

	if e.dryRun {
		log.Infof("TradeDecisionEngine: DRY_RUN: would place %s", order)
		return order, nil
	}

	if err := e.journal.RecordIntent(ctx, order); err != nil {
		return nil, fmt.Errorf("DecideAndPlace: failed to journal intent: %w", err)
	}

	if _, err := e.placer.PlaceOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("DecideAndPlace: failed to place order: %w", err)
	}

	// The order is live at the broker from here on: rest the ticker and hand
	// the order back for tracking even if journaling the ack fails.
	order.Status = eventmodels.OrderStatusSubmitted

	e.markTraded(config.Symbol, now)

	if err := e.journal.RecordPlacement(ctx, order); err != nil {
		log.Errorf("DecideAndPlace: failed to journal placement of %s: %v", order, err)
	}

	log.Infof("TradeDecisionEngine: placed %s, mispricing %.4f", order, best.Mispricing)

	return order, nil
}
