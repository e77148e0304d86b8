package eventconsumers

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/eventpubsub"
	"github.com/jiaming2012/option-arb/src/pricing"
)

// Legs whose fitted vol is at or below this are treated as unpriceable and
// excluded from the hedge.
const minHedgeableIV = 0.005

// OrderRegistrar watches a placed order for broker-side status changes.
type OrderRegistrar interface {
	RegisterOrder(order *eventmodels.TradeOrder)
}

// DeltaHedgeWorker keeps each ticker's book delta neutral. Every tick it
// reprices the option legs off the latest fitted surface, and when the net
// delta drifts outside the deadband it places an offsetting share order.
// After a hedge the ticker rests so partial fills can settle before the next
// adjustment.
//
// Hedge state and the book are mutated only on the worker goroutine: order
// update events are queued by the bus callback and drained between ticks.
type DeltaHedgeWorker struct {
	wg        *sync.WaitGroup
	surfaces  *SurfaceStore
	positions *PositionStore
	placer    OrderPlacer
	journal   OrderJournaler
	monitor   OrderRegistrar

	dryRun        bool
	deadband      float64
	restDuration  time.Duration
	maxSurfaceAge time.Duration
	interval      time.Duration

	updates chan *eventmodels.TradierOrderUpdateEvent

	mu     sync.Mutex
	states map[eventmodels.StockSymbol]*eventmodels.HedgeState
}

func NewDeltaHedgeWorker(wg *sync.WaitGroup, surfaces *SurfaceStore, positions *PositionStore, placer OrderPlacer, journal OrderJournaler, monitor OrderRegistrar, dryRun bool, deadband float64, restDuration time.Duration) *DeltaHedgeWorker {
	return &DeltaHedgeWorker{
		wg:            wg,
		surfaces:      surfaces,
		positions:     positions,
		placer:        placer,
		journal:       journal,
		monitor:       monitor,
		dryRun:        dryRun,
		deadband:      deadband,
		restDuration:  restDuration,
		maxSurfaceAge: 5 * time.Minute,
		interval:      15 * time.Second,
		updates:       make(chan *eventmodels.TradierOrderUpdateEvent, 64),
		states:        make(map[eventmodels.StockSymbol]*eventmodels.HedgeState),
	}
}

func (w *DeltaHedgeWorker) state(symbol eventmodels.StockSymbol) *eventmodels.HedgeState {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, found := w.states[symbol]
	if !found {
		state = eventmodels.NewHedgeState(symbol)
		w.states[symbol] = state
	}

	return state
}

// ComputeNetDelta reprices every option leg off the fitted surface and
// returns the book's share-equivalent delta. Legs that are expired or whose
// fitted vol is below the hedgeable floor contribute nothing. The second
// return reports whether the book is hedgeable at all: a book whose option
// legs are all unpriceable must not have its share delta flattened.
func ComputeNetDelta(surface *SurfaceContext, position *eventmodels.Position, now time.Time) (float64, bool, error) {
	total := float64(position.Shares)
	hedgeable := len(position.Options) == 0

	for _, leg := range position.Options {
		components, err := eventmodels.NewOptionSymbolComponents(leg.Symbol)
		if err != nil {
			return 0, false, fmt.Errorf("ComputeNetDelta: failed to parse leg %s: %w", leg.Symbol, err)
		}

		t := components.Expiration.Sub(now).Seconds() / (365.0 * 24 * 3600)
		if t <= 0 {
			continue
		}

		k := math.Log(components.StrikePrice / surface.Spot)

		iv := surface.Model.Evaluate(k)
		if iv <= minHedgeableIV || math.IsNaN(iv) {
			continue
		}

		hedgeable = true

		delta := pricing.Delta(components.OptionType, surface.Spot, components.StrikePrice, t, surface.RiskFreeRate, iv, surface.DividendYield)

		total += delta * leg.Quantity * 100
	}

	return total, hedgeable, nil
}

func (w *DeltaHedgeWorker) hedgeOnce(ctx context.Context, symbol eventmodels.StockSymbol, now time.Time) error {
	surface, found := w.surfaces.Get(symbol)
	if !found {
		return nil
	}

	if now.Sub(surface.FittedAt) > w.maxSurfaceAge {
		log.Debugf("DeltaHedgeWorker: %s surface is stale, skipping", symbol)
		return nil
	}

	state := w.state(symbol)

	if state.IsResting(now) {
		return nil
	}

	if state.Phase == eventmodels.HedgePhaseResting {
		state.Phase = eventmodels.HedgePhaseIdle
	}

	position := w.positions.Get(symbol)

	netDelta, hedgeable, err := ComputeNetDelta(surface, position, now)
	if err != nil {
		return fmt.Errorf("hedgeOnce: %s: %w", symbol, err)
	}

	if !hedgeable {
		log.Debugf("DeltaHedgeWorker: %s has no priceable option leg, standing down", symbol)
		state.Phase = eventmodels.HedgePhaseIdle
		return nil
	}

	state.NetDelta = netDelta

	effective := state.EffectiveNetDelta()
	if math.Abs(effective) <= w.deadband {
		state.Phase = eventmodels.HedgePhaseIdle
		return nil
	}

	state.Phase = eventmodels.HedgePhaseHedging

	hedgeQty := -int(math.Round(effective))
	if hedgeQty == 0 {
		state.Phase = eventmodels.HedgePhaseIdle
		return nil
	}

	var side eventmodels.OrderSide
	quantity := hedgeQty
	if hedgeQty > 0 {
		side = eventmodels.OrderSideBuy
	} else {
		quantity = -hedgeQty
		if position.Shares >= quantity {
			side = eventmodels.OrderSideSell
		} else {
			side = eventmodels.OrderSideSellShort
		}
	}

	order := eventmodels.NewEquityOrder(symbol, side, quantity, "", now)

	if w.dryRun {
		log.Infof("DeltaHedgeWorker: DRY_RUN: net delta %.2f, would place %s", effective, order)
		state.Phase = eventmodels.HedgePhaseIdle
		return nil
	}

	if err := w.journal.RecordIntent(ctx, order); err != nil {
		return fmt.Errorf("hedgeOnce: failed to journal intent: %w", err)
	}

	if _, err := w.placer.PlaceOrder(ctx, order); err != nil {
		state.Phase = eventmodels.HedgePhaseIdle
		return fmt.Errorf("hedgeOnce: failed to place hedge order: %w", err)
	}

	// The hedge is live from here on: track it and start the rest window even
	// if journaling the ack fails.
	order.Status = eventmodels.OrderStatusSubmitted

	if w.monitor != nil {
		w.monitor.RegisterOrder(order)
	}

	state.InFlightQty = hedgeQty
	state.LastHedge = now
	state.Phase = eventmodels.HedgePhaseResting
	state.RestUntil = now.Add(w.restDuration)

	if err := w.journal.RecordPlacement(ctx, order); err != nil {
		log.Errorf("DeltaHedgeWorker: failed to journal placement of %s: %v", order, err)
	}

	log.Infof("DeltaHedgeWorker: %s net delta %.2f, hedging with %s", symbol, effective, order)

	return nil
}

// OnOrderUpdate queues a broker status change for the worker goroutine. The
// bus delivers events on its own goroutines, so the state is never touched
// here.
func (w *DeltaHedgeWorker) OnOrderUpdate(event *eventmodels.TradierOrderUpdateEvent) {
	select {
	case w.updates <- event:
	default:
		log.Warnf("DeltaHedgeWorker: update queue full, dropping update for order %s", event.Order.IntentID)
	}
}

// applyOrderUpdate folds a confirmed fill into the book. Equity fills clear
// the in-flight hedge quantity and publish the hedge completion.
func (w *DeltaHedgeWorker) applyOrderUpdate(event *eventmodels.TradierOrderUpdateEvent) {
	order := event.Order

	if !order.Status.IsTerminal() {
		return
	}

	now := time.Now().UTC()

	if order.Status == eventmodels.OrderStatusFilled {
		w.positions.ApplyFill(order, now)
	}

	if order.Class != eventmodels.OrderClassEquity {
		return
	}

	state := w.state(order.Symbol)
	state.InFlightQty = 0

	if order.Status == eventmodels.OrderStatusFilled {
		position := w.positions.Get(order.Symbol)

		eventpubsub.Publish("DeltaHedgeWorker", eventpubsub.HedgeCompletedEvent, &eventmodels.HedgeCompletedEvent{
			Symbol:   order.Symbol,
			NetDelta: state.NetDelta,
			Shares:   position.Shares,
		})
	}
}

func (w *DeltaHedgeWorker) drainUpdates() {
	for {
		select {
		case event := <-w.updates:
			w.applyOrderUpdate(event)
		default:
			return
		}
	}
}

func (w *DeltaHedgeWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	if err := eventpubsub.Subscribe("DeltaHedgeWorker", eventpubsub.TradierOrderUpdateEvent, w.OnOrderUpdate); err != nil {
		log.Fatalf("DeltaHedgeWorker: failed to subscribe to order updates: %v", err)
	}

	timer := time.NewTicker(w.interval)

	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				log.Info("stopping DeltaHedgeWorker consumer")
				return
			case event := <-w.updates:
				w.applyOrderUpdate(event)
			case <-timer.C:
				w.drainUpdates()

				now := time.Now().UTC()
				for _, symbol := range w.surfaces.Symbols() {
					if err := w.hedgeOnce(ctx, symbol, now); err != nil {
						log.Errorf("DeltaHedgeWorker: %v", err)
					}
				}
			}
		}
	}()
}
