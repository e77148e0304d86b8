package eventconsumers

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/eventpubsub"
	"github.com/jiaming2012/option-arb/src/pricing"
)

// flatVolModel answers a constant vol at every log-moneyness.
type flatVolModel struct {
	iv float64
}

func (m flatVolModel) Evaluate(k float64) float64              { return m.iv }
func (m flatVolModel) FitResidual() float64                    { return 0 }
func (m flatVolModel) ModelType() eventmodels.SurfaceModelType { return eventmodels.SurfaceModelRFV }

var hedgeNow = time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

func hedgeSurface(iv float64) *SurfaceContext {
	return &SurfaceContext{
		Model:         flatVolModel{iv: iv},
		Spot:          100,
		RiskFreeRate:  0.05,
		DividendYield: 0.01,
		FittedAt:      hedgeNow,
	}
}

func hedgeLeg(t *testing.T, expiration time.Time, strike, quantity float64) eventmodels.OptionPosition {
	t.Helper()

	symbol, err := eventmodels.NewOptionSymbol(eventmodels.NewStockSymbol("AAPL"), expiration, eventmodels.OptionTypeCall, strike)
	assert.NoError(t, err)

	return eventmodels.OptionPosition{Symbol: symbol, Quantity: quantity}
}

func TestComputeNetDelta(t *testing.T) {
	expiration := time.Date(2026, 9, 18, 20, 0, 0, 0, time.UTC)

	t.Run("shares only", func(t *testing.T) {
		position := &eventmodels.Position{Symbol: eventmodels.NewStockSymbol("AAPL"), Shares: 42}

		netDelta, hedgeable, err := ComputeNetDelta(hedgeSurface(0.25), position, hedgeNow)
		assert.NoError(t, err)
		assert.True(t, hedgeable)
		assert.InDelta(t, 42, netDelta, 1e-9)
	})

	t.Run("short call offsets long shares", func(t *testing.T) {
		surface := hedgeSurface(0.25)
		position := &eventmodels.Position{
			Symbol:  eventmodels.NewStockSymbol("AAPL"),
			Shares:  50,
			Options: []eventmodels.OptionPosition{hedgeLeg(t, expiration, 100, -1)},
		}

		// Symbol round-tripping truncates the expiration to midnight UTC.
		parsedExpiry := time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC)
		yearsToExpiry := parsedExpiry.Sub(hedgeNow).Seconds() / (365.0 * 24 * 3600)
		legDelta := pricing.Delta(eventmodels.OptionTypeCall, 100, 100, yearsToExpiry, 0.05, 0.25, 0.01)

		netDelta, hedgeable, err := ComputeNetDelta(surface, position, hedgeNow)
		assert.NoError(t, err)
		assert.True(t, hedgeable)
		assert.InDelta(t, 50-legDelta*100, netDelta, 1e-9)
		assert.Less(t, netDelta, 50.0)
	})

	t.Run("is deterministic", func(t *testing.T) {
		surface := hedgeSurface(0.30)
		position := &eventmodels.Position{
			Symbol: eventmodels.NewStockSymbol("AAPL"),
			Shares: 10,
			Options: []eventmodels.OptionPosition{
				hedgeLeg(t, expiration, 95, -2),
				hedgeLeg(t, expiration, 105, 1),
			},
		}

		first, _, err := ComputeNetDelta(surface, position, hedgeNow)
		assert.NoError(t, err)

		second, _, err := ComputeNetDelta(surface, position, hedgeNow)
		assert.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("an unpriceable book is not hedgeable", func(t *testing.T) {
		position := &eventmodels.Position{
			Symbol:  eventmodels.NewStockSymbol("AAPL"),
			Shares:  7,
			Options: []eventmodels.OptionPosition{hedgeLeg(t, expiration, 100, -3)},
		}

		netDelta, hedgeable, err := ComputeNetDelta(hedgeSurface(0.004), position, hedgeNow)
		assert.NoError(t, err)
		assert.False(t, hedgeable)
		assert.InDelta(t, 7, netDelta, 1e-9)
	})

	t.Run("excludes expired legs", func(t *testing.T) {
		expired := hedgeNow.Add(-24 * time.Hour)
		position := &eventmodels.Position{
			Symbol:  eventmodels.NewStockSymbol("AAPL"),
			Shares:  7,
			Options: []eventmodels.OptionPosition{hedgeLeg(t, expired, 100, -3)},
		}

		netDelta, hedgeable, err := ComputeNetDelta(hedgeSurface(0.25), position, hedgeNow)
		assert.NoError(t, err)
		assert.False(t, hedgeable)
		assert.InDelta(t, 7, netDelta, 1e-9)
	})
}

type fakeRegistrar struct {
	registered []*eventmodels.TradeOrder
}

func (f *fakeRegistrar) RegisterOrder(order *eventmodels.TradeOrder) {
	f.registered = append(f.registered, order)
}

func newHedgeFixture(shares int, dryRun bool, placer OrderPlacer, journal OrderJournaler) (*DeltaHedgeWorker, eventmodels.StockSymbol, *fakeRegistrar) {
	symbol := eventmodels.NewStockSymbol("AAPL")

	surfaces := NewSurfaceStore()
	surfaces.Set(symbol, hedgeSurface(0.25))

	positions := NewPositionStore()
	positions.Set(symbol, &eventmodels.Position{Symbol: symbol, Shares: shares, UpdatedAt: hedgeNow})

	registrar := &fakeRegistrar{}

	var wg sync.WaitGroup
	worker := NewDeltaHedgeWorker(&wg, surfaces, positions, placer, journal, registrar, dryRun, 5, time.Minute)

	return worker, symbol, registrar
}

func TestHedgeOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("inside the deadband stays idle", func(t *testing.T) {
		placer := &fakePlacer{}
		worker, symbol, _ := newHedgeFixture(3, false, placer, &fakeJournal{})

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow))
		assert.Empty(t, placer.placed)
		assert.Equal(t, eventmodels.HedgePhaseIdle, worker.state(symbol).Phase)
	})

	t.Run("outside the deadband sells the excess", func(t *testing.T) {
		placer := &fakePlacer{}
		journal := &fakeJournal{}
		worker, symbol, registrar := newHedgeFixture(40, false, placer, journal)

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow))

		assert.Len(t, placer.placed, 1)
		order := placer.placed[0]
		assert.Equal(t, eventmodels.OrderClassEquity, order.Class)
		assert.Equal(t, eventmodels.OrderSideSell, order.Side)
		assert.Equal(t, 40, order.Quantity)

		state := worker.state(symbol)
		assert.Equal(t, eventmodels.HedgePhaseResting, state.Phase)
		assert.Equal(t, -40, state.InFlightQty)
		assert.InDelta(t, 0, state.EffectiveNetDelta(), 1e-9)

		assert.Len(t, journal.intents, 1)
		assert.Len(t, journal.placements, 1)

		assert.Len(t, registrar.registered, 1)
		assert.NotNil(t, registrar.registered[0].BrokerID)
	})

	t.Run("short book buys back the deficit", func(t *testing.T) {
		placer := &fakePlacer{}
		worker, symbol, _ := newHedgeFixture(-25, false, placer, &fakeJournal{})

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow))

		assert.Len(t, placer.placed, 1)
		assert.Equal(t, eventmodels.OrderSideBuy, placer.placed[0].Side)
		assert.Equal(t, 25, placer.placed[0].Quantity)
	})

	t.Run("fill clears the in-flight quantity before the next hedge", func(t *testing.T) {
		eventpubsub.Init()

		placer := &fakePlacer{}
		worker, symbol, registrar := newHedgeFixture(40, false, placer, &fakeJournal{})

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow))
		assert.Len(t, placer.placed, 1)

		// The broker fill comes back through the monitoring worker's update
		// event and folds into the book.
		filled := registrar.registered[0]
		filled.Status = eventmodels.OrderStatusFilled
		worker.applyOrderUpdate(&eventmodels.TradierOrderUpdateEvent{Order: filled})

		state := worker.state(symbol)
		assert.Equal(t, 0, state.InFlightQty)
		assert.Equal(t, 0, worker.positions.Get(symbol).Shares)

		// The book is flat, so after the rest window nothing more is hedged.
		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow.Add(2*time.Minute)))
		assert.Len(t, placer.placed, 1)
	})

	t.Run("stands down when no option leg is priceable", func(t *testing.T) {
		placer := &fakePlacer{}
		symbol := eventmodels.NewStockSymbol("AAPL")
		expiration := time.Date(2026, 9, 18, 20, 0, 0, 0, time.UTC)

		surfaces := NewSurfaceStore()
		surfaces.Set(symbol, hedgeSurface(0.004))

		positions := NewPositionStore()
		positions.Set(symbol, &eventmodels.Position{
			Symbol:    symbol,
			Shares:    40,
			Options:   []eventmodels.OptionPosition{hedgeLeg(t, expiration, 100, -1)},
			UpdatedAt: hedgeNow,
		})

		var wg sync.WaitGroup
		worker := NewDeltaHedgeWorker(&wg, surfaces, positions, placer, &fakeJournal{}, &fakeRegistrar{}, false, 5, time.Minute)

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow))

		assert.Empty(t, placer.placed)
		assert.Equal(t, eventmodels.HedgePhaseIdle, worker.state(symbol).Phase)
	})

	t.Run("journal ack failure still rests and tracks the hedge", func(t *testing.T) {
		placer := &fakePlacer{}
		journal := &fakeJournal{placementErr: assert.AnError}
		worker, symbol, registrar := newHedgeFixture(40, false, placer, journal)

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow))

		assert.Len(t, placer.placed, 1)
		assert.Len(t, registrar.registered, 1)

		state := worker.state(symbol)
		assert.Equal(t, eventmodels.HedgePhaseResting, state.Phase)
		assert.Equal(t, -40, state.InFlightQty)

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow.Add(30*time.Second)))
		assert.Len(t, placer.placed, 1)
	})

	t.Run("sells short when no shares cover the hedge", func(t *testing.T) {
		placer := &fakePlacer{}
		symbol := eventmodels.NewStockSymbol("AAPL")
		expiration := time.Date(2026, 9, 18, 20, 0, 0, 0, time.UTC)

		surfaces := NewSurfaceStore()
		surfaces.Set(symbol, hedgeSurface(0.25))

		positions := NewPositionStore()
		positions.Set(symbol, &eventmodels.Position{
			Symbol:    symbol,
			Options:   []eventmodels.OptionPosition{hedgeLeg(t, expiration, 80, 1)},
			UpdatedAt: hedgeNow,
		})

		var wg sync.WaitGroup
		worker := NewDeltaHedgeWorker(&wg, surfaces, positions, placer, &fakeJournal{}, &fakeRegistrar{}, false, 5, time.Minute)

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow))

		assert.Len(t, placer.placed, 1)
		assert.Equal(t, eventmodels.OrderSideSellShort, placer.placed[0].Side)
	})

	t.Run("rests after a hedge until the window passes", func(t *testing.T) {
		placer := &fakePlacer{}
		worker, symbol, _ := newHedgeFixture(40, false, placer, &fakeJournal{})

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow))
		assert.Len(t, placer.placed, 1)

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow.Add(30*time.Second)))
		assert.Len(t, placer.placed, 1)
	})

	t.Run("dry run never places the hedge", func(t *testing.T) {
		placer := &fakePlacer{}
		journal := &fakeJournal{}
		worker, symbol, _ := newHedgeFixture(40, true, placer, journal)

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow))

		assert.Empty(t, placer.placed)
		assert.Empty(t, journal.intents)
		assert.Equal(t, eventmodels.HedgePhaseIdle, worker.state(symbol).Phase)
	})

	t.Run("stale surface is skipped", func(t *testing.T) {
		placer := &fakePlacer{}
		worker, symbol, _ := newHedgeFixture(40, false, placer, &fakeJournal{})

		assert.NoError(t, worker.hedgeOnce(ctx, symbol, hedgeNow.Add(10*time.Minute)))
		assert.Empty(t, placer.placed)
	})
}

func TestEffectiveNetDelta(t *testing.T) {
	state := eventmodels.NewHedgeState(eventmodels.NewStockSymbol("AAPL"))
	state.NetDelta = 37.4
	state.InFlightQty = -37

	assert.InDelta(t, 0.4, state.EffectiveNetDelta(), 1e-9)
	assert.True(t, math.Abs(state.EffectiveNetDelta()) < 5)
}
