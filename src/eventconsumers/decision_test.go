package eventconsumers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

type fakePlacer struct {
	placed []*eventmodels.TradeOrder
	nextID uint
}

func (f *fakePlacer) PlaceOrder(ctx context.Context, order *eventmodels.TradeOrder) (*eventmodels.TradierPlaceOrderResponseDTO, error) {
	f.placed = append(f.placed, order)
	f.nextID++

	id := f.nextID
	order.BrokerID = &id

	var response eventmodels.TradierPlaceOrderResponseDTO
	response.Order.ID = id
	response.Order.Status = "ok"

	return &response, nil
}

type fakeJournal struct {
	intents    []*eventmodels.TradeOrder
	placements []*eventmodels.TradeOrder
	statuses   []*eventmodels.TradeOrder

	placementErr error
}

func (f *fakeJournal) RecordIntent(ctx context.Context, order *eventmodels.TradeOrder) error {
	f.intents = append(f.intents, order)
	return nil
}

func (f *fakeJournal) RecordPlacement(ctx context.Context, order *eventmodels.TradeOrder) error {
	if f.placementErr != nil {
		return f.placementErr
	}

	f.placements = append(f.placements, order)
	return nil
}

func (f *fakeJournal) RecordStatusChange(ctx context.Context, order *eventmodels.TradeOrder) error {
	f.statuses = append(f.statuses, order)
	return nil
}

var decisionNow = time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

func testConfig() *eventmodels.StockConfig {
	return &eventmodels.StockConfig{
		Symbol:         eventmodels.NewStockSymbol("AAPL"),
		OptionType:     eventmodels.OptionTypeCall,
		Model:          eventmodels.SurfaceModelRFV,
		MinOverpriced:  0.15,
		MinUnderpriced: 0.15,
		MinOI:          100,
	}
}

func testSignal(t *testing.T, strike, marketPrice, mispricing float64) *eventmodels.MispricingSignal {
	t.Helper()

	expiration := time.Date(2026, 9, 18, 20, 0, 0, 0, time.UTC)

	symbol, err := eventmodels.NewOptionSymbol(eventmodels.NewStockSymbol("AAPL"), expiration, eventmodels.OptionTypeCall, strike)
	assert.NoError(t, err)

	direction := eventmodels.SignalDirectionSell
	if mispricing < 0 {
		direction = eventmodels.SignalDirectionBuy
	}

	return &eventmodels.MispricingSignal{
		Contract: &eventmodels.OptionContract{
			Symbol:           symbol,
			UnderlyingSymbol: eventmodels.NewStockSymbol("AAPL"),
			Strike:           strike,
			OptionType:       eventmodels.OptionTypeCall,
			Expiration:       expiration,
		},
		MarketPrice:      marketPrice,
		TheoreticalPrice: marketPrice / (1 + mispricing),
		Mispricing:       mispricing,
		Direction:        direction,
		ObservedAt:       decisionNow,
	}
}

func TestLimitPrices(t *testing.T) {
	// The nickel subtraction happens in binary floats, so 1.18-0.05 lands a
	// hair under 1.13 and the floor takes another cent.
	assert.InDelta(t, 1.12, SellToOpenLimitPrice(1.175), 1e-9)
	assert.InDelta(t, 2.45, SellToOpenLimitPrice(2.50), 1e-9)
	assert.InDelta(t, 1.22, BuyToOpenLimitPrice(1.175), 1e-9)
	assert.InDelta(t, 2.55, BuyToOpenLimitPrice(2.50), 1e-9)
}

func TestDecideAndPlace(t *testing.T) {
	ctx := context.Background()

	t.Run("places the largest qualifying signal", func(t *testing.T) {
		placer := &fakePlacer{}
		journal := &fakeJournal{}
		engine := NewTradeDecisionEngine(placer, journal, &eventmodels.SizingConfigYAML{}, false, 5*time.Minute)

		signals := []*eventmodels.MispricingSignal{
			testSignal(t, 100, 2.50, 0.18),
			testSignal(t, 105, 1.20, 0.25),
			testSignal(t, 110, 0.60, 0.16),
		}

		order, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow)
		assert.NoError(t, err)
		assert.NotNil(t, order)

		assert.Len(t, placer.placed, 1)
		assert.Equal(t, eventmodels.OrderSideSellToOpen, order.Side)
		assert.Equal(t, 1, order.Quantity)
		assert.NotNil(t, order.LimitPrice)
		assert.InDelta(t, SellToOpenLimitPrice(1.20), *order.LimitPrice, 1e-9)
		assert.Equal(t, eventmodels.OrderStatusSubmitted, order.Status)

		assert.Len(t, journal.intents, 1)
		assert.Len(t, journal.placements, 1)
	})

	t.Run("buy signal opens long at the buy limit", func(t *testing.T) {
		placer := &fakePlacer{}
		engine := NewTradeDecisionEngine(placer, &fakeJournal{}, &eventmodels.SizingConfigYAML{}, false, 5*time.Minute)

		signals := []*eventmodels.MispricingSignal{testSignal(t, 100, 2.00, -0.20)}

		order, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow)
		assert.NoError(t, err)
		assert.NotNil(t, order)
		assert.Equal(t, eventmodels.OrderSideBuyToOpen, order.Side)
		assert.InDelta(t, BuyToOpenLimitPrice(2.00), *order.LimitPrice, 1e-9)
	})

	t.Run("signals below the direction threshold are ignored", func(t *testing.T) {
		placer := &fakePlacer{}
		engine := NewTradeDecisionEngine(placer, &fakeJournal{}, &eventmodels.SizingConfigYAML{}, false, 5*time.Minute)

		signals := []*eventmodels.MispricingSignal{
			testSignal(t, 100, 2.50, 0.12),
			testSignal(t, 105, 1.20, -0.10),
		}

		order, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow)
		assert.NoError(t, err)
		assert.Nil(t, order)
		assert.Empty(t, placer.placed)
	})

	t.Run("rests after a placement", func(t *testing.T) {
		placer := &fakePlacer{}
		engine := NewTradeDecisionEngine(placer, &fakeJournal{}, &eventmodels.SizingConfigYAML{}, false, 5*time.Minute)

		signals := []*eventmodels.MispricingSignal{testSignal(t, 100, 2.50, 0.18)}

		first, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow)
		assert.NoError(t, err)
		assert.NotNil(t, first)

		second, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow.Add(time.Minute))
		assert.NoError(t, err)
		assert.Nil(t, second)
		assert.Len(t, placer.placed, 1)

		third, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow.Add(6*time.Minute))
		assert.NoError(t, err)
		assert.NotNil(t, third)
		assert.Len(t, placer.placed, 2)
	})

	t.Run("journal ack failure still rests the ticker and returns the order", func(t *testing.T) {
		placer := &fakePlacer{}
		journal := &fakeJournal{placementErr: assert.AnError}
		engine := NewTradeDecisionEngine(placer, journal, &eventmodels.SizingConfigYAML{}, false, 5*time.Minute)

		signals := []*eventmodels.MispricingSignal{testSignal(t, 100, 2.50, 0.18)}

		// The broker accepted the order, so the caller must still get it back
		// for tracking and the ticker must rest.
		order, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow)
		assert.NoError(t, err)
		assert.NotNil(t, order)
		assert.NotNil(t, order.BrokerID)
		assert.Equal(t, eventmodels.OrderStatusSubmitted, order.Status)
		assert.Len(t, placer.placed, 1)

		second, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow.Add(time.Minute))
		assert.NoError(t, err)
		assert.Nil(t, second)
		assert.Len(t, placer.placed, 1)
	})

	t.Run("dry run decides but never touches the broker", func(t *testing.T) {
		placer := &fakePlacer{}
		journal := &fakeJournal{}
		engine := NewTradeDecisionEngine(placer, journal, &eventmodels.SizingConfigYAML{}, true, 5*time.Minute)

		signals := []*eventmodels.MispricingSignal{testSignal(t, 100, 2.50, 0.18)}

		order, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow)
		assert.NoError(t, err)
		assert.NotNil(t, order)

		assert.Empty(t, placer.placed)
		assert.Empty(t, journal.intents)
		assert.Empty(t, journal.placements)
	})

	t.Run("respects max open positions", func(t *testing.T) {
		placer := &fakePlacer{}
		sizing := &eventmodels.SizingConfigYAML{
			Options: []eventmodels.SizingYAML{
				{Symbol: "AAPL", Quantity: 1, MaxNoOfPositions: 2},
			},
		}
		engine := NewTradeDecisionEngine(placer, &fakeJournal{}, sizing, false, 5*time.Minute)

		signals := []*eventmodels.MispricingSignal{testSignal(t, 100, 2.50, 0.18)}

		position := &eventmodels.Position{
			Symbol: eventmodels.NewStockSymbol("AAPL"),
			Options: []eventmodels.OptionPosition{
				{Symbol: eventmodels.OptionSymbol("AAPL260918C00100000"), Quantity: -2},
			},
		}

		order, err := engine.DecideAndPlace(ctx, testConfig(), signals, position, decisionNow)
		assert.NoError(t, err)
		assert.Nil(t, order)
		assert.Empty(t, placer.placed)
	})

	t.Run("zero sized ticker never trades", func(t *testing.T) {
		placer := &fakePlacer{}
		sizing := &eventmodels.SizingConfigYAML{
			Options: []eventmodels.SizingYAML{
				{Symbol: "AAPL", Quantity: 0, MaxNoOfPositions: 5},
			},
		}
		engine := NewTradeDecisionEngine(placer, &fakeJournal{}, sizing, false, 5*time.Minute)

		signals := []*eventmodels.MispricingSignal{testSignal(t, 100, 2.50, 0.18)}

		order, err := engine.DecideAndPlace(ctx, testConfig(), signals, &eventmodels.Position{}, decisionNow)
		assert.NoError(t, err)
		assert.Nil(t, order)
		assert.Empty(t, placer.placed)
	})
}
