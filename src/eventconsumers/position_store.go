package eventconsumers

import (
	"sync"
	"time"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

// PositionStore holds the per-ticker book. The cycle worker seeds it from
// broker positions; confirmed fills mutate it between refreshes.
type PositionStore struct {
	mu        sync.Mutex
	positions map[eventmodels.StockSymbol]*eventmodels.Position
}

func NewPositionStore() *PositionStore {
	return &PositionStore{
		positions: make(map[eventmodels.StockSymbol]*eventmodels.Position),
	}
}

// Get returns the position for symbol, creating a flat one if none exists.
func (s *PositionStore) Get(symbol eventmodels.StockSymbol) *eventmodels.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	position, found := s.positions[symbol]
	if !found {
		position = &eventmodels.Position{Symbol: symbol}
		s.positions[symbol] = position
	}

	return position
}

func (s *PositionStore) Set(symbol eventmodels.StockSymbol, position *eventmodels.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[symbol] = position
}

// ApplyFill folds a confirmed fill into the symbol's position. The stored
// position is replaced rather than mutated, so pointers handed out by Get
// stay stable snapshots.
func (s *PositionStore) ApplyFill(order *eventmodels.TradeOrder, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.positions[order.Symbol]
	if !found {
		current = &eventmodels.Position{Symbol: order.Symbol}
	}

	next := current.Clone()
	next.ApplyFill(order, now)

	s.positions[order.Symbol] = next
}
