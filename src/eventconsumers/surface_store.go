package eventconsumers

import (
	"sync"
	"time"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

// SurfaceContext is the output of one successful fit: the model plus the
// market inputs it was fitted against. The hedger reprices deltas off it.
type SurfaceContext struct {
	Model         eventmodels.SurfaceModel
	Snapshot      *eventmodels.OptionChainSnapshot
	Spot          float64
	RiskFreeRate  float64
	DividendYield float64
	FittedAt      time.Time
}

// SurfaceStore holds the latest fitted surface per ticker. The cycle worker
// writes, the hedge worker and the status api read.
type SurfaceStore struct {
	mu       sync.RWMutex
	surfaces map[eventmodels.StockSymbol]*SurfaceContext
}

func NewSurfaceStore() *SurfaceStore {
	return &SurfaceStore{
		surfaces: make(map[eventmodels.StockSymbol]*SurfaceContext),
	}
}

func (s *SurfaceStore) Set(symbol eventmodels.StockSymbol, surface *SurfaceContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.surfaces[symbol] = surface
}

func (s *SurfaceStore) Get(symbol eventmodels.StockSymbol) (*SurfaceContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	surface, found := s.surfaces[symbol]
	return surface, found
}

func (s *SurfaceStore) Symbols() []eventmodels.StockSymbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]eventmodels.StockSymbol, 0, len(s.surfaces))
	for symbol := range s.surfaces {
		symbols = append(symbols, symbol)
	}

	return symbols
}
