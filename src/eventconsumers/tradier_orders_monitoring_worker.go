package eventconsumers

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/eventpubsub"
)

// OrderFetcher reads the broker state of a single order.
type OrderFetcher interface {
	FetchOrder(ctx context.Context, orderID uint) (*eventmodels.TradierOrder, error)
}

// StatusJournaler persists order status transitions.
type StatusJournaler interface {
	RecordStatusChange(ctx context.Context, order *eventmodels.TradeOrder) error
}

// TradierOrdersMonitoringWorker polls the broker for every registered order
// and publishes an update event whenever the status changes. Orders are
// dropped from the watch list once they reach a terminal status.
type TradierOrdersMonitoringWorker struct {
	wg      *sync.WaitGroup
	fetcher OrderFetcher
	journal StatusJournaler

	mu     sync.Mutex
	orders map[uint]*eventmodels.TradeOrder
}

func NewTradierOrdersMonitoringWorker(wg *sync.WaitGroup, fetcher OrderFetcher, journal StatusJournaler) *TradierOrdersMonitoringWorker {
	return &TradierOrdersMonitoringWorker{
		wg:      wg,
		fetcher: fetcher,
		journal: journal,
		orders:  make(map[uint]*eventmodels.TradeOrder),
	}
}

// RegisterOrder adds a placed order to the watch list. Orders without a
// broker id cannot be tracked and are ignored.
func (w *TradierOrdersMonitoringWorker) RegisterOrder(order *eventmodels.TradeOrder) {
	if order.BrokerID == nil {
		log.Warnf("TradierOrdersMonitoringWorker: order %s has no broker id, not tracking", order.IntentID)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.orders[*order.BrokerID] = order

	log.Infof("TradierOrdersMonitoringWorker: tracking order %d", *order.BrokerID)
}

// TrackedOrderCount reports how many orders are currently being watched.
func (w *TradierOrdersMonitoringWorker) TrackedOrderCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.orders)
}

func (w *TradierOrdersMonitoringWorker) snapshotOrders() map[uint]*eventmodels.TradeOrder {
	w.mu.Lock()
	defer w.mu.Unlock()

	snapshot := make(map[uint]*eventmodels.TradeOrder, len(w.orders))
	for id, order := range w.orders {
		snapshot[id] = order
	}

	return snapshot
}

func (w *TradierOrdersMonitoringWorker) pollOnce(ctx context.Context) {
	for brokerID, order := range w.snapshotOrders() {
		brokerOrder, err := w.fetcher.FetchOrder(ctx, brokerID)
		if err != nil {
			log.Errorf("TradierOrdersMonitoringWorker: failed to fetch order %d: %v", brokerID, err)
			continue
		}

		if brokerOrder.Status == order.Status {
			continue
		}

		log.Infof("TradierOrdersMonitoringWorker: order %d moved %s -> %s", brokerID, order.Status, brokerOrder.Status)

		order.Status = brokerOrder.Status

		if w.journal != nil {
			if err := w.journal.RecordStatusChange(ctx, order); err != nil {
				log.Errorf("TradierOrdersMonitoringWorker: failed to journal status change for order %d: %v", brokerID, err)
			}
		}

		eventpubsub.Publish("TradierOrdersMonitoringWorker", eventpubsub.TradierOrderUpdateEvent, &eventmodels.TradierOrderUpdateEvent{
			Order:  order,
			Broker: brokerOrder,
		})

		if order.Status.IsTerminal() {
			w.mu.Lock()
			delete(w.orders, brokerID)
			w.mu.Unlock()
		}
	}
}

func (w *TradierOrdersMonitoringWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	timer := time.NewTicker(5 * time.Second)

	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				log.Info("stopping TradierOrdersMonitoringWorker consumer")
				return
			case <-timer.C:
				w.pollOnce(ctx)
			}
		}
	}()
}
