package eventconsumers

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

type fakeBrokerOrders struct {
	orders []*eventmodels.TradierOrder
}

func (f *fakeBrokerOrders) FetchOrders(ctx context.Context) ([]*eventmodels.TradierOrder, error) {
	return f.orders, nil
}

func recoveredOrder(tag string, brokerID *uint) *eventmodels.TradeOrder {
	order := eventmodels.NewEquityOrder(eventmodels.NewStockSymbol("AAPL"), eventmodels.OrderSideBuy, 10, tag, decisionNow)
	order.Status = eventmodels.OrderStatusSubmitted
	order.BrokerID = brokerID

	return order
}

func TestRecoverOrders(t *testing.T) {
	ctx := context.Background()

	newMonitor := func() *TradierOrdersMonitoringWorker {
		var wg sync.WaitGroup
		return NewTradierOrdersMonitoringWorker(&wg, nil, nil)
	}

	t.Run("orders with a broker id are tracked directly", func(t *testing.T) {
		monitor := newMonitor()
		journal := &fakeJournal{}

		brokerID := uint(17)
		replayed := []*eventmodels.TradeOrder{recoveredOrder("", &brokerID)}

		assert.NoError(t, RecoverOrders(ctx, monitor, &fakeBrokerOrders{}, journal, replayed))
		assert.Equal(t, 1, monitor.TrackedOrderCount())
		assert.Empty(t, journal.statuses)
	})

	t.Run("orphans are matched to broker orders by tag", func(t *testing.T) {
		monitor := newMonitor()
		journal := &fakeJournal{}

		fetcher := &fakeBrokerOrders{orders: []*eventmodels.TradierOrder{
			{ID: 99, Status: eventmodels.OrderStatusSubmitted, Tag: "sell---0-1842---1-05", TransactionDate: decisionNow},
		}}

		replayed := []*eventmodels.TradeOrder{recoveredOrder("sell---0-1842---1-05", nil)}

		assert.NoError(t, RecoverOrders(ctx, monitor, fetcher, journal, replayed))

		assert.NotNil(t, replayed[0].BrokerID)
		assert.Equal(t, uint(99), *replayed[0].BrokerID)
		assert.Equal(t, 1, monitor.TrackedOrderCount())
		assert.Len(t, journal.statuses, 1)
	})

	t.Run("orphans matched to a terminal broker order are not tracked", func(t *testing.T) {
		monitor := newMonitor()
		journal := &fakeJournal{}

		fetcher := &fakeBrokerOrders{orders: []*eventmodels.TradierOrder{
			{ID: 42, Status: eventmodels.OrderStatusFilled, Tag: "buy---0-2210---2-55", TransactionDate: decisionNow},
		}}

		replayed := []*eventmodels.TradeOrder{recoveredOrder("buy---0-2210---2-55", nil)}

		assert.NoError(t, RecoverOrders(ctx, monitor, fetcher, journal, replayed))

		assert.Equal(t, eventmodels.OrderStatusFilled, replayed[0].Status)
		assert.Equal(t, 0, monitor.TrackedOrderCount())
		assert.Len(t, journal.statuses, 1)
	})

	t.Run("unmatched orphans are closed out in the journal", func(t *testing.T) {
		monitor := newMonitor()
		journal := &fakeJournal{}

		replayed := []*eventmodels.TradeOrder{recoveredOrder("sell---0-1842---1-05", nil)}

		assert.NoError(t, RecoverOrders(ctx, monitor, &fakeBrokerOrders{}, journal, replayed))

		assert.Equal(t, eventmodels.OrderStatusCancelled, replayed[0].Status)
		assert.Equal(t, 0, monitor.TrackedOrderCount())
		assert.Len(t, journal.statuses, 1)
		assert.Equal(t, eventmodels.OrderStatusCancelled, journal.statuses[0].Status)
	})
}
