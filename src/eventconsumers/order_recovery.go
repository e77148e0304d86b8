package eventconsumers

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

// BrokerOrdersFetcher lists every order of the trading account.
type BrokerOrdersFetcher interface {
	FetchOrders(ctx context.Context) ([]*eventmodels.TradierOrder, error)
}

// RecoverOrders hands replayed journal orders back to the monitoring worker.
// Orders journaled before the broker ack carry no broker id; those are
// reconciled against the broker's order list by tag. An intent that cannot be
// matched never reached the broker, so it is closed out in the journal to
// keep it from resurfacing on the next restart.
func RecoverOrders(ctx context.Context, monitor *TradierOrdersMonitoringWorker, fetcher BrokerOrdersFetcher, journal StatusJournaler, replayed []*eventmodels.TradeOrder) error {
	var orphans []*eventmodels.TradeOrder

	for _, order := range replayed {
		if order.BrokerID != nil {
			monitor.RegisterOrder(order)
			continue
		}

		orphans = append(orphans, order)
	}

	if len(orphans) == 0 {
		return nil
	}

	brokerOrders, err := fetcher.FetchOrders(ctx)
	if err != nil {
		return fmt.Errorf("RecoverOrders: %w", err)
	}

	byTag := make(map[string]*eventmodels.TradierOrder)
	for _, brokerOrder := range brokerOrders {
		if brokerOrder.Tag != "" {
			byTag[brokerOrder.Tag] = brokerOrder
		}
	}

	for _, order := range orphans {
		if match, found := byTag[order.Tag]; found && order.Tag != "" {
			id := match.ID
			order.BrokerID = &id
			order.Status = match.Status

			log.Infof("RecoverOrders: matched intent %s to broker order %d by tag", order.IntentID, match.ID)

			if err := journal.RecordStatusChange(ctx, order); err != nil {
				log.Errorf("RecoverOrders: failed to journal status of %s: %v", order.IntentID, err)
			}

			if !order.Status.IsTerminal() {
				monitor.RegisterOrder(order)
			}

			continue
		}

		order.Status = eventmodels.OrderStatusCancelled

		log.Warnf("RecoverOrders: intent %s never reached the broker, closing it out", order.IntentID)

		if err := journal.RecordStatusChange(ctx, order); err != nil {
			log.Errorf("RecoverOrders: failed to journal close of %s: %v", order.IntentID, err)
		}
	}

	return nil
}
