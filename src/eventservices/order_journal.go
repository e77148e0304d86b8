package eventservices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/utils"
)

const (
	OrderIntentRecordedEvent = "OrderIntentRecorded"
	OrderPlacedEvent         = "OrderPlaced"
	OrderStatusChangedEvent  = "OrderStatusChanged"
)

// OrderJournal persists the lifecycle of every order intent to an
// EventStoreDB stream per underlying. Replaying the stream after a restart
// recovers the orders that were in flight when the process died.
type OrderJournal struct {
	db *esdb.Client
}

func NewOrderJournal(url string) (*OrderJournal, error) {
	settings, err := esdb.ParseConnectionString(url)
	if err != nil {
		return nil, fmt.Errorf("NewOrderJournal: failed to parse connection string: %w", err)
	}

	db, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("NewOrderJournal: failed to create client: %w", err)
	}

	return &OrderJournal{db: db}, nil
}

func (j *OrderJournal) Close() error {
	if j.db == nil {
		return nil
	}

	return j.db.Close()
}

func streamNameForSymbol(symbol eventmodels.StockSymbol) string {
	return fmt.Sprintf("order-journal-%s", symbol)
}

// isStreamNotFound reports whether err is the client's resource-not-found
// error, raised when the stream has never been written to.
func isStreamNotFound(err error) bool {
	esdbErr, ok := esdb.FromError(err)
	return !ok && esdbErr.IsErrorCode(esdb.ErrorCodeResourceNotFound)
}

func (j *OrderJournal) append(ctx context.Context, symbol eventmodels.StockSymbol, eventType string, order *eventmodels.TradeOrder) error {
	if j.db == nil {
		return errors.New("OrderJournal.append: db is nil")
	}

	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("OrderJournal.append: failed to marshal order: %w", err)
	}

	eventData := esdb.EventData{
		EventID:     uuid.New(),
		ContentType: esdb.ContentTypeJson,
		EventType:   eventType,
		Data:        data,
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		meta, err := utils.SerializeTraceContext(span.SpanContext())
		if err != nil {
			return fmt.Errorf("OrderJournal.append: failed to serialize trace context: %w", err)
		}

		eventData.Metadata = meta
	}

	streamName := streamNameForSymbol(symbol)

	if _, err := j.db.AppendToStream(ctx, streamName, esdb.AppendToStreamOptions{}, eventData); err != nil {
		return fmt.Errorf("OrderJournal.append: failed to append %s to stream %s: %w", eventType, streamName, err)
	}

	log.Debugf("OrderJournal: %s saved to stream %s", eventType, streamName)

	return nil
}

// RecordIntent journals an order before it is sent to the broker.
func (j *OrderJournal) RecordIntent(ctx context.Context, order *eventmodels.TradeOrder) error {
	return j.append(ctx, order.Symbol, OrderIntentRecordedEvent, order)
}

// RecordPlacement journals the broker ack, including the broker-assigned id.
func (j *OrderJournal) RecordPlacement(ctx context.Context, order *eventmodels.TradeOrder) error {
	return j.append(ctx, order.Symbol, OrderPlacedEvent, order)
}

// RecordStatusChange journals a broker status transition.
func (j *OrderJournal) RecordStatusChange(ctx context.Context, order *eventmodels.TradeOrder) error {
	return j.append(ctx, order.Symbol, OrderStatusChangedEvent, order)
}

// ReplayOpenOrders folds the journal stream of symbol and returns the orders
// whose last journaled status is not terminal. A missing stream means no
// orders were ever journaled for the symbol.
func (j *OrderJournal) ReplayOpenOrders(ctx context.Context, symbol eventmodels.StockSymbol) ([]*eventmodels.TradeOrder, error) {
	streamName := streamNameForSymbol(symbol)

	readOptions := esdb.ReadStreamOptions{
		Direction: esdb.Forwards,
		From:      esdb.Start{},
	}

	stream, err := j.db.ReadStream(ctx, streamName, readOptions, 4096)
	if err != nil {
		if isStreamNotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("ReplayOpenOrders: failed to read stream %s: %w", streamName, err)
	}
	defer stream.Close()

	orders := make(map[uuid.UUID]*eventmodels.TradeOrder)
	var sequence []uuid.UUID

	for {
		event, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			if isStreamNotFound(err) {
				return nil, nil
			}

			return nil, fmt.Errorf("ReplayOpenOrders: failed to read event from stream %s: %w", streamName, err)
		}

		var order eventmodels.TradeOrder
		if err := json.Unmarshal(event.Event.Data, &order); err != nil {
			return nil, fmt.Errorf("ReplayOpenOrders: failed to unmarshal event data: %w", err)
		}

		if _, found := orders[order.IntentID]; !found {
			sequence = append(sequence, order.IntentID)
		}

		orders[order.IntentID] = &order
	}

	var open []*eventmodels.TradeOrder
	for _, intentID := range sequence {
		order := orders[intentID]
		if !order.Status.IsTerminal() {
			open = append(open, order)
		}
	}

	return open, nil
}
