package eventmodels

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusRejected || s == OrderStatusCancelled
}

// NewOrderStatusFromTradier maps Tradier order states onto our lifecycle.
func NewOrderStatusFromTradier(status string) (OrderStatus, error) {
	switch status {
	case "pending", "open", "partially_filled", "calculated", "accepted_for_bidding", "held":
		return OrderStatusSubmitted, nil
	case "filled":
		return OrderStatusFilled, nil
	case "rejected", "error":
		return OrderStatusRejected, nil
	case "canceled", "expired":
		return OrderStatusCancelled, nil
	default:
		return "", fmt.Errorf("NewOrderStatusFromTradier: unknown status: %s", status)
	}
}

type OrderSide string

const (
	OrderSideBuy         OrderSide = "buy"
	OrderSideSell        OrderSide = "sell"
	OrderSideSellShort   OrderSide = "sell_short"
	OrderSideBuyToCover  OrderSide = "buy_to_cover"
	OrderSideSellToOpen  OrderSide = "sell_to_open"
	OrderSideBuyToClose  OrderSide = "buy_to_close"
	OrderSideBuyToOpen   OrderSide = "buy_to_open"
	OrderSideSellToClose OrderSide = "sell_to_close"
)

type OrderClass string

const (
	OrderClassEquity OrderClass = "equity"
	OrderClassOption OrderClass = "option"
)

type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

// TradeOrder is an order intent. IntentID is assigned client-side before
// submission so the intent can be journaled and later reconciled against the
// broker's order ID.
type TradeOrder struct {
	IntentID     uuid.UUID     `json:"intent_id"`
	BrokerID     *uint         `json:"broker_id,omitempty"`
	Class        OrderClass    `json:"class"`
	Side         OrderSide     `json:"side"`
	Kind         OrderKind     `json:"kind"`
	Symbol       StockSymbol   `json:"symbol"`
	OptionSymbol *OptionSymbol `json:"option_symbol,omitempty"`
	Quantity     int           `json:"quantity"`
	LimitPrice   *float64      `json:"limit_price,omitempty"`
	Status       OrderStatus   `json:"status"`
	Tag          string        `json:"tag,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

func (o *TradeOrder) Validate() error {
	if o.Quantity <= 0 {
		return fmt.Errorf("TradeOrder: Validate: quantity must be positive")
	}

	if o.Class == OrderClassOption && o.OptionSymbol == nil {
		return fmt.Errorf("TradeOrder: Validate: option order requires an option symbol")
	}

	if o.Kind == OrderKindLimit && o.LimitPrice == nil {
		return fmt.Errorf("TradeOrder: Validate: limit order requires a limit price")
	}

	return nil
}

func (o *TradeOrder) String() string {
	symbol := string(o.Symbol)
	if o.OptionSymbol != nil {
		symbol = string(*o.OptionSymbol)
	}

	price := "market"
	if o.LimitPrice != nil {
		price = fmt.Sprintf("limit %.2f", *o.LimitPrice)
	}

	return fmt.Sprintf("%s %d %s @ %s [%s]", o.Side, o.Quantity, symbol, price, o.Status)
}

func NewEquityOrder(symbol StockSymbol, side OrderSide, quantity int, tag string, now time.Time) *TradeOrder {
	return &TradeOrder{
		IntentID:  uuid.New(),
		Class:     OrderClassEquity,
		Side:      side,
		Kind:      OrderKindMarket,
		Symbol:    symbol,
		Quantity:  quantity,
		Status:    OrderStatusPending,
		Tag:       tag,
		CreatedAt: now,
	}
}

func NewOptionLimitOrder(symbol StockSymbol, optionSymbol OptionSymbol, side OrderSide, quantity int, limitPrice float64, tag string, now time.Time) *TradeOrder {
	return &TradeOrder{
		IntentID:     uuid.New(),
		Class:        OrderClassOption,
		Side:         side,
		Kind:         OrderKindLimit,
		Symbol:       symbol,
		OptionSymbol: &optionSymbol,
		Quantity:     quantity,
		LimitPrice:   &limitPrice,
		Status:       OrderStatusPending,
		Tag:          tag,
		CreatedAt:    now,
	}
}
