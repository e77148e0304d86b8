package eventmodels

// TradierOrderUpdateEvent is published whenever the monitoring worker sees a
// broker-side status change for a tracked order.
type TradierOrderUpdateEvent struct {
	Order  *TradeOrder
	Broker *TradierOrder
}

// HedgeCompletedEvent is published after a hedge order fills and the book is
// back inside the deadband.
type HedgeCompletedEvent struct {
	Symbol   StockSymbol
	NetDelta float64
	Shares   int
}
