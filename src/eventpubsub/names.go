package eventpubsub

const (
	MispricingSignalEvent   = "MispricingSignalEvent"
	TradierOrderUpdateEvent = "TradierOrderUpdateEvent"
	HedgeCompletedEvent     = "HedgeCompletedEvent"
	Error                   = "DefaultError"
)
