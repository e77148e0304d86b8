package eventmodels

type TradierPositionDTO struct {
	CostBasis    float64 `json:"cost_basis"`
	DateAcquired string  `json:"date_acquired"`
	ID           int     `json:"id"`
	Quantity     float64 `json:"quantity"`
	Symbol       string  `json:"symbol"`
}

// IsOption reports whether the position symbol parses as an OCC option ticker.
func (dto TradierPositionDTO) IsOption() bool {
	_, err := NewOptionSymbolComponents(OptionSymbol(dto.Symbol))
	return err == nil
}
