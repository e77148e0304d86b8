package eventmodels

import "fmt"

// TradierQuoteDTO mirrors one quote of the Tradier /markets/quotes response.
type TradierQuoteDTO struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Last   float64 `json:"last"`
}

// MidPrice returns the bid/ask midpoint rounded to 3 decimal places.
func (d *TradierQuoteDTO) MidPrice() (float64, error) {
	if d.Bid <= 0 || d.Ask <= 0 {
		return 0, fmt.Errorf("TradierQuoteDTO:MidPrice(): no two-sided quote for %s", d.Symbol)
	}

	mid := (d.Bid + d.Ask) / 2

	return float64(int(mid*1000+0.5)) / 1000, nil
}

// TradierExpirationsDTO mirrors the /markets/options/expirations response.
type TradierExpirationsDTO struct {
	Expirations struct {
		Date []string `json:"date"`
	} `json:"expirations"`
}
