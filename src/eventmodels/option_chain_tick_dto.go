package eventmodels

import (
	"fmt"
	"time"
)

// OptionChainTickDTO mirrors one element of the Tradier
// /markets/options/chains response.
type OptionChainTickDTO struct {
	Symbol         string  `json:"symbol"`
	Description    string  `json:"description"`
	Underlying     string  `json:"underlying"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Last           float64 `json:"last"`
	Volume         int     `json:"volume"`
	BidSize        int     `json:"bidsize"`
	AskSize        int     `json:"asksize"`
	OpenInterest   int     `json:"open_interest"`
	Strike         float64 `json:"strike"`
	ContractSize   int     `json:"contract_size"`
	OptionType     string  `json:"option_type"`
	ExpirationDate string  `json:"expiration_date"`
	ExpirationType string  `json:"expiration_type"`
	Greeks         *struct {
		MidIV float64 `json:"mid_iv"`
	} `json:"greeks,omitempty"`
}

func (d *OptionChainTickDTO) ToModel() (*OptionContract, error) {
	optionType, err := NewOptionType(d.OptionType)
	if err != nil {
		return nil, fmt.Errorf("OptionChainTickDTO:ToModel(): %w", err)
	}

	expiration, err := time.Parse("2006-01-02", d.ExpirationDate)
	if err != nil {
		return nil, fmt.Errorf("OptionChainTickDTO:ToModel(): failed to parse expiration date %s: %w", d.ExpirationDate, err)
	}

	expiration, err = ConvertToMarketClose(expiration)
	if err != nil {
		return nil, fmt.Errorf("OptionChainTickDTO:ToModel(): failed to convert expiration to market close: %w", err)
	}

	contract := &OptionContract{
		Symbol:           OptionSymbol(d.Symbol),
		UnderlyingSymbol: NewStockSymbol(d.Underlying),
		Strike:           d.Strike,
		OptionType:       optionType,
		Expiration:       expiration,
		Bid:              d.Bid,
		Ask:              d.Ask,
		OpenInterest:     float64(d.OpenInterest),
	}

	if d.Greeks != nil && d.Greeks.MidIV > 0 {
		iv := d.Greeks.MidIV
		contract.LastIV = &iv
	}

	return contract, nil
}
