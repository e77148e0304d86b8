package eventmodels

import (
	"encoding/json"
	"fmt"
	"strings"
)

type StockSymbol string

func (s StockSymbol) String() string {
	return strings.ToUpper(string(s))
}

func (s StockSymbol) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s StockSymbol) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("StockSymbol: Validate: symbol is empty")
	}

	return nil
}

func NewStockSymbol(s string) StockSymbol {
	return StockSymbol(strings.ToUpper(s))
}
