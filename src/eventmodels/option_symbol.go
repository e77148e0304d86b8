package eventmodels

import (
	"fmt"
	"strings"
	"time"
)

// OptionSymbol is an OCC-style option ticker, e.g. AAPL240621C00190000.
type OptionSymbol string

func (s OptionSymbol) NoPrefix() string {
	if strings.HasPrefix(string(s), "O:") {
		return string(s)[2:]
	}

	return string(s)
}

func (s OptionSymbol) Description() (string, error) {
	components, err := NewOptionSymbolComponents(s)
	if err != nil {
		return "", fmt.Errorf("OptionSymbol.Description: failed to parse option symbol: %w", err)
	}

	expiration := components.Expiration.Format("Jan 2 2006")
	strikePrice := fmt.Sprintf("%.2f", components.StrikePrice)

	optionType := "Call"
	if components.OptionType == OptionTypePut {
		optionType = "Put"
	}

	return fmt.Sprintf("%s %s $%s %s", components.Underlying, expiration, strikePrice, optionType), nil
}

func NewOptionSymbol(underlying StockSymbol, expiration time.Time, optionType OptionType, strike float64) (OptionSymbol, error) {
	if err := optionType.Validate(); err != nil {
		return "", fmt.Errorf("NewOptionSymbol: %w", err)
	}

	typeCode := "C"
	if optionType == OptionTypePut {
		typeCode = "P"
	}

	year := expiration.Year() % 100
	month := int(expiration.Month())
	day := expiration.Day()

	// Strike is encoded as price * 1000, padded to 8 digits
	strikeCode := fmt.Sprintf("%08d", int(strike*1000))

	ticker := fmt.Sprintf("%s%02d%02d%02d%s%s", underlying.String(), year, month, day, typeCode, strikeCode)

	return OptionSymbol(ticker), nil
}

func NewOptionSymbolComponents(s OptionSymbol) (*OptionSymbolComponents, error) {
	symbol := s.NoPrefix()

	// The underlying is variable length: scan for the 6-digit date followed by C/P
	idx := -1
	for i := 1; i+7 <= len(symbol); i++ {
		if symbol[i+6] != 'C' && symbol[i+6] != 'P' {
			continue
		}

		allDigits := true
		for j := i; j < i+6; j++ {
			if symbol[j] < '0' || symbol[j] > '9' {
				allDigits = false
				break
			}
		}

		if allDigits && len(symbol)-(i+7) == 8 {
			idx = i
			break
		}
	}

	if idx < 0 {
		return nil, fmt.Errorf("NewOptionSymbolComponents: invalid option symbol: %s", symbol)
	}

	expiration, err := time.Parse("060102", symbol[idx:idx+6])
	if err != nil {
		return nil, fmt.Errorf("NewOptionSymbolComponents: failed to parse expiration: %w", err)
	}

	optionType := OptionTypeCall
	if symbol[idx+6] == 'P' {
		optionType = OptionTypePut
	}

	var strikeCode int
	if _, err := fmt.Sscanf(symbol[idx+7:], "%d", &strikeCode); err != nil {
		return nil, fmt.Errorf("NewOptionSymbolComponents: failed to parse strike: %w", err)
	}

	return &OptionSymbolComponents{
		Underlying:  NewStockSymbol(symbol[:idx]),
		Expiration:  expiration,
		OptionType:  optionType,
		StrikePrice: float64(strikeCode) / 1000.0,
		Symbol:      s,
	}, nil
}
