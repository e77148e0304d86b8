package eventmodels

import "fmt"

type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

func (o OptionType) Validate() error {
	if o != OptionTypeCall && o != OptionTypePut {
		return fmt.Errorf("OptionType: Validate: invalid option type: %s", o)
	}

	return nil
}

// NewOptionType normalizes the plural forms used in stocks.json ("calls" / "puts").
func NewOptionType(s string) (OptionType, error) {
	switch s {
	case "call", "calls":
		return OptionTypeCall, nil
	case "put", "puts":
		return OptionTypePut, nil
	default:
		return "", fmt.Errorf("NewOptionType: invalid option type: %s", s)
	}
}
