package eventmodels

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type SizingYAML struct {
	Symbol           string `yaml:"symbol"`
	Quantity         int    `yaml:"quantity"`
	MaxNoOfPositions int    `yaml:"maxNoOfPositions"`
}

type SizingConfigYAML struct {
	Options []SizingYAML `yaml:"options"`
}

func (c *SizingConfigYAML) GetSizing(symbol StockSymbol) (SizingYAML, bool) {
	for _, s := range c.Options {
		if NewStockSymbol(s.Symbol) == symbol {
			return s, true
		}
	}

	return SizingYAML{}, false
}

// LoadSizingConfig reads the optional sizing.yaml. A missing file yields an
// empty config: every ticker then falls back to the one-contract default.
func LoadSizingConfig(path string) (*SizingConfigYAML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &SizingConfigYAML{}, nil
		}

		return nil, fmt.Errorf("LoadSizingConfig: failed to read %s: %w", path, err)
	}

	var config SizingConfigYAML
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("LoadSizingConfig: failed to parse %s: %w", path, err)
	}

	for _, s := range config.Options {
		if s.Quantity < 0 {
			return nil, fmt.Errorf("LoadSizingConfig: %s: quantity must be non-negative", s.Symbol)
		}
	}

	return &config, nil
}
