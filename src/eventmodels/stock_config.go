package eventmodels

import (
	"encoding/json"
	"fmt"
	"os"
)

// StockConfigDTO is one entry of stocks.json.
type StockConfigDTO struct {
	Ticker        string  `json:"ticker"`
	DateIndex     int     `json:"date_index"`
	OptionType    string  `json:"option_type"`
	Model         string  `json:"model"`
	MinOverpriced float64 `json:"min_overpriced"`
	MinUnderpriced float64 `json:"min_underpriced"`
	MinOI         float64 `json:"min_oi"`
}

type StockConfig struct {
	Symbol         StockSymbol
	DateIndex      int
	OptionType     OptionType
	Model          SurfaceModelType
	MinOverpriced  float64
	MinUnderpriced float64
	MinOI          float64
}

func (dto *StockConfigDTO) ToModel() (*StockConfig, error) {
	symbol := NewStockSymbol(dto.Ticker)
	if err := symbol.Validate(); err != nil {
		return nil, fmt.Errorf("StockConfigDTO:ToModel(): %w", err)
	}

	optionType, err := NewOptionType(dto.OptionType)
	if err != nil {
		return nil, fmt.Errorf("StockConfigDTO:ToModel(): %s: %w", dto.Ticker, err)
	}

	model := SurfaceModelRFV
	if dto.Model != "" {
		model, err = NewSurfaceModelType(dto.Model)
		if err != nil {
			return nil, fmt.Errorf("StockConfigDTO:ToModel(): %s: %w", dto.Ticker, err)
		}
	}

	if dto.DateIndex < 0 {
		return nil, fmt.Errorf("StockConfigDTO:ToModel(): %s: date_index must be non-negative", dto.Ticker)
	}

	if dto.MinOverpriced <= 0 {
		return nil, fmt.Errorf("StockConfigDTO:ToModel(): %s: min_overpriced must be positive", dto.Ticker)
	}

	if dto.MinOI < 0 {
		return nil, fmt.Errorf("StockConfigDTO:ToModel(): %s: min_oi must be non-negative", dto.Ticker)
	}

	return &StockConfig{
		Symbol:         symbol,
		DateIndex:      dto.DateIndex,
		OptionType:     optionType,
		Model:          model,
		MinOverpriced:  dto.MinOverpriced,
		MinUnderpriced: dto.MinUnderpriced,
		MinOI:          dto.MinOI,
	}, nil
}

// LoadStockConfigs reads and validates stocks.json. Any malformed entry is
// fatal: the process must not start trading with a partial watch list.
func LoadStockConfigs(path string) ([]*StockConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadStockConfigs: failed to read %s: %w", path, err)
	}

	var dtos []StockConfigDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("LoadStockConfigs: failed to parse %s: %w", path, err)
	}

	if len(dtos) == 0 {
		return nil, fmt.Errorf("LoadStockConfigs: %s contains no tickers", path)
	}

	var configs []*StockConfig
	seen := make(map[StockSymbol]bool)

	for i := range dtos {
		config, err := dtos[i].ToModel()
		if err != nil {
			return nil, fmt.Errorf("LoadStockConfigs: entry %d: %w", i, err)
		}

		if seen[config.Symbol] {
			return nil, fmt.Errorf("LoadStockConfigs: duplicate ticker %s", config.Symbol)
		}

		seen[config.Symbol] = true
		configs = append(configs, config)
	}

	return configs, nil
}
