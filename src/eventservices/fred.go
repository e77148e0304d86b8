package eventservices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jiaming2012/option-arb/src/utils"
)

const fredObservationsURL = "https://api.stlouisfed.org/fred/series/observations"

type fredObservationsDTO struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// FredRateSource resolves the risk free rate from the most recent SOFR print.
type FredRateSource struct {
	APIKey   string
	SeriesID string
}

func NewFredRateSource(apiKey string) *FredRateSource {
	return &FredRateSource{
		APIKey:   apiKey,
		SeriesID: "SOFR",
	}
}

// FetchRiskFreeRate returns the latest observation as a decimal, e.g. a 5.31
// print comes back as 0.0531. FRED publishes missing observations as ".",
// those are skipped.
func (s *FredRateSource) FetchRiskFreeRate(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Add("series_id", s.SeriesID)
	q.Add("api_key", s.APIKey)
	q.Add("file_type", "json")
	q.Add("sort_order", "desc")
	q.Add("limit", "10")

	bytes, err := utils.Get(ctx, fmt.Sprintf("%s?%s", fredObservationsURL, q.Encode()))
	if err != nil {
		return 0, fmt.Errorf("FetchRiskFreeRate: %w", err)
	}

	var dto fredObservationsDTO
	if err := json.Unmarshal(bytes, &dto); err != nil {
		return 0, fmt.Errorf("FetchRiskFreeRate: failed to decode json: %w", err)
	}

	for _, obs := range dto.Observations {
		if obs.Value == "." {
			continue
		}

		rate, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return 0, fmt.Errorf("FetchRiskFreeRate: failed to parse observation %s for %s: %w", obs.Value, obs.Date, err)
		}

		return rate / 100.0, nil
	}

	return 0, fmt.Errorf("FetchRiskFreeRate: no usable observation for series %s", s.SeriesID)
}
