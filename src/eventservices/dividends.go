package eventservices

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

// PolygonDividendSource derives a continuous dividend yield from the cash
// dividends reported by the Polygon reference api.
type PolygonDividendSource struct {
	Client *polygon.Client
}

func NewPolygonDividendSource(apiKey string) *PolygonDividendSource {
	return &PolygonDividendSource{
		Client: polygon.New(apiKey),
	}
}

// parseExDividendDate parses the calendar date strings the reference api
// reports, e.g. "2026-02-07".
func parseExDividendDate(raw string) (time.Time, error) {
	exDate, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parseExDividendDate: %w", err)
	}

	return exDate, nil
}

// FetchDividendYield returns the trailing twelve month cash dividends of
// symbol divided by spot. Tickers that pay no dividend yield 0.
func (s *PolygonDividendSource) FetchDividendYield(ctx context.Context, symbol eventmodels.StockSymbol, spot float64, now time.Time) (float64, error) {
	if spot <= 0 {
		return 0, fmt.Errorf("FetchDividendYield: spot must be positive, got %f", spot)
	}

	params := models.ListDividendsParams{}.
		WithTicker(models.EQ, string(symbol)).
		WithOrder(models.Desc).
		WithLimit(50)

	iter := s.Client.ListDividends(ctx, params)

	cutoff := now.AddDate(-1, 0, 0)
	totalCash := 0.0

	for iter.Next() {
		item := iter.Item()

		exDate, err := parseExDividendDate(item.ExDividendDate)
		if err != nil {
			log.Warnf("FetchDividendYield: %s: skipping dividend with ex date %q: %v", symbol, item.ExDividendDate, err)
			continue
		}

		if exDate.Before(cutoff) {
			break
		}

		totalCash += item.CashAmount
	}

	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("FetchDividendYield: failed to list dividends for %s: %w", symbol, err)
	}

	yield := totalCash / spot

	log.Debugf("FetchDividendYield: %s trailing cash %.4f, yield %.4f", symbol, totalCash, yield)

	return yield, nil
}
