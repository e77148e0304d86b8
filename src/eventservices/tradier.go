package eventservices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/utils"
)

// TradierGateway is the single point of contact with the Tradier REST api.
// Market data calls use the non-trades token; order and position calls use
// the trades token.
type TradierGateway struct {
	QuotesURL            string
	OptionChainURL       string
	OptionExpirationsURL string
	OrdersURL            string
	PositionsURL         string
	NonTradesBearerToken string
	TradesBearerToken    string
}

func (g *TradierGateway) get(ctx context.Context, url, bearerToken string, params map[string]string) ([]byte, error) {
	client := http.Client{
		Timeout: 10 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("TradierGateway.get: failed to create request: %w", err)
	}

	q := req.URL.Query()
	for k, v := range params {
		q.Add(k, v)
	}

	req.URL.RawQuery = q.Encode()
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", bearerToken))

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TradierGateway.get: failed to fetch %s: %w", url, err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TradierGateway.get: failed to fetch %s, http code %v", url, res.Status)
	}

	bytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("TradierGateway.get: failed to read response body: %w", err)
	}

	return bytes, nil
}

// FetchStockQuote returns the current quote for symbol.
func (g *TradierGateway) FetchStockQuote(ctx context.Context, symbol eventmodels.StockSymbol) (*eventmodels.TradierQuoteDTO, error) {
	bytes, err := g.get(ctx, g.QuotesURL, g.NonTradesBearerToken, map[string]string{
		"symbols": string(symbol),
	})
	if err != nil {
		return nil, fmt.Errorf("FetchStockQuote: %w", err)
	}

	quotes, err := utils.ParseTradierResponse[eventmodels.TradierQuoteDTO](bytes)
	if err != nil {
		return nil, fmt.Errorf("FetchStockQuote: failed to parse response: %w", err)
	}

	if len(quotes) == 0 {
		return nil, fmt.Errorf("FetchStockQuote: no quote returned for %s", symbol)
	}

	return &quotes[0], nil
}

// FetchOptionExpirations returns the available expiration dates for symbol in
// ascending order, each anchored to the market close.
func (g *TradierGateway) FetchOptionExpirations(ctx context.Context, symbol eventmodels.StockSymbol) ([]time.Time, error) {
	bytes, err := g.get(ctx, g.OptionExpirationsURL, g.NonTradesBearerToken, map[string]string{
		"symbol":          string(symbol),
		"includeAllRoots": "true",
	})
	if err != nil {
		return nil, fmt.Errorf("FetchOptionExpirations: %w", err)
	}

	var dto eventmodels.TradierExpirationsDTO
	if err := json.Unmarshal(bytes, &dto); err != nil {
		return nil, fmt.Errorf("FetchOptionExpirations: failed to decode json: %w", err)
	}

	var expirations []time.Time
	for _, date := range dto.Expirations.Date {
		expiration, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("FetchOptionExpirations: failed to parse date %s: %w", date, err)
		}

		expiration, err = eventmodels.ConvertToMarketClose(expiration)
		if err != nil {
			return nil, fmt.Errorf("FetchOptionExpirations: %w", err)
		}

		expirations = append(expirations, expiration)
	}

	sort.Slice(expirations, func(i, j int) bool {
		return expirations[i].Before(expirations[j])
	})

	return expirations, nil
}

// FetchOptionChainSnapshot fetches the chain for one expiration and stamps
// the snapshot with the underlying quote and the observation time.
func (g *TradierGateway) FetchOptionChainSnapshot(ctx context.Context, symbol eventmodels.StockSymbol, expiration time.Time, now time.Time) (*eventmodels.OptionChainSnapshot, error) {
	quote, err := g.FetchStockQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("FetchOptionChainSnapshot: %w", err)
	}

	spot, err := quote.MidPrice()
	if err != nil {
		return nil, fmt.Errorf("FetchOptionChainSnapshot: %w", err)
	}

	bytes, err := g.get(ctx, g.OptionChainURL, g.NonTradesBearerToken, map[string]string{
		"symbol":     string(symbol),
		"expiration": expiration.Format("2006-01-02"),
		"greeks":     "true",
	})
	if err != nil {
		return nil, fmt.Errorf("FetchOptionChainSnapshot: %w", err)
	}

	ticks, err := utils.ParseTradierResponse[eventmodels.OptionChainTickDTO](bytes)
	if err != nil {
		return nil, fmt.Errorf("FetchOptionChainSnapshot: failed to parse response: %w", err)
	}

	var contracts []*eventmodels.OptionContract
	for _, tick := range ticks {
		contract, err := tick.ToModel()
		if err != nil {
			log.Warnf("FetchOptionChainSnapshot: skipping contract %s: %v", tick.Symbol, err)
			continue
		}

		contracts = append(contracts, contract)
	}

	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].Strike < contracts[j].Strike
	})

	return &eventmodels.OptionChainSnapshot{
		UnderlyingSymbol: symbol,
		Expiration:       expiration,
		UnderlyingPrice:  spot,
		ObservedAt:       now,
		Contracts:        contracts,
	}, nil
}

// FetchPositions returns the open positions of the trading account.
func (g *TradierGateway) FetchPositions(ctx context.Context) ([]eventmodels.TradierPositionDTO, error) {
	bytes, err := g.get(ctx, g.PositionsURL, g.TradesBearerToken, nil)
	if err != nil {
		return nil, fmt.Errorf("FetchPositions: %w", err)
	}

	positions, err := utils.ParseTradierResponse[eventmodels.TradierPositionDTO](bytes)
	if err != nil {
		return nil, fmt.Errorf("FetchPositions: failed to parse response: %w", err)
	}

	return positions, nil
}
