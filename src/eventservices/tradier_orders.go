package eventservices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/utils"
)

// PlaceOrder submits order to the Tradier orders endpoint and records the
// broker-assigned id on the order. The caller is responsible for any dry-run
// gating, this method always hits the wire.
func (g *TradierGateway) PlaceOrder(ctx context.Context, order *eventmodels.TradeOrder) (*eventmodels.TradierPlaceOrderResponseDTO, error) {
	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("PlaceOrder: invalid order: %w", err)
	}

	if order.Tag != "" {
		if err := utils.ValidateTag(order.Tag); err != nil {
			return nil, fmt.Errorf("PlaceOrder: invalid tag: %w", err)
		}
	}

	client := http.Client{
		Timeout: 10 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.OrdersURL, nil)
	if err != nil {
		return nil, fmt.Errorf("PlaceOrder: failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Add("class", string(order.Class))
	q.Add("symbol", strings.ToUpper(string(order.Symbol)))
	q.Add("side", string(order.Side))
	q.Add("quantity", strconv.Itoa(order.Quantity))
	q.Add("type", string(order.Kind))
	q.Add("duration", "day")

	if order.Class == eventmodels.OrderClassOption {
		q.Add("option_symbol", order.OptionSymbol.NoPrefix())
	}

	if order.Kind == eventmodels.OrderKindLimit {
		q.Add("price", fmt.Sprintf("%.2f", *order.LimitPrice))
	}

	if order.Tag != "" {
		q.Add("tag", order.Tag)
	}

	req.URL.RawQuery = q.Encode()
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", g.TradesBearerToken))

	log.Infof("PlaceOrder: placing order: %v", req.URL.String())

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("PlaceOrder: failed to place order: %w", err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PlaceOrder: failed to place order, http code %v", res.Status)
	}

	var response eventmodels.TradierPlaceOrderResponseDTO
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("PlaceOrder: failed to decode response: %w", err)
	}

	if response.Errors != nil && len(response.Errors.Error) > 0 {
		return nil, fmt.Errorf("PlaceOrder: broker rejected order: %v", response.Errors.Error)
	}

	brokerID := response.Order.ID
	order.BrokerID = &brokerID

	log.Infof("PlaceOrder: placed order %d with status %s", response.Order.ID, response.Order.Status)

	return &response, nil
}

// FetchOrders returns every order of the trading account, newest included.
func (g *TradierGateway) FetchOrders(ctx context.Context) ([]*eventmodels.TradierOrder, error) {
	bytes, err := g.get(ctx, g.OrdersURL, g.TradesBearerToken, map[string]string{
		"includeTags": "true",
	})
	if err != nil {
		return nil, fmt.Errorf("FetchOrders: %w", err)
	}

	dtos, err := utils.ParseTradierResponse[eventmodels.TradierOrderDTO](bytes)
	if err != nil {
		return nil, fmt.Errorf("FetchOrders: failed to parse response: %w", err)
	}

	var orders []*eventmodels.TradierOrder
	for _, dto := range dtos {
		order, err := dto.ToModel()
		if err != nil {
			log.Warnf("FetchOrders: skipping order %d: %v", dto.ID, err)
			continue
		}

		orders = append(orders, order)
	}

	return orders, nil
}

// FetchOrder returns the current broker state of an order.
func (g *TradierGateway) FetchOrder(ctx context.Context, orderID uint) (*eventmodels.TradierOrder, error) {
	parsedUrl, err := url.Parse(g.OrdersURL)
	if err != nil {
		return nil, fmt.Errorf("FetchOrder: failed to parse base URL: %w", err)
	}

	parsedUrl.Path, err = url.JoinPath(parsedUrl.Path, fmt.Sprintf("%d", orderID))
	if err != nil {
		return nil, fmt.Errorf("FetchOrder: failed to join path: %w", err)
	}

	bytes, err := g.get(ctx, parsedUrl.String(), g.TradesBearerToken, map[string]string{
		"includeTags": "true",
	})
	if err != nil {
		return nil, fmt.Errorf("FetchOrder: %w", err)
	}

	var dto struct {
		Order eventmodels.TradierOrderDTO `json:"order"`
	}
	if err := json.Unmarshal(bytes, &dto); err != nil {
		return nil, fmt.Errorf("FetchOrder: failed to decode json: %w", err)
	}

	order, err := dto.Order.ToModel()
	if err != nil {
		return nil, fmt.Errorf("FetchOrder: %w", err)
	}

	return order, nil
}
