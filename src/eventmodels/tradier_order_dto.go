package eventmodels

import (
	"fmt"
	"time"
)

// TradierOrderDTO mirrors one order of the Tradier /accounts/{id}/orders
// responses.
type TradierOrderDTO struct {
	ID                uint    `json:"id"`
	Type              string  `json:"type"`
	Symbol            string  `json:"symbol"`
	Side              string  `json:"side"`
	Quantity          float64 `json:"quantity"`
	Status            string  `json:"status"`
	Duration          string  `json:"duration"`
	Price             float64 `json:"price"`
	AvgFillPrice      float64 `json:"avg_fill_price"`
	ExecQuantity      float64 `json:"exec_quantity"`
	RemainingQuantity float64 `json:"remaining_quantity"`
	CreateDate        string  `json:"create_date"`
	TransactionDate   string  `json:"transaction_date"`
	Class             string  `json:"class"`
	OptionSymbol      *string `json:"option_symbol"`
	ReasonDescription *string `json:"reason_description"`
	Tag               string  `json:"tag"`
}

type TradierOrder struct {
	ID              uint
	Status          OrderStatus
	AvgFillPrice    float64
	ExecQuantity    float64
	TransactionDate time.Time
	Reason          string
	Tag             string
}

func (dto *TradierOrderDTO) ToModel() (*TradierOrder, error) {
	status, err := NewOrderStatusFromTradier(dto.Status)
	if err != nil {
		return nil, fmt.Errorf("TradierOrderDTO:ToModel(): %w", err)
	}

	transactionDate, err := time.Parse(time.RFC3339, dto.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("TradierOrderDTO:ToModel(): failed to parse transaction date: %w", err)
	}

	order := &TradierOrder{
		ID:              dto.ID,
		Status:          status,
		AvgFillPrice:    dto.AvgFillPrice,
		ExecQuantity:    dto.ExecQuantity,
		TransactionDate: transactionDate,
		Tag:             dto.Tag,
	}

	if dto.ReasonDescription != nil {
		order.Reason = *dto.ReasonDescription
	}

	return order, nil
}

// TradierPlaceOrderResponseDTO mirrors the POST /accounts/{id}/orders reply.
type TradierPlaceOrderResponseDTO struct {
	Order struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	} `json:"order"`
	Errors *struct {
		Error []string `json:"error"`
	} `json:"errors"`
}
