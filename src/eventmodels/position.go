package eventmodels

import "time"

// OptionPosition is one option leg held against the underlying.
type OptionPosition struct {
	Symbol   OptionSymbol
	Quantity float64 // signed: negative when short
}

// Position is a ticker's holdings: signed share count plus option legs.
// It is rebuilt from broker positions at the top of a cycle; confirmed fills
// in between replace it via Clone, never mutate it in place.
type Position struct {
	Symbol    StockSymbol
	Shares    int
	Options   []OptionPosition
	UpdatedAt time.Time
}

// Clone returns a deep copy. Stores hand out clones so readers never observe
// a position mutating under them.
func (p *Position) Clone() *Position {
	clone := *p
	clone.Options = append([]OptionPosition(nil), p.Options...)

	return &clone
}

func (p *Position) IsFlat() bool {
	return p.Shares == 0 && len(p.Options) == 0
}

// ApplyFill folds a confirmed fill into the position.
func (p *Position) ApplyFill(order *TradeOrder, now time.Time) {
	if order.Status != OrderStatusFilled {
		return
	}

	qty := float64(order.Quantity)

	switch order.Class {
	case OrderClassEquity:
		switch order.Side {
		case OrderSideBuy, OrderSideBuyToCover:
			p.Shares += order.Quantity
		case OrderSideSell, OrderSideSellShort:
			p.Shares -= order.Quantity
		}
	case OrderClassOption:
		if order.OptionSymbol == nil {
			return
		}

		switch order.Side {
		case OrderSideBuyToOpen, OrderSideBuyToClose:
			p.addOption(*order.OptionSymbol, qty)
		case OrderSideSellToOpen, OrderSideSellToClose:
			p.addOption(*order.OptionSymbol, -qty)
		}
	}

	p.UpdatedAt = now
}

func (p *Position) addOption(symbol OptionSymbol, qty float64) {
	for i := range p.Options {
		if p.Options[i].Symbol == symbol {
			p.Options[i].Quantity += qty
			if p.Options[i].Quantity == 0 {
				p.Options = append(p.Options[:i], p.Options[i+1:]...)
			}
			return
		}
	}

	p.Options = append(p.Options, OptionPosition{Symbol: symbol, Quantity: qty})
}
