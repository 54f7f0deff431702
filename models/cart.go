package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// CartLine is a denormalized copy of a menu item taken when it was first added.
type CartLine struct {
	ID       int
	Quantity int
	Name     string
	Price    decimal.Decimal
	Emoji    string
}

// Subtotal is Price × Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type cartLineJSON struct {
	ID       any    `json:"id"`
	Quantity any    `json:"quantity"`
	Name     string `json:"name"`
	Price    any    `json:"price"`
	Emoji    string `json:"emoji"`
}

func (l CartLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       int         `json:"id"`
		Quantity int         `json:"quantity"`
		Name     string      `json:"name"`
		Price    json.Number `json:"price"`
		Emoji    string      `json:"emoji"`
	}{l.ID, l.Quantity, l.Name, json.Number(l.Price.String()), l.Emoji})
}

// UnmarshalJSON is lenient: a missing or non-numeric price reads as 0 and a
// quantity below 1 reads as 1.
func (l *CartLine) UnmarshalJSON(data []byte) error {
	var raw cartLineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.ID = cast.ToInt(raw.ID)
	l.Quantity = cast.ToInt(raw.Quantity)
	if l.Quantity < 1 {
		l.Quantity = 1
	}
	l.Name = raw.Name
	l.Price = ParsePrice(raw.Price)
	l.Emoji = raw.Emoji
	return nil
}

// ParsePrice converts a loosely typed price to a non-negative decimal,
// falling back to zero for anything it cannot read.
func ParsePrice(v any) decimal.Decimal {
	var d decimal.Decimal
	switch p := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		d = p
	case float64:
		d = decimal.NewFromFloat(p)
	case float32:
		d = decimal.NewFromFloat32(p)
	default:
		parsed, err := decimal.NewFromString(cast.ToString(v))
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
