package models

import "github.com/shopspring/decimal"

const (
	DeliveryPickup   = "pickup"
	DeliveryDelivery = "delivery"
)

type OrderItem struct {
	ID       int
	Name     string
	Price    decimal.Decimal
	Quantity int
}

type Customer struct {
	Name  string
	Phone string
	Email string
}

type Delivery struct {
	Type    string // pickup or delivery
	Address string
}

// Order exists only for the duration of one checkout submission.
type Order struct {
	Items    []OrderItem
	Total    decimal.Decimal
	Customer Customer
	Delivery Delivery
}

// NewOrder snapshots cart lines and computes the total from them.
func NewOrder(lines []CartLine, customer Customer, delivery Delivery) Order {
	items := make([]OrderItem, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		items[i] = OrderItem{ID: l.ID, Name: l.Name, Price: l.Price, Quantity: qty}
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	if delivery.Type != DeliveryDelivery {
		delivery.Type = DeliveryPickup
	}
	return Order{Items: items, Total: total, Customer: customer, Delivery: delivery}
}
