package models

import (
	"time"

	"github.com/spf13/cast"
)

type SessionUser struct {
	Name   string    `json:"name" mapstructure:"name"`
	Email  string    `json:"email" mapstructure:"email"`
	Joined time.Time `json:"date" mapstructure:"date"`
}

type Review struct {
	ID      string    `mapstructure:"id"`
	Name    string    `mapstructure:"name"`
	Email   string    `mapstructure:"email"`
	Rating  int       `mapstructure:"rating"`
	Comment string    `mapstructure:"comment"`
	Date    time.Time `mapstructure:"date"`
}

// OrderRecord is an order as reported back by the data API.
type OrderRecord struct {
	ID            string    `mapstructure:"id"`
	CustomerEmail string    `mapstructure:"customer_email"`
	OrderItems    any       `mapstructure:"order_items"` // JSON string or list
	OrderTotal    string    `mapstructure:"order_total"`
	OrderStatus   string    `mapstructure:"order_status"`
	Date          time.Time `mapstructure:"date"`
}

// Record is a loosely typed data API entry; "type" discriminates its kind.
type Record map[string]any

const (
	RecordReview     = "review"
	RecordUser       = "user"
	RecordOrder      = "order"
	RecordMenu       = "menu"
	RecordNewsletter = "newsletter"
	RecordContact    = "contact"
)

func (r Record) ID() string   { return cast.ToString(r["id"]) }
func (r Record) Type() string { return cast.ToString(r["type"]) }
