package models

import "github.com/shopspring/decimal"

type MenuItem struct {
	ID          int
	Name        string
	Price       decimal.Decimal
	Category    string // cakes, pastries, bread, drinks, other
	Emoji       string
	Description string
}

const (
	CategoryCakes    = "cakes"
	CategoryPastries = "pastries"
	CategoryBread    = "bread"
	CategoryDrinks   = "drinks"
	CategoryOther    = "other"

	// CategoryAll is the menu filter that disables filtering.
	CategoryAll = "all"

	DefaultEmoji = "🍪"
)

// Categories lists the filterable categories in display order.
var Categories = []string{CategoryCakes, CategoryPastries, CategoryBread, CategoryDrinks, CategoryOther}

func IsCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}
