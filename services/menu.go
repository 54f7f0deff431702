package services

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"bakery-storefront/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

var ErrUnknownCategory = errors.New("unknown menu category")

// Catalog is the immutable list of purchasable products for a session.
type Catalog struct {
	items []models.MenuItem
	byID  map[int]int
}

func NewCatalog(items []models.MenuItem) *Catalog {
	c := &Catalog{
		items: make([]models.MenuItem, len(items)),
		byID:  make(map[int]int, len(items)),
	}
	copy(c.items, items)
	for i, it := range c.items {
		if _, dup := c.byID[it.ID]; !dup {
			c.byID[it.ID] = i
		}
	}
	return c
}

// Find returns the first item with the given id.
func (c *Catalog) Find(id int) (models.MenuItem, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.MenuItem{}, false
	}
	return c.items[i], true
}

func (c *Catalog) Len() int { return len(c.items) }

// Items returns a copy in catalog order.
func (c *Catalog) Items() []models.MenuItem {
	out := make([]models.MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

// Filter returns items of one category in catalog order; "all" returns everything.
func (c *Catalog) Filter(category string) []models.MenuItem {
	if category == models.CategoryAll || category == "" {
		return c.Items()
	}
	var out []models.MenuItem
	for _, it := range c.items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// MenuRenderer tracks the active category filter over a catalog.
type MenuRenderer struct {
	catalog *Catalog
	filter  string
}

func NewMenuRenderer(c *Catalog) *MenuRenderer {
	return &MenuRenderer{catalog: c, filter: models.CategoryAll}
}

func (m *MenuRenderer) Filter() string { return m.filter }

func (m *MenuRenderer) SetFilter(category string) error {
	if category != models.CategoryAll && !models.IsCategory(category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	m.filter = category
	return nil
}

func (m *MenuRenderer) Render() MenuView {
	return BuildMenuView(m.catalog.Filter(m.filter), m.filter)
}

// MenuItemFromFields normalizes a loosely typed product (served catalog entry
// or data API "menu" record).
func MenuItemFromFields(f map[string]any) models.MenuItem {
	id := cast.ToInt(f["id"])
	name := cast.ToString(f["name"])
	if name == "" {
		name = cast.ToString(f["title"])
	}
	if name == "" {
		name = fmt.Sprintf("Item %d", id)
	}
	category := strings.ToLower(strings.TrimSpace(cast.ToString(f["category"])))
	if !models.IsCategory(category) {
		category = models.CategoryOther
	}
	emoji := cast.ToString(f["emoji"])
	if emoji == "" {
		emoji = models.DefaultEmoji
	}
	return models.MenuItem{
		ID:          id,
		Name:        name,
		Price:       models.ParsePrice(f["price"]),
		Category:    category,
		Emoji:       emoji,
		Description: cast.ToString(f["description"]),
	}
}

// LoadCatalogFile reads a served catalog. The file is a YAML (or JSON) list of
// products; an empty list is reported as ok=false so the caller falls back.
func LoadCatalogFile(path string) (*Catalog, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	items := make([]models.MenuItem, 0, len(raw))
	for _, f := range raw {
		items = append(items, MenuItemFromFields(f))
	}
	return NewCatalog(items), true, nil
}

// catalogFromRecords maps "menu" records; ok=false when there are none.
func catalogFromRecords(records []models.Record) (*Catalog, bool) {
	var items []models.MenuItem
	for _, r := range records {
		if r.Type() == models.RecordMenu {
			items = append(items, MenuItemFromFields(r))
		}
	}
	if len(items) == 0 {
		return nil, false
	}
	return NewCatalog(items), true
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultCatalog is the menu bundled with the storefront.
func DefaultCatalog() *Catalog {
	return NewCatalog([]models.MenuItem{
		{ID: 1, Name: "Signature Chocolate Cake", Price: price("32.99"), Category: models.CategoryCakes, Emoji: "🍰", Description: "Rich, moist chocolate layers with premium Belgian chocolate ganache and fresh berries"},
		{ID: 2, Name: "Red Velvet Delight", Price: price("29.99"), Category: models.CategoryCakes, Emoji: "❤️", Description: "Classic red velvet with cream cheese frosting and delicate vanilla notes"},
		{ID: 3, Name: "Lemon Blueberry Cake", Price: price("27.99"), Category: models.CategoryCakes, Emoji: "🍋", Description: "Zesty lemon cake with fresh blueberries and lemon cream frosting"},
		{ID: 4, Name: "Carrot Spice Cake", Price: price("28.99"), Category: models.CategoryCakes, Emoji: "🥕", Description: "Moist carrot cake with warm spices, walnuts, and cream cheese frosting"},
		{ID: 5, Name: "AMiROH Croissants", Price: price("4.50"), Category: models.CategoryPastries, Emoji: "🥐", Description: "Buttery, flaky pastries made with French technique and European butter"},
		{ID: 6, Name: "Pain au Chocolat", Price: price("5.25"), Category: models.CategoryPastries, Emoji: "🍫", Description: "Buttery croissant dough filled with premium dark chocolate"},
		{ID: 7, Name: "Apple Cinnamon Danish", Price: price("5.75"), Category: models.CategoryPastries, Emoji: "🍎", Description: "Flaky pastry with spiced apples, cinnamon, and vanilla glaze"},
		{ID: 8, Name: "Almond Croissant", Price: price("5.99"), Category: models.CategoryPastries, Emoji: "🌰", Description: "Croissant filled with almond cream and topped with sliced almonds"},
		{ID: 9, Name: "Sourdough Bread", Price: price("7.99"), Category: models.CategoryBread, Emoji: "🍞", Description: "Traditional sourdough with perfect crust and tangy flavor, fermented for 24 hours"},
		{ID: 10, Name: "Whole Grain AMiROH", Price: price("8.50"), Category: models.CategoryBread, Emoji: "🌾", Description: "Hearty multigrain bread with seeds and ancient grains"},
		{ID: 11, Name: "French Baguette", Price: price("5.50"), Category: models.CategoryBread, Emoji: "🥖", Description: "Crispy crust, airy interior, authentic French technique"},
		{ID: 12, Name: "Cinnamon Swirl Bread", Price: price("9.25"), Category: models.CategoryBread, Emoji: "🍞", Description: "Sweet bread with cinnamon swirl and raisins, perfect for toast"},
		{ID: 13, Name: "AMiROH Coffee Blend", Price: price("3.99"), Category: models.CategoryDrinks, Emoji: "☕", Description: "Rich, aromatic coffee blend roasted to perfection"},
		{ID: 14, Name: "Premium Hot Chocolate", Price: price("4.99"), Category: models.CategoryDrinks, Emoji: "🍫", Description: "Creamy hot chocolate made with Belgian chocolate and whipped cream"},
		{ID: 15, Name: "Chai Spice Latte", Price: price("4.75"), Category: models.CategoryDrinks, Emoji: "🫖", Description: "Warming spiced chai tea with steamed milk and honey"},
		{ID: 16, Name: "Fresh Orange Juice", Price: price("4.25"), Category: models.CategoryDrinks, Emoji: "🍊", Description: "Freshly squeezed orange juice, no additives"},
	})
}
