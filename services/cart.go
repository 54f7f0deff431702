package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bakery-storefront/models"
	"bakery-storefront/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrLineNotFound = errors.New("cart line not found")

// CartStore holds the cart lines and mirrors them to durable storage after
// every mutation. It is owned by a single session and is not safe for
// concurrent use.
type CartStore struct {
	store    storage.Store
	catalog  *Catalog
	ui       *UI
	logger   *zap.Logger
	lines    []models.CartLine
	onChange func()
}

func NewCartStore(store storage.Store, catalog *Catalog, ui *UI, logger *zap.Logger) *CartStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartStore{store: store, catalog: catalog, ui: ui, logger: logger}
}

// OnChange registers the display refresh hook fired after every mutation.
func (c *CartStore) OnChange(f func()) { c.onChange = f }

// Load replaces the in-memory lines with the persisted cart. A missing or
// unreadable entry yields an empty cart.
func (c *CartStore) Load(ctx context.Context) error {
	c.lines = nil
	data, ok, err := c.store.Get(ctx, storage.KeyCart)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil
	}
	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		c.logger.Warn("discarding unreadable cart", zap.Error(err))
		return nil
	}
	c.lines = lines
	return nil
}

func (c *CartStore) persist(ctx context.Context) error {
	lines := c.lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	if err := c.store.Set(ctx, storage.KeyCart, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (c *CartStore) changed(ctx context.Context) error {
	err := c.persist(ctx)
	if err != nil {
		c.logger.Error("persist cart", zap.Error(err))
	}
	if c.onChange != nil {
		c.onChange()
	}
	return err
}

// Add increments the line for itemID or appends a new one copied from the
// catalog. Unknown ids get a zero-priced placeholder line.
func (c *CartStore) Add(ctx context.Context, itemID int) error {
	found := false
	for i := range c.lines {
		if c.lines[i].ID == itemID {
			c.lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		line := models.CartLine{
			ID:       itemID,
			Quantity: 1,
			Name:     fmt.Sprintf("Item %d", itemID),
			Price:    decimal.Zero,
			Emoji:    models.DefaultEmoji,
		}
		if item, ok := c.catalog.Find(itemID); ok {
			line.Name = item.Name
			line.Price = item.Price
			if item.Emoji != "" {
				line.Emoji = item.Emoji
			}
		}
		c.lines = append(c.lines, line)
	}
	err := c.changed(ctx)
	c.ui.Success("Item added to cart!")
	return err
}

// UpdateQuantity adds delta to the line's quantity, removing the line when the
// result drops to zero or below.
func (c *CartStore) UpdateQuantity(ctx context.Context, index, delta int) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("%w: index %d", ErrLineNotFound, index)
	}
	if c.lines[index].Quantity+delta <= 0 {
		return c.Remove(ctx, index)
	}
	c.lines[index].Quantity += delta
	return c.changed(ctx)
}

func (c *CartStore) Remove(ctx context.Context, index int) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("%w: index %d", ErrLineNotFound, index)
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return c.changed(ctx)
}

// Clear empties the cart and persists the empty list.
func (c *CartStore) Clear(ctx context.Context) error {
	c.lines = nil
	return c.changed(ctx)
}

// Lines returns a copy of the current lines.
func (c *CartStore) Lines() []models.CartLine {
	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *CartStore) Empty() bool { return len(c.lines) == 0 }

// Total is recomputed from the lines on every call.
func (c *CartStore) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count is the number of units in the cart, shown on the cart badge.
func (c *CartStore) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}
