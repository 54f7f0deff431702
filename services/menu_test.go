package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bakery-storefront/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() != 16 {
		t.Fatalf("Len = %d, want 16", c.Len())
	}
	it, ok := c.Find(9)
	if !ok || it.Name != "Sourdough Bread" || !it.Price.Equal(dec("7.99")) {
		t.Errorf("Find(9) = %+v, %v", it, ok)
	}
	if _, ok := c.Find(42); ok {
		t.Error("Find(42) should miss")
	}
}

func TestMenuRenderer_FilterKeepsCatalogOrder(t *testing.T) {
	m := NewMenuRenderer(DefaultCatalog())
	if err := m.SetFilter(models.CategoryBread); err != nil {
		t.Fatal(err)
	}
	v := m.Render()
	want := []int{9, 10, 11, 12}
	if len(v.Items) != len(want) {
		t.Fatalf("items = %d, want %d", len(v.Items), len(want))
	}
	for i, id := range want {
		if v.Items[i].ID != id {
			t.Errorf("item %d id = %d, want %d", i, v.Items[i].ID, id)
		}
	}
	if v.Items[0].Price != "$7.99" || v.Items[0].Title != "🍞 Sourdough Bread" {
		t.Errorf("first card = %+v", v.Items[0])
	}

	if err := m.SetFilter(models.CategoryAll); err != nil {
		t.Fatal(err)
	}
	if n := len(m.Render().Items); n != 16 {
		t.Errorf("all = %d items, want 16", n)
	}
}

func TestMenuRenderer_UnknownCategory(t *testing.T) {
	m := NewMenuRenderer(DefaultCatalog())
	_ = m.SetFilter(models.CategoryDrinks)
	if err := m.SetFilter("pizza"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("SetFilter(pizza) = %v, want ErrUnknownCategory", err)
	}
	if m.Filter() != models.CategoryDrinks {
		t.Errorf("filter changed to %q after rejection", m.Filter())
	}
}

func TestMenuItemFromFields(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want models.MenuItem
	}{
		{
			"complete",
			map[string]any{"id": 3, "name": "Pie", "price": "4.25", "category": "cakes", "emoji": "🥧", "description": "Warm"},
			models.MenuItem{ID: 3, Name: "Pie", Price: dec("4.25"), Category: "cakes", Emoji: "🥧", Description: "Warm"},
		},
		{
			"title fallback",
			map[string]any{"id": 4, "title": "Muffin", "price": 2.5},
			models.MenuItem{ID: 4, Name: "Muffin", Price: dec("2.5"), Category: models.CategoryOther, Emoji: models.DefaultEmoji},
		},
		{
			"category case folded",
			map[string]any{"id": 5, "name": "Rye", "category": " Bread "},
			models.MenuItem{ID: 5, Name: "Rye", Price: dec("0"), Category: models.CategoryBread, Emoji: models.DefaultEmoji},
		},
		{
			"unknown category",
			map[string]any{"id": 6, "name": "Apple Pie", "category": "pies"},
			models.MenuItem{ID: 6, Name: "Apple Pie", Price: dec("0"), Category: models.CategoryOther, Emoji: models.DefaultEmoji},
		},
		{
			"bare",
			map[string]any{"id": "12", "price": "n/a"},
			models.MenuItem{ID: 12, Name: "Item 12", Price: dec("0"), Category: models.CategoryOther, Emoji: models.DefaultEmoji},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MenuItemFromFields(tt.in)
			if got.ID != tt.want.ID || got.Name != tt.want.Name || !got.Price.Equal(tt.want.Price) ||
				got.Category != tt.want.Category || got.Emoji != tt.want.Emoji || got.Description != tt.want.Description {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "menu.yaml")
	yamlData := `
- id: 1
  name: Baguette
  price: 5.50
  category: bread
- id: 2
  title: Mystery
`
	if err := os.WriteFile(yamlPath, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}
	c, ok, err := LoadCatalogFile(yamlPath)
	if err != nil || !ok {
		t.Fatalf("LoadCatalogFile = %v, %v", ok, err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	it, _ := c.Find(2)
	if it.Name != "Mystery" || it.Category != models.CategoryOther || !it.Price.IsZero() {
		t.Errorf("normalized item = %+v", it)
	}

	jsonPath := filepath.Join(dir, "menu.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"id": 7, "name": "Latte", "price": "3.75", "category": "drinks"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, ok, err = LoadCatalogFile(jsonPath)
	if err != nil || !ok || c.Len() != 1 {
		t.Fatalf("json catalog = %v, %v", ok, err)
	}

	emptyPath := filepath.Join(dir, "empty.yaml")
	_ = os.WriteFile(emptyPath, []byte("[]"), 0o644)
	if _, ok, err := LoadCatalogFile(emptyPath); err != nil || ok {
		t.Errorf("empty catalog = %v, %v; want ok false", ok, err)
	}

	if _, _, err := LoadCatalogFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
