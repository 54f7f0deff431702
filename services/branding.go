package services

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Branding is the restyling configuration supplied by the optional rendering
// source. Empty fields fall back to DefaultBranding.
type Branding struct {
	BakeryName      string `yaml:"bakery_name"`
	HeroTitle       string `yaml:"hero_title"`
	HeroSubtitle    string `yaml:"hero_subtitle"`
	PromoText       string `yaml:"promo_text"`
	BakeryAddress   string `yaml:"bakery_address"`
	BakeryPhone     string `yaml:"bakery_phone"`
	BakeryEmail     string `yaml:"bakery_email"`
	PrimaryColor    string `yaml:"primary_color"`
	SecondaryColor  string `yaml:"secondary_color"`
	BackgroundColor string `yaml:"background_color"`
	AccentColor     string `yaml:"accent_color"`
	TextColor       string `yaml:"text_color"`
	FontFamily      string `yaml:"font_family"`
	FontSize        int    `yaml:"font_size"`
}

func DefaultBranding() Branding {
	return Branding{
		BakeryName:      "AMiROH Bakery",
		HeroTitle:       "Freshly Baked Every Day",
		HeroSubtitle:    "Handcrafted breads, pastries & cakes made with love using traditional recipes and the finest ingredients",
		PromoText:       "🎉 Grand Opening Special: 20% off all cakes this week!",
		BakeryAddress:   "123 Web Street, So City, Hard 12345",
		BakeryPhone:     "(555) ",
		BakeryEmail:     "hello@AMiROHbakery.com",
		PrimaryColor:    "#92400E",
		SecondaryColor:  "#F59E0B",
		BackgroundColor: "#FEF7ED",
		AccentColor:     "#FBBF24",
		TextColor:       "#374151",
		FontFamily:      "Inter",
		FontSize:        16,
	}
}

// BrandingSource supplies a branding override.
type BrandingSource interface {
	Branding(ctx context.Context) (Branding, error)
}

// BrandingFile reads a YAML branding override from disk.
type BrandingFile string

func (f BrandingFile) Branding(_ context.Context) (Branding, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return Branding{}, fmt.Errorf("read branding %s: %w", string(f), err)
	}
	var b Branding
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Branding{}, fmt.Errorf("parse branding %s: %w", string(f), err)
	}
	return b, nil
}

// WithDefaults fills every empty field from DefaultBranding.
func (b Branding) WithDefaults() Branding {
	d := DefaultBranding()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	out := Branding{
		BakeryName:      pick(b.BakeryName, d.BakeryName),
		HeroTitle:       pick(b.HeroTitle, d.HeroTitle),
		HeroSubtitle:    pick(b.HeroSubtitle, d.HeroSubtitle),
		PromoText:       pick(b.PromoText, d.PromoText),
		BakeryAddress:   pick(b.BakeryAddress, d.BakeryAddress),
		BakeryPhone:     pick(b.BakeryPhone, d.BakeryPhone),
		BakeryEmail:     pick(b.BakeryEmail, d.BakeryEmail),
		PrimaryColor:    pick(b.PrimaryColor, d.PrimaryColor),
		SecondaryColor:  pick(b.SecondaryColor, d.SecondaryColor),
		BackgroundColor: pick(b.BackgroundColor, d.BackgroundColor),
		AccentColor:     pick(b.AccentColor, d.AccentColor),
		TextColor:       pick(b.TextColor, d.TextColor),
		FontFamily:      pick(b.FontFamily, d.FontFamily),
		FontSize:        b.FontSize,
	}
	if out.FontSize <= 0 {
		out.FontSize = d.FontSize
	}
	return out
}

// Theme is the derived styling for a presenter.
type Theme struct {
	FontStack       string
	BaseSize        int
	H1Size          float64
	H2Size          float64
	H3Size          float64
	BackgroundColor string
	TextColor       string
	PrimaryColor    string
}

func (b Branding) Theme() Theme {
	b = b.WithDefaults()
	base := float64(b.FontSize)
	return Theme{
		FontStack:       b.FontFamily + ", Inter, sans-serif",
		BaseSize:        b.FontSize,
		H1Size:          base * 3,
		H2Size:          base * 2.25,
		H3Size:          base * 1.75,
		BackgroundColor: b.BackgroundColor,
		TextColor:       b.TextColor,
		PrimaryColor:    b.PrimaryColor,
	}
}

// EditField is one editable text value in a branding editor.
type EditField struct {
	Key   string
	Value string
}

// EditPanelValues lists the editable text fields in display order.
func (b Branding) EditPanelValues() []EditField {
	b = b.WithDefaults()
	return []EditField{
		{"bakery_name", b.BakeryName},
		{"hero_title", b.HeroTitle},
		{"hero_subtitle", b.HeroSubtitle},
		{"promo_text", b.PromoText},
		{"bakery_address", b.BakeryAddress},
		{"bakery_phone", b.BakeryPhone},
		{"bakery_email", b.BakeryEmail},
	}
}
