package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"bakery-storefront/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// CardButton is one inline button (text + callback data or url).
type CardButton struct {
	Text         string
	CallbackData string
	URL          string // if set, use as URL button instead of callback
}

// Card is the text and optional inline keyboard a presenter shows for a view.
type Card struct {
	Text    string
	Buttons [][]CardButton
}

// Callback actions carried by card buttons.
const (
	ActionAdd        = "add"
	ActionQuantity   = "qty"
	ActionRemove     = "rm"
	ActionFilter     = "filter"
	ActionCheckout   = "checkout"
	ActionPage       = "page"
	ActionModal      = "modal"
	ActionRate       = "rate"
	ActionDelivery   = "delivery"
	ActionClosePromo = "promo"
)

var ErrBadAction = errors.New("malformed action")

// Action is a decoded callback.
type Action struct {
	Kind  string
	ID    int // item id, line index or rating
	Delta int
	Value string // category, page, modal or delivery type
}

func AddAction(itemID int) string { return ActionAdd + ":" + strconv.Itoa(itemID) }
func QuantityAction(index, delta int) string {
	return fmt.Sprintf("%s:%d:%d", ActionQuantity, index, delta)
}
func RemoveAction(index int) string       { return ActionRemove + ":" + strconv.Itoa(index) }
func FilterAction(category string) string { return ActionFilter + ":" + category }
func PageAction(page string) string       { return ActionPage + ":" + page }
func ModalAction(id string) string        { return ActionModal + ":" + id }
func RateAction(rating int) string        { return ActionRate + ":" + strconv.Itoa(rating) }
func DeliveryAction(kind string) string   { return ActionDelivery + ":" + kind }

// ParseAction decodes callback data produced by the *Action helpers.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, ":")
	bad := fmt.Errorf("%w: %q", ErrBadAction, data)
	switch parts[0] {
	case ActionCheckout, ActionClosePromo:
		if len(parts) != 1 {
			return Action{}, bad
		}
		return Action{Kind: parts[0]}, nil
	case ActionFilter, ActionPage, ActionModal, ActionDelivery:
		if len(parts) != 2 || parts[1] == "" {
			return Action{}, bad
		}
		return Action{Kind: parts[0], Value: parts[1]}, nil
	case ActionAdd, ActionRemove, ActionRate:
		if len(parts) != 2 {
			return Action{}, bad
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return Action{}, bad
		}
		return Action{Kind: parts[0], ID: id}, nil
	case ActionQuantity:
		if len(parts) != 3 {
			return Action{}, bad
		}
		idx, err1 := strconv.Atoi(parts[1])
		delta, err2 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil {
			return Action{}, bad
		}
		return Action{Kind: parts[0], ID: idx, Delta: delta}, nil
	}
	return Action{}, bad
}

var textPolicy = bluemonday.StrictPolicy()

// plain strips markup from user-supplied text and leaves it readable as plain
// text.
func plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func money(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

var categoryLabels = map[string]string{
	models.CategoryAll:      "All",
	models.CategoryCakes:    "Cakes",
	models.CategoryPastries: "Pastries",
	models.CategoryBread:    "Bread",
	models.CategoryDrinks:   "Drinks",
}

var menuFilters = []string{
	models.CategoryAll,
	models.CategoryCakes,
	models.CategoryPastries,
	models.CategoryBread,
	models.CategoryDrinks,
}

// MenuCard is one product as displayed on the menu.
type MenuCard struct {
	ID          int
	Title       string
	Description string
	Price       string
}

type MenuView struct {
	Filter string
	Items  []MenuCard
}

func BuildMenuView(items []models.MenuItem, filter string) MenuView {
	v := MenuView{Filter: filter, Items: make([]MenuCard, 0, len(items))}
	for _, it := range items {
		emoji := it.Emoji
		if emoji == "" {
			emoji = models.DefaultEmoji
		}
		v.Items = append(v.Items, MenuCard{
			ID:          it.ID,
			Title:       emoji + " " + plain(it.Name),
			Description: plain(it.Description),
			Price:       money(it.Price),
		})
	}
	return v
}

// Card lists the products with an add button each and a category selector row.
func (v MenuView) Card() Card {
	var b strings.Builder
	b.WriteString("🧁 Menu")
	if v.Filter != models.CategoryAll && v.Filter != "" {
		b.WriteString(" · " + categoryLabels[v.Filter])
	}
	b.WriteString("\n")
	if len(v.Items) == 0 {
		b.WriteString("\nNothing here yet.")
	}
	var buttons [][]CardButton
	for _, it := range v.Items {
		fmt.Fprintf(&b, "\n%s  %s", it.Title, it.Price)
		if it.Description != "" {
			b.WriteString("\n" + it.Description)
		}
		b.WriteString("\n")
		buttons = append(buttons, []CardButton{{Text: "Add " + it.Title, CallbackData: AddAction(it.ID)}})
	}
	var filters []CardButton
	for _, c := range menuFilters {
		label := categoryLabels[c]
		if c == v.Filter {
			label = "• " + label
		}
		filters = append(filters, CardButton{Text: label, CallbackData: FilterAction(c)})
	}
	buttons = append(buttons, filters)
	return Card{Text: strings.TrimRight(b.String(), "\n"), Buttons: buttons}
}

type CartLineView struct {
	Index     int
	Title     string
	UnitPrice string
	Quantity  int
	Subtotal  string
}

type CartView struct {
	Lines []CartLineView
	Total string
	Count int
}

func (v CartView) Empty() bool { return len(v.Lines) == 0 }

// ShowCheckout reports whether the checkout section is visible.
func (v CartView) ShowCheckout() bool { return !v.Empty() }

func BuildCartView(lines []models.CartLine) CartView {
	v := CartView{Lines: make([]CartLineView, 0, len(lines))}
	total := decimal.Zero
	for i, l := range lines {
		emoji := l.Emoji
		if emoji == "" {
			emoji = models.DefaultEmoji
		}
		v.Lines = append(v.Lines, CartLineView{
			Index:     i,
			Title:     emoji + " " + plain(l.Name),
			UnitPrice: money(l.Price) + " each",
			Quantity:  l.Quantity,
			Subtotal:  money(l.Subtotal()),
		})
		total = total.Add(l.Subtotal())
		v.Count += l.Quantity
	}
	v.Total = money(total)
	return v
}

func (v CartView) Card() Card {
	if v.Empty() {
		return Card{
			Text:    "🛒 Your cart is empty.",
			Buttons: [][]CardButton{{{Text: "Browse menu", CallbackData: PageAction(PageMenu)}}},
		}
	}
	var b strings.Builder
	b.WriteString("🛒 Your cart\n")
	var buttons [][]CardButton
	for _, l := range v.Lines {
		fmt.Fprintf(&b, "\n%d. %s\n%s × %d = %s\n", l.Index+1, l.Title, l.UnitPrice, l.Quantity, l.Subtotal)
		n := strconv.Itoa(l.Index + 1)
		buttons = append(buttons, []CardButton{
			{Text: n + " −", CallbackData: QuantityAction(l.Index, -1)},
			{Text: n + " +", CallbackData: QuantityAction(l.Index, 1)},
			{Text: n + " 🗑️", CallbackData: RemoveAction(l.Index)},
		})
	}
	fmt.Fprintf(&b, "\nTotal: %s", v.Total)
	buttons = append(buttons, []CardButton{{Text: "Checkout", CallbackData: ActionCheckout}})
	return Card{Text: b.String(), Buttons: buttons}
}

// Badge is the cart counter; empty when the cart is.
func Badge(count int) string {
	if count <= 0 {
		return ""
	}
	return strconv.Itoa(count)
}

func Stars(rating int) string {
	var b strings.Builder
	for _, lit := range StarDisplay(rating) {
		if lit {
			b.WriteString("★")
		} else {
			b.WriteString("☆")
		}
	}
	return b.String()
}

type ReviewView struct {
	Name    string
	Stars   string
	Comment string
	Date    string
}

type ReviewsView struct {
	Reviews []ReviewView
}

func BuildReviewsView(reviews []models.Review) ReviewsView {
	v := ReviewsView{Reviews: make([]ReviewView, 0, len(reviews))}
	for _, r := range reviews {
		v.Reviews = append(v.Reviews, ReviewView{
			Name:    plain(r.Name),
			Stars:   Stars(r.Rating),
			Comment: plain(r.Comment),
			Date:    displayDate(r.Date),
		})
	}
	return v
}

func (v ReviewsView) Card() Card {
	if len(v.Reviews) == 0 {
		return Card{Text: "No reviews yet\nBe the first to share your experience!"}
	}
	var b strings.Builder
	b.WriteString("⭐ Reviews\n")
	for _, r := range v.Reviews {
		fmt.Fprintf(&b, "\n%s %s\n%s\n", r.Name, r.Stars, r.Comment)
		if r.Date != "" {
			b.WriteString(r.Date + "\n")
		}
	}
	return Card{Text: strings.TrimRight(b.String(), "\n")}
}

// RatingCard is the star picker used while writing a review.
func RatingCard(current int) Card {
	row := make([]CardButton, 0, MaxRating)
	for i, lit := range StarDisplay(current) {
		star := "☆"
		if lit {
			star = "★"
		}
		row = append(row, CardButton{Text: star, CallbackData: RateAction(i + 1)})
	}
	return Card{Text: "Rate your visit: " + Stars(current), Buttons: [][]CardButton{row}}
}

type OrderHistoryEntry struct {
	Label  string
	Date   string
	Items  int
	Total  string
	Status string
}

type AccountView struct {
	SignedIn bool
	Name     string
	Email    string
	Since    string
	Orders   []OrderHistoryEntry
}

// BuildAccountView shows the profile and the orders placed with its email.
func BuildAccountView(user *models.SessionUser, orders []models.OrderRecord) AccountView {
	if user == nil {
		return AccountView{}
	}
	v := AccountView{
		SignedIn: true,
		Name:     plain(user.Name),
		Email:    plain(user.Email),
		Since:    displayDate(user.Joined),
	}
	for _, o := range orders {
		if o.CustomerEmail != user.Email {
			continue
		}
		id := o.ID
		if len(id) > 6 {
			id = id[len(id)-6:]
		}
		status := o.OrderStatus
		if status == "" {
			status = "Processing"
		}
		v.Orders = append(v.Orders, OrderHistoryEntry{
			Label:  "Order #" + id,
			Date:   displayDate(o.Date),
			Items:  orderItemCount(o.OrderItems),
			Total:  money(models.ParsePrice(o.OrderTotal)),
			Status: status,
		})
	}
	return v
}

func (v AccountView) Card() Card {
	if !v.SignedIn {
		return Card{
			Text: "You are not signed in.",
			Buttons: [][]CardButton{{
				{Text: "Login", CallbackData: ModalAction(ModalLogin)},
				{Text: "Register", CallbackData: ModalAction(ModalRegister)},
			}},
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\nEmail: %s\nMember Since: %s\n\n", v.Name, v.Email, v.Since)
	if len(v.Orders) == 0 {
		b.WriteString("📦 No orders yet")
	} else {
		for _, o := range v.Orders {
			fmt.Fprintf(&b, "%s  %s\n%d items  %s  %s\n", o.Label, o.Date, o.Items, o.Total, o.Status)
		}
	}
	return Card{Text: strings.TrimRight(b.String(), "\n")}
}

// orderItemCount accepts the items either as a JSON string or as a list.
func orderItemCount(items any) int {
	switch v := items.(type) {
	case nil:
		return 0
	case string:
		var list []any
		if err := json.Unmarshal([]byte(v), &list); err != nil {
			return 0
		}
		return len(list)
	default:
		return len(cast.ToSlice(v))
	}
}

// HeaderView is the top of every page: brand, greeting, badge and promo.
type HeaderView struct {
	Title    string
	Greeting string
	Badge    string
	Promo    string
}

func BuildHeaderView(b Branding, user *models.SessionUser, cartCount int, promoVisible bool) HeaderView {
	b = b.WithDefaults()
	v := HeaderView{Title: b.BakeryName, Badge: Badge(cartCount)}
	if user != nil {
		v.Greeting = fmt.Sprintf("Welcome, %s!", plain(user.Name))
	}
	if promoVisible {
		v.Promo = b.PromoText
	}
	return v
}

// HomeCard is the landing page.
func HomeCard(h HeaderView, b Branding) Card {
	b = b.WithDefaults()
	var s strings.Builder
	s.WriteString(h.Title)
	if h.Greeting != "" {
		s.WriteString("\n" + h.Greeting)
	}
	fmt.Fprintf(&s, "\n\n%s\n%s", b.HeroTitle, b.HeroSubtitle)
	if h.Promo != "" {
		s.WriteString("\n\n" + h.Promo)
	}
	cart := "🛒 Cart"
	if h.Badge != "" {
		cart += " (" + h.Badge + ")"
	}
	buttons := [][]CardButton{
		{{Text: "🧁 Menu", CallbackData: PageAction(PageMenu)}, {Text: cart, CallbackData: PageAction(PageCart)}},
		{{Text: "⭐ Reviews", CallbackData: PageAction(PageReviews)}, {Text: "👤 Account", CallbackData: PageAction(PageAccount)}},
		{{Text: "ℹ️ About", CallbackData: PageAction(PageAbout)}, {Text: "✉️ Contact", CallbackData: PageAction(PageContact)}},
	}
	if h.Promo != "" {
		buttons = append(buttons, []CardButton{{Text: "Hide promo", CallbackData: ActionClosePromo}})
	}
	return Card{Text: s.String(), Buttons: buttons}
}

func AboutCard(b Branding) Card {
	b = b.WithDefaults()
	return Card{Text: fmt.Sprintf("%s\n\n📍 %s\n📞 %s\n✉️ %s", b.BakeryName, b.BakeryAddress, b.BakeryPhone, b.BakeryEmail)}
}

// BrandingCard lists the editable branding values and the derived theme.
func BrandingCard(b Branding) Card {
	var s strings.Builder
	s.WriteString("🎨 Branding\n")
	for _, f := range b.EditPanelValues() {
		fmt.Fprintf(&s, "\n%s: %s", f.Key, f.Value)
	}
	th := b.Theme()
	fmt.Fprintf(&s, "\n\nfont: %s, %dpx (h1 %.0f, h2 %.0f, h3 %.0f)", th.FontStack, th.BaseSize, th.H1Size, th.H2Size, th.H3Size)
	fmt.Fprintf(&s, "\ncolors: text %s, background %s, primary %s", th.TextColor, th.BackgroundColor, th.PrimaryColor)
	return Card{Text: s.String()}
}

func displayDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}
