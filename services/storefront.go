package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bakery-storefront/models"
	"bakery-storefront/storage"

	"go.uber.org/zap"
)

// OrderSubmitter sends an order to the order endpoint. CheckoutClient is the
// production implementation.
type OrderSubmitter interface {
	Submit(ctx context.Context, order models.Order) CheckoutResult
}

// Records is the data API content partitioned by record type.
type Records struct {
	Reviews []models.Review
	Users   []models.SessionUser
	Orders  []models.OrderRecord
}

// Deps are the collaborators of a storefront session. Only Store is required.
type Deps struct {
	Store         storage.Store
	ServedCatalog *Catalog
	Checkout      OrderSubmitter
	DataAPI       DataAPI
	Branding      BrandingSource
	Notifier      Notifier
	Logger        *zap.Logger
	Now           func() time.Time
}

type CheckoutForm struct {
	Name         string
	Phone        string
	Email        string
	DeliveryType string
	Address      string
}

// Storefront is one customer session: menu, cart, forms and UI state.
type Storefront struct {
	UI    *UI
	Menu  *MenuRenderer
	Cart  *CartStore
	Forms *Forms

	// CheckoutForm is filled by the presenter and reset after a placed order.
	CheckoutForm CheckoutForm

	catalog  *Catalog
	branding Branding
	checkout OrderSubmitter
	api      DataAPI
	data     Records
	logger   *zap.Logger

	initializing bool
	initMenu     []models.Record
}

// NewStorefront initializes the optional data API, picks the catalog, loads
// the persisted cart and session user, and picks the form backend.
func NewStorefront(ctx context.Context, deps Deps) (*Storefront, error) {
	if deps.Store == nil {
		return nil, errors.New("storefront: store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Storefront{
		UI:       NewUI(deps.Notifier),
		checkout: deps.Checkout,
		logger:   deps.Logger,
	}

	api := deps.DataAPI
	if api != nil {
		s.initializing = true
		err := api.Init(ctx, s)
		s.initializing = false
		if err != nil {
			deps.Logger.Warn("data api unavailable, using local forms", zap.Error(err))
			api = nil
		}
	}
	s.api = api

	switch {
	case deps.ServedCatalog != nil && deps.ServedCatalog.Len() > 0:
		s.catalog = deps.ServedCatalog
	default:
		if c, ok := catalogFromRecords(s.initMenu); ok {
			s.catalog = c
		} else {
			s.catalog = DefaultCatalog()
		}
	}
	s.initMenu = nil

	s.Menu = NewMenuRenderer(s.catalog)
	s.Cart = NewCartStore(deps.Store, s.catalog, s.UI, deps.Logger)
	if err := s.Cart.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}

	var backend formBackend = localForms{data: &s.data}
	if api != nil {
		backend = remoteForms{api: api, now: deps.Now}
	}
	s.Forms = newForms(s.UI, deps.Store, backend, &s.data, deps.Now, deps.Logger)
	if err := s.Forms.LoadUser(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.branding = DefaultBranding()
	if deps.Branding != nil {
		b, err := deps.Branding.Branding(ctx)
		if err != nil {
			deps.Logger.Warn("branding source failed, using defaults", zap.Error(err))
		} else {
			s.branding = b.WithDefaults()
		}
	}
	return s, nil
}

// Close stops data API updates for this storefront.
func (s *Storefront) Close() {
	if s.api != nil {
		s.api.Unsubscribe(s)
		s.api = nil
	}
}

// OnDataChanged replaces the reviews, users and orders with the latest
// record list. Menu records only count while the storefront is initializing.
func (s *Storefront) OnDataChanged(records []models.Record) {
	var next Records
	var menu []models.Record
	for _, r := range records {
		switch r.Type() {
		case models.RecordReview:
			var v models.Review
			if err := decodeRecord(r, &v); err != nil {
				s.logger.Warn("skipping review record", zap.String("id", r.ID()), zap.Error(err))
				continue
			}
			next.Reviews = append(next.Reviews, v)
		case models.RecordUser:
			var v models.SessionUser
			if err := decodeRecord(r, &v); err != nil {
				s.logger.Warn("skipping user record", zap.String("id", r.ID()), zap.Error(err))
				continue
			}
			next.Users = append(next.Users, v)
		case models.RecordOrder:
			var v models.OrderRecord
			if err := decodeRecord(r, &v); err != nil {
				s.logger.Warn("skipping order record", zap.String("id", r.ID()), zap.Error(err))
				continue
			}
			next.Orders = append(next.Orders, v)
		case models.RecordMenu:
			menu = append(menu, r)
		}
	}
	s.data = next
	if s.initializing {
		s.initMenu = menu
	}
}

func (s *Storefront) Catalog() *Catalog  { return s.catalog }
func (s *Storefront) Branding() Branding { return s.branding }
func (s *Storefront) Reviews() []models.Review {
	out := make([]models.Review, len(s.data.Reviews))
	copy(out, s.data.Reviews)
	return out
}

// Checkout submits the cart. An empty cart is rejected without any network
// call. The returned error is ErrEmptyCart or a failure to persist the
// cleared cart; submission failures are reported in the result.
func (s *Storefront) Checkout(ctx context.Context) (CheckoutResult, error) {
	if s.Cart.Empty() {
		s.UI.Error(msgCartEmpty)
		return CheckoutResult{Message: msgCartEmpty}, ErrEmptyCart
	}
	if s.checkout == nil {
		s.UI.Error(msgOrderFailed)
		return CheckoutResult{Message: msgOrderFailed}, nil
	}

	s.UI.SetLoading(LoadingCheckout, true)
	defer s.UI.SetLoading(LoadingCheckout, false)

	f := s.CheckoutForm
	order := models.NewOrder(
		s.Cart.Lines(),
		models.Customer{Name: f.Name, Phone: f.Phone, Email: f.Email},
		models.Delivery{Type: f.DeliveryType, Address: f.Address},
	)
	res := s.checkout.Submit(ctx, order)
	if !res.OK {
		s.logger.Info("order not placed", zap.String("message", res.Message), zap.Bool("fallback", res.Fallback))
		s.UI.Error(res.Message)
		return res, nil
	}

	err := s.Cart.Clear(ctx)
	s.CheckoutForm = CheckoutForm{}
	s.UI.ShowPage(PageHome)
	s.UI.Success(res.Message)
	return res, err
}

// Dispatch applies a decoded button action.
func (s *Storefront) Dispatch(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionAdd:
		return s.Cart.Add(ctx, a.ID)
	case ActionQuantity:
		return s.Cart.UpdateQuantity(ctx, a.ID, a.Delta)
	case ActionRemove:
		return s.Cart.Remove(ctx, a.ID)
	case ActionFilter:
		return s.Menu.SetFilter(a.Value)
	case ActionPage:
		s.UI.ShowPage(a.Value)
		return nil
	case ActionModal:
		s.UI.ShowModal(a.Value)
		return nil
	case ActionRate:
		return s.Forms.SetRating(a.ID)
	case ActionDelivery:
		if a.Value != models.DeliveryPickup && a.Value != models.DeliveryDelivery {
			return fmt.Errorf("%w: delivery %q", ErrBadAction, a.Value)
		}
		s.CheckoutForm.DeliveryType = a.Value
		return nil
	case ActionClosePromo:
		s.UI.ClosePromo()
		return nil
	case ActionCheckout:
		_, err := s.Checkout(ctx)
		return err
	}
	return fmt.Errorf("%w: %q", ErrBadAction, a.Kind)
}

func (s *Storefront) Header() HeaderView {
	return BuildHeaderView(s.branding, s.Forms.User(), s.Cart.Count(), s.UI.PromoVisible())
}

func (s *Storefront) HomeCard() Card     { return HomeCard(s.Header(), s.branding) }
func (s *Storefront) MenuCard() Card     { return s.Menu.Render().Card() }
func (s *Storefront) CartCard() Card     { return BuildCartView(s.Cart.Lines()).Card() }
func (s *Storefront) ReviewsCard() Card  { return BuildReviewsView(s.data.Reviews).Card() }
func (s *Storefront) AboutCard() Card    { return AboutCard(s.branding) }
func (s *Storefront) BrandingCard() Card { return BrandingCard(s.branding) }
func (s *Storefront) AccountCard() Card {
	return BuildAccountView(s.Forms.User(), s.data.Orders).Card()
}

// PageCard renders the current page.
func (s *Storefront) PageCard() Card {
	switch s.UI.Page() {
	case PageMenu:
		return s.MenuCard()
	case PageCart:
		return s.CartCard()
	case PageReviews:
		return s.ReviewsCard()
	case PageAbout, PageContact:
		return s.AboutCard()
	case PageAccount:
		return s.AccountCard()
	}
	return s.HomeCard()
}
