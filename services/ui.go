package services

import "sync"

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a short-lived notification shown to the customer.
type Toast struct {
	Message string
	Kind    ToastKind
}

// Notifier delivers toasts to whatever surface presents the storefront.
type Notifier interface {
	Notify(t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

// ToastRecorder buffers toasts until the presenter drains them.
type ToastRecorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *ToastRecorder) Notify(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

// Drain returns buffered toasts in arrival order and empties the buffer.
func (r *ToastRecorder) Drain() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.toasts
	r.toasts = nil
	return out
}

const (
	PageHome    = "home"
	PageMenu    = "menu"
	PageCart    = "cart"
	PageReviews = "reviews"
	PageAbout   = "about"
	PageAccount = "account"
	PageContact = "contact"

	ModalLogin    = "login"
	ModalRegister = "register"

	LoadingCheckout   = "checkout"
	LoadingReview     = "review"
	LoadingContact    = "contact"
	LoadingNewsletter = "newsletter"
	LoadingRegister   = "register"

	MaxRating = 5
)

// UI holds presentation state: current page, open modals, loading flags and
// the promo banner. It carries no business logic.
type UI struct {
	notifier Notifier

	page        string
	modals      map[string]bool
	loading     map[string]bool
	promoHidden bool
	mobileMenu  bool
}

func NewUI(n Notifier) *UI {
	if n == nil {
		n = NotifierFunc(func(Toast) {})
	}
	return &UI{
		notifier: n,
		page:     PageHome,
		modals:   make(map[string]bool),
		loading:  make(map[string]bool),
	}
}

func (u *UI) Success(msg string) { u.notifier.Notify(Toast{Message: msg, Kind: ToastSuccess}) }
func (u *UI) Error(msg string)   { u.notifier.Notify(Toast{Message: msg, Kind: ToastError}) }

func (u *UI) Page() string { return u.page }

// ShowPage switches the active page and closes the mobile menu.
func (u *UI) ShowPage(page string) {
	u.page = page
	u.mobileMenu = false
}

func (u *UI) ShowModal(id string)      { u.modals[id] = true }
func (u *UI) HideModal(id string)      { delete(u.modals, id) }
func (u *UI) ModalOpen(id string) bool { return u.modals[id] }

func (u *UI) SwitchModal(from, to string) {
	u.HideModal(from)
	u.ShowModal(to)
}

func (u *UI) SetLoading(form string, on bool) {
	if on {
		u.loading[form] = true
		return
	}
	delete(u.loading, form)
}

func (u *UI) Loading(form string) bool { return u.loading[form] }

func (u *UI) ClosePromo()        { u.promoHidden = true }
func (u *UI) PromoVisible() bool { return !u.promoHidden }

func (u *UI) ToggleMobileMenu()    { u.mobileMenu = !u.mobileMenu }
func (u *UI) MobileMenuOpen() bool { return u.mobileMenu }

// StarDisplay returns which of the five stars are lit for a rating.
func StarDisplay(rating int) [MaxRating]bool {
	var stars [MaxRating]bool
	for i := 0; i < MaxRating && i < rating; i++ {
		stars[i] = true
	}
	return stars
}
