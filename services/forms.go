package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakery-storefront/models"
	"bakery-storefront/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrRatingRequired     = errors.New("rating required")
	ErrRatingOutOfRange   = errors.New("rating out of range")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const (
	msgRatingRequired     = "Please select a rating"
	msgWelcomeBack        = "Welcome back!"
	msgInvalidCredentials = "Invalid credentials"
	msgLoggedOut          = "Logged out successfully"
)

// formMessages are the toasts a backend reports for each form.
type formMessages struct {
	newsletterOK, newsletterFail string
	reviewOK, reviewFail         string
	contactOK, contactFail       string
	registerOK, registerFail     string
}

var remoteMessages = formMessages{
	newsletterOK:   "Thank you for subscribing!",
	newsletterFail: "Subscription failed. Please try again.",
	reviewOK:       "Thank you for your review!",
	reviewFail:     "Review submission failed. Please try again.",
	contactOK:      "Message sent successfully!",
	contactFail:    "Message failed to send. Please try again.",
	registerOK:     "Account created successfully!",
	registerFail:   "Registration failed. Please try again.",
}

// the local backend never fails, so its fail messages are never shown
var localMessages = formMessages{
	newsletterOK: "Subscribed (local fallback)",
	reviewOK:     "Thank you for your review! (local)",
	contactOK:    "Message saved locally (fallback)",
	registerOK:   "Account created (local)",
}

type ReviewForm struct {
	Name    string
	Email   string
	Comment string
}

type ContactForm struct {
	Name    string
	Email   string
	Message string
}

type RegisterForm struct {
	Name     string
	Email    string
	Password string
}

// formBackend is where submitted forms go. It is picked once when the
// storefront is built.
type formBackend interface {
	subscribe(ctx context.Context, email string) error
	review(ctx context.Context, r models.Review) error
	contact(ctx context.Context, f ContactForm) error
	register(ctx context.Context, f RegisterForm) error
	messages() formMessages
}

// remoteForms writes every form as a data API record.
type remoteForms struct {
	api DataAPI
	now func() time.Time
}

func (b remoteForms) messages() formMessages { return remoteMessages }

func (b remoteForms) subscribe(ctx context.Context, email string) error {
	return b.api.Create(ctx, newRecord(models.RecordNewsletter, map[string]any{
		"newsletter_email": email,
	}, b.now()))
}

func (b remoteForms) review(ctx context.Context, r models.Review) error {
	return b.api.Create(ctx, newRecord(models.RecordReview, map[string]any{
		"name":    r.Name,
		"email":   r.Email,
		"rating":  r.Rating,
		"comment": r.Comment,
	}, b.now()))
}

func (b remoteForms) contact(ctx context.Context, f ContactForm) error {
	return b.api.Create(ctx, newRecord(models.RecordContact, map[string]any{
		"contact_name":    f.Name,
		"contact_email":   f.Email,
		"contact_message": f.Message,
	}, b.now()))
}

func (b remoteForms) register(ctx context.Context, f RegisterForm) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return b.api.Create(ctx, newRecord(models.RecordUser, map[string]any{
		"name":          f.Name,
		"email":         f.Email,
		"password_hash": string(hash),
	}, b.now()))
}

// localForms keeps reviews in memory and acknowledges everything else.
type localForms struct {
	data *Records
}

func (b localForms) messages() formMessages { return localMessages }

func (b localForms) subscribe(context.Context, string) error { return nil }

func (b localForms) review(_ context.Context, r models.Review) error {
	b.data.Reviews = append([]models.Review{r}, b.data.Reviews...)
	return nil
}

func (b localForms) contact(context.Context, ContactForm) error { return nil }

func (b localForms) register(context.Context, RegisterForm) error { return nil }

// Forms handles the newsletter, review, contact and account forms.
type Forms struct {
	ui      *UI
	store   storage.Store
	backend formBackend
	data    *Records
	now     func() time.Time
	logger  *zap.Logger

	rating int
	user   *models.SessionUser
}

func newForms(ui *UI, store storage.Store, backend formBackend, data *Records, now func() time.Time, logger *zap.Logger) *Forms {
	return &Forms{ui: ui, store: store, backend: backend, data: data, now: now, logger: logger}
}

// Remote reports whether forms go to the data API.
func (f *Forms) Remote() bool {
	_, ok := f.backend.(remoteForms)
	return ok
}

func (f *Forms) SubscribeNewsletter(ctx context.Context, email string) error {
	f.ui.SetLoading(LoadingNewsletter, true)
	defer f.ui.SetLoading(LoadingNewsletter, false)

	msg := f.backend.messages()
	if err := f.backend.subscribe(ctx, email); err != nil {
		f.logger.Warn("newsletter subscribe failed", zap.Error(err))
		f.ui.Error(msg.newsletterFail)
		return err
	}
	f.ui.Success(msg.newsletterOK)
	return nil
}

func (f *Forms) Rating() int { return f.rating }

// SetRating selects the review rating; 0 clears it.
func (f *Forms) SetRating(r int) error {
	if r < 0 || r > MaxRating {
		return fmt.Errorf("%w: %d", ErrRatingOutOfRange, r)
	}
	f.rating = r
	return nil
}

func (f *Forms) SubmitReview(ctx context.Context, in ReviewForm) error {
	if f.rating == 0 {
		f.ui.Error(msgRatingRequired)
		return ErrRatingRequired
	}
	f.ui.SetLoading(LoadingReview, true)
	defer f.ui.SetLoading(LoadingReview, false)

	review := models.Review{
		ID:      uuid.NewString(),
		Name:    in.Name,
		Email:   in.Email,
		Rating:  f.rating,
		Comment: in.Comment,
		Date:    f.now(),
	}
	msg := f.backend.messages()
	if err := f.backend.review(ctx, review); err != nil {
		f.logger.Warn("review submit failed", zap.Error(err))
		f.ui.Error(msg.reviewFail)
		return err
	}
	f.rating = 0
	f.ui.Success(msg.reviewOK)
	return nil
}

func (f *Forms) SubmitContact(ctx context.Context, in ContactForm) error {
	f.ui.SetLoading(LoadingContact, true)
	defer f.ui.SetLoading(LoadingContact, false)

	msg := f.backend.messages()
	if err := f.backend.contact(ctx, in); err != nil {
		f.logger.Warn("contact submit failed", zap.Error(err))
		f.ui.Error(msg.contactFail)
		return err
	}
	f.ui.Success(msg.contactOK)
	return nil
}

// User is the signed-in customer, or nil.
func (f *Forms) User() *models.SessionUser {
	if f.user == nil {
		return nil
	}
	u := *f.user
	return &u
}

// LoadUser restores the session user saved by an earlier login.
func (f *Forms) LoadUser(ctx context.Context) error {
	f.user = nil
	data, ok, err := f.store.Get(ctx, storage.KeyCurrentUser)
	if err != nil {
		return fmt.Errorf("load current user: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil
	}
	var u models.SessionUser
	if err := json.Unmarshal(data, &u); err != nil {
		f.logger.Warn("discarding unreadable session user", zap.Error(err))
		return nil
	}
	f.user = &u
	return nil
}

func (f *Forms) setUser(ctx context.Context, u models.SessionUser) error {
	f.user = &u
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := f.store.Set(ctx, storage.KeyCurrentUser, data); err != nil {
		f.logger.Error("persist session user", zap.Error(err))
		return fmt.Errorf("save current user: %w", err)
	}
	return nil
}

// Login signs in a known user by email or, failing that, any non-empty
// email and password pair.
func (f *Forms) Login(ctx context.Context, email, password string) error {
	if wait := f.loginWaitSeconds(ctx); wait > 0 {
		f.ui.Error(throttledMessage(wait))
		return ErrLoginThrottled
	}
	email = strings.TrimSpace(email)
	var user *models.SessionUser
	for i := range f.data.Users {
		if f.data.Users[i].Email == email && email != "" {
			u := f.data.Users[i]
			user = &u
			break
		}
	}
	if user == nil {
		if email == "" || password == "" {
			f.recordLoginFailed(ctx)
			f.ui.Error(msgInvalidCredentials)
			return ErrInvalidCredentials
		}
		user = &models.SessionUser{Name: localPart(email), Email: email, Joined: f.now()}
	}
	f.recordLoginSuccess(ctx)
	err := f.setUser(ctx, *user)
	f.ui.HideModal(ModalLogin)
	f.ui.Success(msgWelcomeBack)
	return err
}

func (f *Forms) Register(ctx context.Context, in RegisterForm) error {
	f.ui.SetLoading(LoadingRegister, true)
	defer f.ui.SetLoading(LoadingRegister, false)

	msg := f.backend.messages()
	if err := f.backend.register(ctx, in); err != nil {
		f.logger.Warn("register failed", zap.Error(err))
		f.ui.Error(msg.registerFail)
		return err
	}
	err := f.setUser(ctx, models.SessionUser{Name: in.Name, Email: in.Email, Joined: f.now()})
	f.ui.HideModal(ModalRegister)
	f.ui.Success(msg.registerOK)
	return err
}

func (f *Forms) Logout(ctx context.Context) error {
	f.user = nil
	err := f.store.Delete(ctx, storage.KeyCurrentUser)
	if err != nil {
		f.logger.Error("clear session user", zap.Error(err))
		err = fmt.Errorf("clear current user: %w", err)
	}
	f.ui.Success(msgLoggedOut)
	f.ui.ShowPage(PageHome)
	return err
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
