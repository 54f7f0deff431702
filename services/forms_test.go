package services

import (
	"context"
	"errors"
	"testing"

	"bakery-storefront/models"
	"bakery-storefront/storage"

	"golang.org/x/crypto/bcrypt"
)

func TestForms_MessagesByBackend(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		remote bool
		submit func(f *Forms) error
		want   string
	}{
		{"newsletter remote", true, func(f *Forms) error { return f.SubscribeNewsletter(ctx, "a@b.c") }, "Thank you for subscribing!"},
		{"newsletter local", false, func(f *Forms) error { return f.SubscribeNewsletter(ctx, "a@b.c") }, "Subscribed (local fallback)"},
		{"contact remote", true, func(f *Forms) error { return f.SubmitContact(ctx, ContactForm{Name: "A", Email: "a@b.c", Message: "hi"}) }, "Message sent successfully!"},
		{"contact local", false, func(f *Forms) error { return f.SubmitContact(ctx, ContactForm{Name: "A"}) }, "Message saved locally (fallback)"},
		{"register remote", true, func(f *Forms) error { return f.Register(ctx, RegisterForm{Name: "A", Email: "a@b.c", Password: "pw"}) }, "Account created successfully!"},
		{"register local", false, func(f *Forms) error { return f.Register(ctx, RegisterForm{Name: "A", Email: "a@b.c"}) }, "Account created (local)"},
		{"review remote", true, func(f *Forms) error { _ = f.SetRating(4); return f.SubmitReview(ctx, ReviewForm{Name: "A"}) }, "Thank you for your review!"},
		{"review local", false, func(f *Forms) error { _ = f.SetRating(4); return f.SubmitReview(ctx, ReviewForm{Name: "A"}) }, "Thank you for your review! (local)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var deps Deps
			if tt.remote {
				deps.DataAPI = &fakeDataAPI{}
			}
			s := newTestSession(t, deps)
			if s.sf.Forms.Remote() != tt.remote {
				t.Fatalf("Remote() = %v, want %v", s.sf.Forms.Remote(), tt.remote)
			}
			if err := tt.submit(s.sf.Forms); err != nil {
				t.Fatalf("submit: %v", err)
			}
			if toast := s.lastToast(t); toast.Message != tt.want || toast.Kind != ToastSuccess {
				t.Errorf("toast = %+v, want %q", toast, tt.want)
			}
		})
	}
}

func TestForms_RemoteFailureMessages(t *testing.T) {
	ctx := context.Background()
	api := &fakeDataAPI{}
	s := newTestSession(t, Deps{DataAPI: api})
	api.createErr = errBackendDown

	_ = s.sf.Forms.SetRating(3)
	if err := s.sf.Forms.SubmitReview(ctx, ReviewForm{Name: "A"}); !errors.Is(err, errBackendDown) {
		t.Fatalf("SubmitReview = %v", err)
	}
	if toast := s.lastToast(t); toast.Message != "Review submission failed. Please try again." || toast.Kind != ToastError {
		t.Errorf("toast = %+v", toast)
	}
	if s.sf.Forms.Rating() != 3 {
		t.Error("rating cleared after failed submit")
	}
	if s.sf.UI.Loading(LoadingReview) {
		t.Error("review loading flag left on")
	}

	if err := s.sf.Forms.SubscribeNewsletter(ctx, "a@b.c"); err == nil {
		t.Fatal("subscribe should fail")
	}
	if toast := s.lastToast(t); toast.Message != "Subscription failed. Please try again." {
		t.Errorf("toast = %q", toast.Message)
	}
}

func TestForms_ReviewRequiresRating(t *testing.T) {
	ctx := context.Background()
	for _, remote := range []bool{false, true} {
		api := &fakeDataAPI{}
		deps := Deps{}
		if remote {
			deps.DataAPI = api
		}
		s := newTestSession(t, deps)
		err := s.sf.Forms.SubmitReview(ctx, ReviewForm{Name: "A", Comment: "Nice"})
		if !errors.Is(err, ErrRatingRequired) {
			t.Fatalf("remote=%v: err = %v, want ErrRatingRequired", remote, err)
		}
		if toast := s.lastToast(t); toast.Message != "Please select a rating" || toast.Kind != ToastError {
			t.Errorf("remote=%v: toast = %+v", remote, toast)
		}
		if len(api.created) != 0 || len(s.sf.Reviews()) != 0 {
			t.Errorf("remote=%v: review stored without a rating", remote)
		}
	}
}

func TestForms_SetRatingBounds(t *testing.T) {
	s := newTestSession(t, Deps{})
	for _, r := range []int{-1, 6} {
		if err := s.sf.Forms.SetRating(r); !errors.Is(err, ErrRatingOutOfRange) {
			t.Errorf("SetRating(%d) = %v", r, err)
		}
	}
	if err := s.sf.Forms.SetRating(5); err != nil || s.sf.Forms.Rating() != 5 {
		t.Errorf("SetRating(5) = %v, rating %d", err, s.sf.Forms.Rating())
	}
}

func TestForms_LocalReviewIsPrepended(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Deps{})
	for _, name := range []string{"First", "Second"} {
		_ = s.sf.Forms.SetRating(5)
		if err := s.sf.Forms.SubmitReview(ctx, ReviewForm{Name: name, Comment: "Good"}); err != nil {
			t.Fatal(err)
		}
	}
	reviews := s.sf.Reviews()
	if len(reviews) != 2 || reviews[0].Name != "Second" || reviews[1].Name != "First" {
		t.Fatalf("reviews = %+v", reviews)
	}
	if !reviews[0].Date.Equal(testNow) || reviews[0].ID == "" || reviews[0].ID == reviews[1].ID {
		t.Errorf("review stamp = %+v", reviews[0])
	}
	if s.sf.Forms.Rating() != 0 {
		t.Errorf("rating = %d after submit, want 0", s.sf.Forms.Rating())
	}
}

func TestForms_RemoteReviewRefreshesList(t *testing.T) {
	ctx := context.Background()
	api := &fakeDataAPI{}
	s := newTestSession(t, Deps{DataAPI: api})
	_ = s.sf.Forms.SetRating(4)
	if err := s.sf.Forms.SubmitReview(ctx, ReviewForm{Name: "Ann", Email: "ann@example.com", Comment: "Lovely"}); err != nil {
		t.Fatal(err)
	}
	if len(api.created) != 1 {
		t.Fatalf("created %d records", len(api.created))
	}
	rec := api.created[0]
	if rec.Type() != models.RecordReview || rec["comment"] != "Lovely" || rec["date"] != "2026-03-14T09:30:00Z" {
		t.Errorf("record = %v", rec)
	}
	reviews := s.sf.Reviews()
	if len(reviews) != 1 || reviews[0].Rating != 4 || reviews[0].Name != "Ann" {
		t.Errorf("reviews = %+v", reviews)
	}
}

func TestForms_RegisterStoresHashOnly(t *testing.T) {
	ctx := context.Background()
	api := &fakeDataAPI{}
	s := newTestSession(t, Deps{DataAPI: api})
	if err := s.sf.Forms.Register(ctx, RegisterForm{Name: "Ann", Email: "ann@example.com", Password: "s3cret"}); err != nil {
		t.Fatal(err)
	}
	rec := api.created[0]
	if _, ok := rec["password"]; ok {
		t.Error("plain password stored")
	}
	hash, _ := rec["password_hash"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")) != nil {
		t.Errorf("password_hash %q does not match", hash)
	}
	u := s.sf.Forms.User()
	if u == nil || u.Name != "Ann" || !u.Joined.Equal(testNow) {
		t.Errorf("user = %+v", u)
	}
	if _, ok, _ := s.store.Get(ctx, storage.KeyCurrentUser); !ok {
		t.Error("session user not persisted")
	}
}

func TestForms_Login(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Deps{})
	s.sf.UI.ShowModal(ModalLogin)

	if err := s.sf.Forms.Login(ctx, "baker@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	u := s.sf.Forms.User()
	if u == nil || u.Name != "baker" || u.Email != "baker@example.com" {
		t.Errorf("synthesized user = %+v", u)
	}
	if s.sf.UI.ModalOpen(ModalLogin) {
		t.Error("login modal still open")
	}
	if toast := s.lastToast(t); toast.Message != "Welcome back!" {
		t.Errorf("toast = %q", toast.Message)
	}
	if h := s.sf.Header(); h.Greeting != "Welcome, baker!" {
		t.Errorf("greeting = %q", h.Greeting)
	}
}

func TestForms_LoginInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Deps{})
	if err := s.sf.Forms.Login(ctx, "nobody@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
	if toast := s.lastToast(t); toast.Message != "Invalid credentials" || toast.Kind != ToastError {
		t.Errorf("toast = %+v", toast)
	}
	if s.sf.Forms.User() != nil {
		t.Error("user signed in")
	}
}

func TestForms_Logout(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Deps{})
	_ = s.sf.Forms.Login(ctx, "ann@example.com", "pw")
	s.sf.UI.ShowPage(PageAccount)

	if err := s.sf.Forms.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if s.sf.Forms.User() != nil {
		t.Error("user still signed in")
	}
	if _, ok, _ := s.store.Get(ctx, storage.KeyCurrentUser); ok {
		t.Error("session user still stored")
	}
	if s.sf.UI.Page() != PageHome {
		t.Errorf("page = %q", s.sf.UI.Page())
	}
	if toast := s.lastToast(t); toast.Message != "Logged out successfully" {
		t.Errorf("toast = %q", toast.Message)
	}

	// a new session on the same store starts signed out
	again := newTestSession(t, Deps{Store: s.store})
	if again.sf.Forms.User() != nil {
		t.Error("logout did not persist")
	}
}

func TestStorefront_DataAPIInitFailureUsesLocalForms(t *testing.T) {
	s := newTestSession(t, Deps{DataAPI: &fakeDataAPI{initErr: errBackendDown}})
	if s.sf.Forms.Remote() {
		t.Error("remote forms after init failure")
	}
	if s.sf.Catalog().Len() != 16 {
		t.Errorf("catalog len = %d", s.sf.Catalog().Len())
	}
}

func TestForms_LoadingFlagsDuringSubmit(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		flag   string
		submit func(f *Forms) error
	}{
		{LoadingNewsletter, func(f *Forms) error { return f.SubscribeNewsletter(ctx, "a@b.c") }},
		{LoadingRegister, func(f *Forms) error { return f.Register(ctx, RegisterForm{Name: "A", Email: "a@b.c", Password: "pw"}) }},
		{LoadingContact, func(f *Forms) error { return f.SubmitContact(ctx, ContactForm{Name: "A"}) }},
		{LoadingReview, func(f *Forms) error { _ = f.SetRating(2); return f.SubmitReview(ctx, ReviewForm{Name: "A"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			api := &fakeDataAPI{}
			s := newTestSession(t, Deps{DataAPI: api})
			during := false
			api.onCreate = func(models.Record) { during = s.sf.UI.Loading(tt.flag) }

			if err := tt.submit(s.sf.Forms); err != nil {
				t.Fatal(err)
			}
			if !during {
				t.Errorf("%s loading flag off while submitting", tt.flag)
			}
			if s.sf.UI.Loading(tt.flag) {
				t.Errorf("%s loading flag left on", tt.flag)
			}
		})
	}
}
