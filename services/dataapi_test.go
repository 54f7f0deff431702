package services

import (
	"context"
	"errors"
	"testing"

	"bakery-storefront/db"
	"bakery-storefront/models"
)

func TestPostgresDataAPI_CreateNeedsSubscriber(t *testing.T) {
	p := NewPostgresDataAPI(nil, nil)
	err := p.Create(context.Background(), newRecord(models.RecordContact, nil, testNow))
	if !errors.Is(err, ErrDataAPINotInitialized) {
		t.Errorf("Create = %v, want ErrDataAPINotInitialized", err)
	}
}

func TestPostgresDataAPI_Unsubscribe(t *testing.T) {
	a := newTestSession(t, Deps{}).sf
	b := newTestSession(t, Deps{}).sf
	p := NewPostgresDataAPI(nil, nil)
	p.subscribers = []ChangeHandler{a, b}

	p.Unsubscribe(a)
	p.Unsubscribe(a)
	if got := p.subscribed(); len(got) != 1 || got[0] != ChangeHandler(b) {
		t.Errorf("subscribers = %v", got)
	}
}

func TestDataAPI_ChangesReachEverySession(t *testing.T) {
	ctx := context.Background()
	api := &fakeDataAPI{}
	a := newTestSession(t, Deps{DataAPI: api})
	b := newTestSession(t, Deps{DataAPI: api})

	_ = a.sf.Forms.SetRating(5)
	if err := a.sf.Forms.SubmitReview(ctx, ReviewForm{Name: "Ann", Comment: "Lovely"}); err != nil {
		t.Fatal(err)
	}
	if got := b.sf.Reviews(); len(got) != 1 || got[0].Name != "Ann" || got[0].Rating != 5 {
		t.Errorf("other session reviews = %+v", got)
	}

	if err := b.sf.Forms.Register(ctx, RegisterForm{Name: "Bo", Email: "bo@example.com", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	if got := a.sf.data.Users; len(got) != 1 || got[0].Email != "bo@example.com" {
		t.Errorf("other session users = %+v", got)
	}

	// a closed session no longer follows changes
	a.sf.Close()
	_ = b.sf.Forms.SetRating(3)
	_ = b.sf.Forms.SubmitReview(ctx, ReviewForm{Name: "Bo"})
	if len(a.sf.Reviews()) != 1 || len(b.sf.Reviews()) != 2 {
		t.Errorf("reviews a=%d b=%d, want 1 and 2", len(a.sf.Reviews()), len(b.sf.Reviews()))
	}
}

func TestPostgresDataAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if db.Pool == nil {
		t.Skip("skipping postgres integration test: no DB pool")
	}
	ctx := context.Background()
	const reviewer = "integration-test-reviewer"
	defer func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM data_records WHERE payload->>'name' = $1`, reviewer)
	}()

	api := NewPostgresDataAPI(db.Pool, nil)
	a := newTestSession(t, Deps{DataAPI: api})
	b := newTestSession(t, Deps{DataAPI: api})
	defer a.sf.Close()
	defer b.sf.Close()
	if !a.sf.Forms.Remote() || !b.sf.Forms.Remote() {
		t.Fatal("sessions did not pick the remote form backend")
	}
	before := len(b.sf.Reviews())

	_ = a.sf.Forms.SetRating(4)
	if err := a.sf.Forms.SubmitReview(ctx, ReviewForm{Name: reviewer, Comment: "Fresh"}); err != nil {
		t.Fatal(err)
	}
	got := b.sf.Reviews()
	if len(got) != before+1 {
		t.Fatalf("other session has %d reviews, want %d", len(got), before+1)
	}
	if got[0].Name != reviewer || got[0].Rating != 4 {
		t.Errorf("newest review = %+v", got[0])
	}
}
