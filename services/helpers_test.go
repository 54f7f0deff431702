package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bakery-storefront/models"
	"bakery-storefront/storage"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeSubmitter records orders and returns a canned result.
type fakeSubmitter struct {
	result CheckoutResult
	orders []models.Order
}

func (f *fakeSubmitter) Submit(_ context.Context, o models.Order) CheckoutResult {
	f.orders = append(f.orders, o)
	return f.result
}

// fakeDataAPI keeps records in memory and publishes like the Postgres one.
type fakeDataAPI struct {
	records     []models.Record
	createErr   error
	initErr     error
	created     []models.Record
	subscribers []ChangeHandler
	onCreate    func(models.Record)
}

func (f *fakeDataAPI) Init(_ context.Context, h ChangeHandler) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.subscribers = append(f.subscribers, h)
	h.OnDataChanged(f.records)
	return nil
}

func (f *fakeDataAPI) Unsubscribe(h ChangeHandler) {
	for i, s := range f.subscribers {
		if s == h {
			f.subscribers = append(f.subscribers[:i], f.subscribers[i+1:]...)
			return
		}
	}
}

func (f *fakeDataAPI) Create(_ context.Context, r models.Record) error {
	if f.onCreate != nil {
		f.onCreate(r)
	}
	if f.createErr != nil {
		return f.createErr
	}
	// round-trip through JSON like a real store would
	data, _ := json.Marshal(r)
	var stored models.Record
	_ = json.Unmarshal(data, &stored)
	f.created = append(f.created, stored)
	f.records = append([]models.Record{stored}, f.records...)
	for _, h := range f.subscribers {
		h.OnDataChanged(f.records)
	}
	return nil
}

var errBackendDown = errors.New("backend down")

type testSession struct {
	sf     *Storefront
	store  *storage.Memory
	toasts *ToastRecorder
}

func newTestSession(t *testing.T, deps Deps) *testSession {
	t.Helper()
	mem, ok := deps.Store.(*storage.Memory)
	if !ok {
		mem = storage.NewMemory()
		deps.Store = mem
	}
	rec := &ToastRecorder{}
	deps.Notifier = rec
	if deps.Now == nil {
		deps.Now = fixedNow
	}
	sf, err := NewStorefront(context.Background(), deps)
	if err != nil {
		t.Fatalf("NewStorefront: %v", err)
	}
	return &testSession{sf: sf, store: mem, toasts: rec}
}

// lastToast drains the recorder and returns the most recent toast.
func (s *testSession) lastToast(t *testing.T) Toast {
	t.Helper()
	toasts := s.toasts.Drain()
	if len(toasts) == 0 {
		t.Fatal("no toast raised")
	}
	return toasts[len(toasts)-1]
}

func (s *testSession) storedCart(t *testing.T) []models.CartLine {
	t.Helper()
	data, ok, err := s.store.Get(context.Background(), storage.KeyCart)
	if err != nil || !ok {
		t.Fatalf("stored cart: ok=%v err=%v", ok, err)
	}
	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		t.Fatalf("stored cart: %v", err)
	}
	return lines
}
