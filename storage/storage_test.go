package storage

import (
	"context"
	"path/filepath"
	"testing"

	"bakery-storefront/db"
)

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, KeyCart); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want ok false, nil", ok, err)
	}
	if err := s.Set(ctx, KeyCart, []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, KeyCart)
	if err != nil || !ok || string(v) != `[{"id":1}]` {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if err := s.Set(ctx, KeyCart, []byte(`[]`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, _, _ = s.Get(ctx, KeyCart)
	if string(v) != `[]` {
		t.Errorf("after overwrite Get = %q, want []", v)
	}
	if err := s.Delete(ctx, KeyCart); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, KeyCart); ok {
		t.Error("key still present after Delete")
	}
	if err := s.Delete(ctx, KeyCart); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	in := []byte("abc")
	_ = m.Set(ctx, "k", in)
	in[0] = 'x'
	v, _, _ := m.Get(ctx, "k")
	v[1] = 'y'
	again, _, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	b, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	exerciseStore(t, b)

	// values survive reopening
	ctx := context.Background()
	if err := b.Set(ctx, KeyCurrentUser, []byte(`{"name":"ann"}`)); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	b, err = OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	v, ok, err := b.Get(ctx, KeyCurrentUser)
	if err != nil || !ok || string(v) != `{"name":"ann"}` {
		t.Errorf("after reopen Get = %q, %v, %v", v, ok, err)
	}
}

func TestScoped(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	a := NewScoped(inner, "chat:1")
	b := NewScoped(inner, "chat:2")
	exerciseStore(t, a)

	_ = a.Set(ctx, KeyCart, []byte("a"))
	_ = b.Set(ctx, KeyCart, []byte("b"))
	va, _, _ := a.Get(ctx, KeyCart)
	vb, _, _ := b.Get(ctx, KeyCart)
	if string(va) != "a" || string(vb) != "b" {
		t.Errorf("scopes leak: a=%q b=%q", va, vb)
	}
	if raw, ok, _ := inner.Get(ctx, "chat:1:cart"); !ok || string(raw) != "a" {
		t.Errorf("inner key = %q, %v; want prefixed key", raw, ok)
	}
}

func TestPostgres_NilPool(t *testing.T) {
	p := NewPostgres(nil)
	if _, _, err := p.Get(context.Background(), KeyCart); err != ErrClosed {
		t.Errorf("Get with nil pool = %v, want ErrClosed", err)
	}
}

// Integration test (requires DB with migrations applied). Skip if db.Pool is nil or -short.
func TestPostgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if db.Pool == nil {
		t.Skip("skipping postgres integration test: no DB pool")
	}
	s := NewScoped(NewPostgres(db.Pool), "test:storage")
	defer func() {
		_ = s.Delete(context.Background(), KeyCart)
	}()
	exerciseStore(t, s)
}
