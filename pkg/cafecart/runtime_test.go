package cafecart_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/eightbitcafe/cart_sdk_go/pkg/cafecart"
	"github.com/eightbitcafe/cart_sdk_go/pkg/cart"
)

func TestOpenRemoteMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/get":
			w.Write([]byte(`{"result":"{\"Latte\":{\"price\":4.5,\"quantity\":2}}"}`))
		default:
			w.Write([]byte(`{"result":true}`))
		}
	}))
	defer srv.Close()

	cfg := cafecart.DefaultConfig()
	cfg.RemoteURL = srv.URL

	rt, err := cafecart.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rt.Close()
	if rt.Mode != cafecart.ModeRemote {
		t.Fatalf("expected remote mode, got %q", rt.Mode)
	}
	if got := rt.Store.TotalQuantity(); got != 2 {
		t.Fatalf("expected 2 items loaded from remote slot, got %d", got)
	}
}

func TestOpenMemoryAutoFallback(t *testing.T) {
	rt, err := cafecart.Open(context.Background(), cafecart.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rt.Close()
	if rt.Mode != cafecart.ModeMemory {
		t.Fatalf("expected memory mode, got %q", rt.Mode)
	}
	if !rt.Shared() {
		t.Fatalf("expected a shared store")
	}

	ctx := context.Background()
	rt.Store.AddItem(ctx, "Mocha", decimal.RequireFromString("5"), cart.CategoryCoffee)
	raw, err := rt.Backend.Get(ctx, cart.DefaultKey)
	if err != nil {
		t.Fatalf("backend Get: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected the add to be persisted")
	}
}

func TestOpenMemorySeed(t *testing.T) {
	seed := "- key: 8bit_cafe_cart_v1\n  value:\n    Latte: {price: 4.5, quantity: 2, category: menu-coffee}\n    Croissant: {price: 3.25, quantity: 1, category: pastries}\n"
	cfg := cafecart.DefaultConfig()
	cfg.Backend = cafecart.ModeMemory
	cfg.MemorySeed = writeTempFile(t, "seed.yaml", []byte(seed))

	rt, err := cafecart.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rt.Close()

	if got := rt.Store.TotalQuantity(); got != 3 {
		t.Fatalf("expected 3 seeded items, got %d", got)
	}
	if got := rt.Store.TotalPrice().StringFixed(2); got != "12.25" {
		t.Fatalf("unexpected seeded total %s", got)
	}
	if got := rt.Store.TotalsByCategory()[cart.CategoryCoffee]; got != 2 {
		t.Fatalf("expected 2 coffee items, got %d", got)
	}
}

func TestOpenFileAndSQLiteModes(t *testing.T) {
	dir := t.TempDir()
	for _, cfg := range []cafecart.Config{
		{Backend: cafecart.ModeFile, FileDir: filepath.Join(dir, "slots")},
		{Backend: cafecart.ModeSQLite, SQLitePath: filepath.Join(dir, "cart.db")},
	} {
		t.Run(cfg.Backend, func(t *testing.T) {
			ctx := context.Background()
			rt, err := cafecart.Open(ctx, cfg, nil)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			rt.Store.AddItem(ctx, "Latte", decimal.RequireFromString("4.5"), cart.CategoryCoffee)
			if err := rt.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			again, err := cafecart.Open(ctx, cfg, nil)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer again.Close()
			if got := again.Store.TotalQuantity(); got != 1 {
				t.Fatalf("expected persisted cart after reopen, got %d items", got)
			}
		})
	}
}

func TestOpenCookieModeStorePerRequest(t *testing.T) {
	cfg := cafecart.DefaultConfig()
	cfg.Backend = cafecart.ModeCookie
	rt, err := cafecart.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rt.Close()
	if rt.Shared() {
		t.Fatalf("cookie mode must not share a store")
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cart/items", nil)
	s := rt.StoreFor(rec, req)
	s.AddItem(req.Context(), "Tea", decimal.RequireFromString("2"), "non-coffee")

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected a Set-Cookie header")
	}
	next := httptest.NewRequest(http.MethodGet, "/cart", nil)
	next.AddCookie(cookies[len(cookies)-1])
	if got := rt.StoreFor(httptest.NewRecorder(), next).TotalQuantity(); got != 1 {
		t.Fatalf("expected the cart to travel in the cookie, got %d items", got)
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := cafecart.DefaultConfig()
	cfg.Backend = "remote"
	if _, err := cafecart.Open(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for remote mode without URL")
	}
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
