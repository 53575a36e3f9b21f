package cookie_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eightbitcafe/cart_sdk_go/pkg/cart"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot/cookie"
)

func TestJarRoundTripAcrossRequests(t *testing.T) {
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	jar := cookie.New(req, rec, cookie.DefaultOptions)

	raw, err := jar.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Nil(t, raw)

	require.NoError(t, jar.Set(ctx, "cart", []byte(`{"Latte":{"price":4.5,"quantity":1}}`)))
	raw, err = jar.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `{"Latte":{"price":4.5,"quantity":1}}`, string(raw), "writes are visible within the request")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "cart", cookies[0].Name)
	assert.Equal(t, int((30 * 24 * time.Hour).Seconds()), cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	raw, err = cookie.New(next, httptest.NewRecorder(), cookie.DefaultOptions).Get(ctx, "cart")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Latte":{"price":4.5,"quantity":1}}`, string(raw))
}

func TestJarQuotaExceeded(t *testing.T) {
	rec := httptest.NewRecorder()
	jar := cookie.New(httptest.NewRequest(http.MethodGet, "/", nil), rec, cookie.DefaultOptions)

	err := jar.Set(context.Background(), "cart", []byte(strings.Repeat("x", cookie.MaxCookieSize)))
	require.ErrorIs(t, err, slot.ErrQuotaExceeded)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestJarCorruptCookieReadsRaw(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "cart", Value: "%%%"})
	raw, err := cookie.New(req, httptest.NewRecorder(), cookie.DefaultOptions).Get(context.Background(), "cart")
	require.NoError(t, err)
	assert.Equal(t, "%%%", string(raw))

	s := cart.New(cookie.New(req, httptest.NewRecorder(), cookie.DefaultOptions), cart.WithKey("cart"))
	s.Init(context.Background())
	assert.Empty(t, s.Snapshot())
}

func TestCartStoreOverCookie(t *testing.T) {
	ctx := context.Background()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cart/items", nil)
	s := cart.New(cookie.New(req, rec, cookie.DefaultOptions))
	s.Init(ctx)
	s.AddItem(ctx, "Latte", decimal.RequireFromString("4.5"), cart.CategoryCoffee)
	s.AddItem(ctx, "Latte", decimal.RequireFromString("4.5"), cart.CategoryCoffee)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	last := cookies[len(cookies)-1]
	data, err := base64.RawURLEncoding.DecodeString(last.Value)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Latte":{"price":4.5,"quantity":2,"category":"coffee"}}`, string(data))
}
