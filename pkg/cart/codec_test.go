package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFormat(t *testing.T) {
	raw, err := Encode(Cart{
		"Latte":  {Name: "Latte", UnitPrice: decimal.RequireFromString("4.50"), Quantity: 2, Category: CategoryCoffee},
		"Cookie": {Name: "Cookie", UnitPrice: decimal.RequireFromString("1"), Quantity: 1},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Latte": {"price": 4.5, "quantity": 2, "category": "coffee"},
		"Cookie": {"price": 1, "quantity": 1}
	}`, string(raw))
}

func TestEncodeKeepsHTMLCharacters(t *testing.T) {
	raw, err := Encode(Cart{"Tea & Cake": {Name: "Tea & Cake", UnitPrice: decimal.NewFromInt(3), Quantity: 1}})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Tea & Cake")
}

func TestDecodeEmptyValues(t *testing.T) {
	for _, raw := range []string{"", "   ", "null", "{}"} {
		c, skipped, err := Decode([]byte(raw))
		require.NoError(t, err, raw)
		assert.Empty(t, c, raw)
		assert.Empty(t, skipped, raw)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{"{", "[]", `"cart"`, `{"Latte": 3}`} {
		_, _, err := Decode([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestDecodeLegacyQtyField(t *testing.T) {
	c, _, err := Decode([]byte(`{"Latte":{"price":4.5,"qty":3,"category":"menu-coffee"}}`))
	require.NoError(t, err)
	require.Contains(t, c, "Latte")
	assert.Equal(t, 3, c["Latte"].Quantity)
	assert.Equal(t, CategoryCoffee, c["Latte"].Category)
}

func TestDecodeDropsInvalidEntries(t *testing.T) {
	c, skipped, err := Decode([]byte(`{
		"Good": {"price": 2, "quantity": 1},
		"Zero": {"price": 2, "quantity": 0},
		"Negative": {"price": -1, "quantity": 1},
		"NoPrice": {"quantity": 1}
	}`))
	require.NoError(t, err)
	assert.Len(t, c, 1)
	assert.ElementsMatch(t, []string{"Zero", "Negative", "NoPrice"}, skipped)
}

func TestDecodeKeepsPrecision(t *testing.T) {
	c, _, err := Decode([]byte(`{"Beans":{"price":12345678.99,"quantity":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "12345678.99", c["Beans"].UnitPrice.String())
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryCoffee, ParseCategory(" Coffee "))
	assert.Equal(t, CategoryNonCoffee, ParseCategory("menu-non-coffee"))
	assert.Equal(t, Category(""), ParseCategory(""))
}
