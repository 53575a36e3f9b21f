package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eightbitcafe/cart_sdk_go/pkg/cart"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot/memory"
)

func TestViewLinesSortedAndFormatted(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, memory.New())

	s.AddItem(ctx, "Muffin", price("3"), cart.CategoryPastries)
	s.AddItem(ctx, "Latte", price("4.5"), cart.CategoryCoffee)
	s.AddItem(ctx, "Latte", price("4.5"), cart.CategoryCoffee)

	v := s.View()
	require.Len(t, v.Lines, 2)
	assert.Equal(t, "Latte", v.Lines[0].Name)
	assert.Equal(t, "Latte - 2 x 4.50 $ = 9.00 $", v.Lines[0].String())
	assert.Equal(t, "Muffin - 1 x 3.00 $ = 3.00 $", v.Lines[1].String())
	assert.Equal(t, "= 12.00 $", cart.FormatTotal(v.TotalPrice))
	assert.Equal(t, "= 3 items", cart.FormatCount(v.TotalQuantity))
	assert.Equal(t, 2, v.ByCategory[cart.CategoryCoffee])
	assert.False(t, v.Empty())
}

func TestEmptyView(t *testing.T) {
	v := cart.BuildView(cart.Cart{}, cart.DefaultCategories)
	assert.True(t, v.Empty())
	assert.Equal(t, "= 0.00 $", cart.FormatTotal(v.TotalPrice))
	assert.Equal(t, map[cart.Category]int{
		cart.CategoryCoffee:    0,
		cart.CategoryNonCoffee: 0,
		cart.CategoryPastries:  0,
	}, v.ByCategory)
}
