package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrEmptyCart is returned by PlaceOrder when there is nothing to order. It
// is a business rule, not a failure of the store; show EmptyCartMessage.
var ErrEmptyCart = errors.New("cart: cart is empty")

// EmptyCartMessage is the visitor-facing text for ErrEmptyCart.
const EmptyCartMessage = "Your cart is empty. Add items from the menu!"

// Order summarizes a placed order.
type Order struct {
	ID            string          `json:"id"`
	Lines         []Line          `json:"lines"`
	TotalQuantity int             `json:"total_quantity"`
	Total         decimal.Decimal `json:"total"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// PlaceOrder snapshots the cart into an Order and clears the cart. No payment
// or fulfilment happens; the order only exists in the returned value.
func (s *Store) PlaceOrder(ctx context.Context) (*Order, error) {
	s.mu.Lock()
	if !s.unsaved {
		if c, raw, ok := s.load(ctx); ok {
			s.cart, s.lastRaw = c, raw
		}
	}
	if len(s.cart) == 0 {
		s.mu.Unlock()
		return nil, ErrEmptyCart
	}
	view := s.viewLocked()
	order := &Order{
		ID:            uuid.NewString(),
		Lines:         view.Lines,
		TotalQuantity: view.TotalQuantity,
		Total:         view.TotalPrice,
		PlacedAt:      time.Now().UTC(),
	}
	s.cart = Cart{}
	s.persistLocked(ctx)
	cleared, seq := s.stampLocked()
	s.mu.Unlock()

	s.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.Int("items", order.TotalQuantity),
		zap.String("total", order.Total.StringFixed(2)))
	s.publish(cleared, seq)
	return order, nil
}
