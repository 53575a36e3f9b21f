package cart

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
)

// ErrorHandler receives persistence failures the store swallows. op is
// "load" or "save".
type ErrorHandler func(op string, err error)

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the slot name.
func WithKey(key string) Option {
	return func(s *Store) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCategories replaces the known category set used by TotalsByCategory.
func WithCategories(cats ...Category) Option {
	return func(s *Store) {
		if len(cats) > 0 {
			s.categories = append([]Category(nil), cats...)
		}
	}
}

// WithErrorHandler installs a diagnostic hook for swallowed persistence errors.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Store) {
		s.onError = h
	}
}

// Store is the cart state manager bound to one persisted slot.
type Store struct {
	backend    slot.Backend
	key        string
	log        *zap.Logger
	categories []Category
	onError    ErrorHandler

	mu      sync.Mutex
	cart    Cart
	lastRaw []byte
	// unsaved is set while the latest mutation only exists in memory.
	unsaved bool

	// seq numbers views in the order their state was committed.
	seq uint64

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(View)

	pubMu     sync.Mutex
	published uint64
}

// New returns a Store persisting into backend. Call Init before use.
func New(backend slot.Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		key:        DefaultKey,
		log:        zap.NewNop(),
		categories: append([]Category(nil), DefaultCategories...),
		cart:       Cart{},
		subs:       make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the slot name.
func (s *Store) Key() string {
	return s.key
}

// Categories returns the known category set.
func (s *Store) Categories() []Category {
	return append([]Category(nil), s.categories...)
}

// Init loads the persisted cart and publishes the initial view.
func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	s.cart, s.lastRaw, _ = s.load(ctx)
	s.unsaved = false
	view, seq := s.stampLocked()
	s.mu.Unlock()
	s.publish(view, seq)
}

// Load reads the persisted cart. A missing, unreadable or malformed slot
// yields an empty cart.
func (s *Store) Load(ctx context.Context) Cart {
	c, _, _ := s.load(ctx)
	return c
}

// load reports ok=false only when the backend itself could not be read; a
// malformed value is a successful read of an empty cart.
func (s *Store) load(ctx context.Context) (c Cart, raw []byte, ok bool) {
	if s.backend == nil {
		return Cart{}, nil, false
	}
	raw, err := s.backend.Get(ctx, s.key)
	if err != nil {
		s.report("load", err)
		return Cart{}, nil, false
	}
	c, skipped, err := Decode(raw)
	if err != nil {
		s.log.Warn("discarding malformed cart slot", zap.String("key", s.key), zap.Error(err))
		return Cart{}, raw, true
	}
	if len(skipped) > 0 {
		s.log.Warn("dropped invalid cart entries", zap.String("key", s.key), zap.Strings("names", skipped))
	}
	return c, raw, true
}

// Save persists c as the current cart and refreshes the views. Entries that
// could not have been built through AddItem (blank name, quantity below one,
// negative price) are dropped first.
func (s *Store) Save(ctx context.Context, c Cart) {
	clean, dropped := c.Sanitize()
	if len(dropped) > 0 {
		s.log.Warn("dropped invalid cart entries", zap.String("key", s.key), zap.Strings("names", dropped))
	}
	s.mu.Lock()
	s.cart = clean
	s.persistLocked(ctx)
	view, seq := s.stampLocked()
	s.mu.Unlock()
	s.publish(view, seq)
}

// AddItem adds one unit of name. A new entry starts at quantity 1 with the
// given price and category; an existing entry keeps its price and category.
// Blank names and negative prices are ignored.
func (s *Store) AddItem(ctx context.Context, name string, unitPrice decimal.Decimal, category Category) {
	if strings.TrimSpace(name) == "" {
		return
	}
	if unitPrice.IsNegative() {
		s.log.Debug("ignoring item with negative price", zap.String("name", name), zap.String("price", unitPrice.String()))
		return
	}
	s.mutate(ctx, func(c Cart) bool {
		if e, ok := c[name]; ok {
			e.Quantity++
			c[name] = e
			return true
		}
		c[name] = Entry{
			Name:      name,
			UnitPrice: unitPrice,
			Quantity:  1,
			Category:  ParseCategory(string(category)),
		}
		return true
	})
}

// ChangeQuantity adds delta to the quantity of name. The entry is removed
// when the result is zero or less. Unknown names are ignored.
func (s *Store) ChangeQuantity(ctx context.Context, name string, delta int) {
	s.mutate(ctx, func(c Cart) bool {
		e, ok := c[name]
		if !ok {
			return false
		}
		e.Quantity += delta
		if e.Quantity <= 0 {
			delete(c, name)
		} else {
			c[name] = e
		}
		return true
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, func(c Cart) bool {
		for name := range c {
			delete(c, name)
		}
		return true
	})
}

// mutate runs a read-modify-write cycle. The slot is re-read first so writes
// from other processes are not lost, unless the last write failed, in which
// case the in-memory cart is the only copy of the visitor's changes.
func (s *Store) mutate(ctx context.Context, apply func(Cart) bool) {
	s.mu.Lock()
	if !s.unsaved {
		if c, raw, ok := s.load(ctx); ok {
			s.cart, s.lastRaw = c, raw
		}
	}
	working := s.cart.Clone()
	if !apply(working) {
		s.mu.Unlock()
		return
	}
	s.cart = working
	s.persistLocked(ctx)
	view, seq := s.stampLocked()
	s.mu.Unlock()
	s.publish(view, seq)
}

func (s *Store) persistLocked(ctx context.Context) {
	raw, err := Encode(s.cart)
	if err != nil {
		s.unsaved = true
		s.report("save", err)
		return
	}
	if s.backend == nil {
		s.unsaved = true
		s.report("save", slot.ErrUnavailable)
		return
	}
	if err := s.backend.Set(ctx, s.key, raw); err != nil {
		s.unsaved = true
		s.report("save", err)
		return
	}
	s.unsaved = false
	s.lastRaw = raw
}

func (s *Store) report(op string, err error) {
	s.log.Warn("cart persistence failed", zap.String("op", op), zap.String("key", s.key), zap.Error(err))
	if s.onError != nil {
		s.onError(op, err)
	}
}

// Reload replaces the in-memory cart with the persisted one and refreshes the
// views when the slot content changed. It is the handler for writes made
// elsewhere; there is no merge.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	c, raw, ok := s.load(ctx)
	if !ok || bytes.Equal(raw, s.lastRaw) {
		s.mu.Unlock()
		return
	}
	s.cart, s.lastRaw = c, raw
	s.unsaved = false
	view, seq := s.stampLocked()
	s.mu.Unlock()
	s.publish(view, seq)
}

// Watch reloads the store whenever the backend reports an external write.
// Backends that cannot watch return a no-op stop function.
func (s *Store) Watch(ctx context.Context) (stop func(), err error) {
	w, ok := s.backend.(slot.Watcher)
	if !ok {
		return func() {}, nil
	}
	return w.Watch(ctx, s.key, func() {
		s.Reload(ctx)
	})
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// TotalQuantity returns the number of units in the cart.
func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalQuantity()
}

// TotalPrice returns the cart total.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalPrice()
}

// TotalsByCategory returns the unit count of each known category.
func (s *Store) TotalsByCategory() map[Category]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalsByCategory(s.categories)
}
