package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Line is one rendered cart row.
type Line struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Category  Category        `json:"category,omitempty"`
}

func (l Line) String() string {
	return fmt.Sprintf("%s - %d x %s $ = %s $", l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.Total.StringFixed(2))
}

// View is the derived state every display renders from.
type View struct {
	Lines         []Line           `json:"lines"`
	TotalQuantity int              `json:"total_quantity"`
	TotalPrice    decimal.Decimal  `json:"total_price"`
	ByCategory    map[Category]int `json:"by_category"`
}

// Empty reports whether the view has no lines.
func (v View) Empty() bool {
	return len(v.Lines) == 0
}

// FormatCount renders a counter badge, e.g. "= 3 items".
func FormatCount(n int) string {
	return fmt.Sprintf("= %d items", n)
}

// FormatTotal renders the grand total, e.g. "= 9.00 $".
func FormatTotal(d decimal.Decimal) string {
	return fmt.Sprintf("= %s $", d.StringFixed(2))
}

// BuildView derives a View from c. Lines are sorted by name.
func BuildView(c Cart, known []Category) View {
	names := c.Names()
	lines := make([]Line, 0, len(names))
	for _, name := range names {
		e := c[name]
		lines = append(lines, Line{
			Name:      name,
			Quantity:  e.Quantity,
			UnitPrice: e.UnitPrice,
			Total:     e.LineTotal(),
			Category:  e.Category,
		})
	}
	return View{
		Lines:         lines,
		TotalQuantity: c.TotalQuantity(),
		TotalPrice:    c.TotalPrice(),
		ByCategory:    c.TotalsByCategory(known),
	}
}

// View returns the current derived view.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Store) viewLocked() View {
	return BuildView(s.cart, s.categories)
}

// stampLocked builds the current view and numbers it for publish.
func (s *Store) stampLocked() (View, uint64) {
	s.seq++
	return s.viewLocked(), s.seq
}

// Subscribe registers fn to receive the view after every change. Views are
// delivered one at a time in commit order; a view overtaken by a newer one
// is skipped. fn must not call back into mutations.
func (s *Store) Subscribe(fn func(View)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(v View, seq uint64) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if seq <= s.published {
		return
	}
	s.published = seq

	s.subMu.Lock()
	fns := make([]func(View), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
