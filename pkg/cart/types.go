package cart

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultKey is the slot name used when no key is configured.
const DefaultKey = "8bit_cafe_cart_v1"

// Category classifies an entry for the per-category counters.
type Category string

const (
	CategoryCoffee    Category = "coffee"
	CategoryNonCoffee Category = "non-coffee"
	CategoryPastries  Category = "pastries"
)

// DefaultCategories is the known category set of the cafe menu.
var DefaultCategories = []Category{CategoryCoffee, CategoryNonCoffee, CategoryPastries}

// ParseCategory normalizes a category label. The "menu-" prefix of the menu
// page names is accepted, so "menu-coffee" parses as CategoryCoffee.
func ParseCategory(raw string) Category {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.TrimPrefix(label, "menu-")
	return Category(label)
}

// Entry is one product line of the cart.
type Entry struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Category  Category
}

// LineTotal returns UnitPrice * Quantity.
func (e Entry) LineTotal() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Cart maps product names to entries.
type Cart map[string]Entry

// Names returns the entry names in ascending order.
func (c Cart) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the cart.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for name, e := range c {
		out[name] = e
	}
	return out
}

// Sanitize returns a copy holding only entries a store may keep: a non-blank
// name, a quantity of at least one and a non-negative price. Kept entries get
// their map key as Name and a normalized category. The names of dropped
// entries are returned in ascending order.
func (c Cart) Sanitize() (Cart, []string) {
	out := make(Cart, len(c))
	var dropped []string
	for name, e := range c {
		if strings.TrimSpace(name) == "" || e.Quantity <= 0 || e.UnitPrice.IsNegative() {
			dropped = append(dropped, name)
			continue
		}
		e.Name = name
		e.Category = ParseCategory(string(e.Category))
		out[name] = e
	}
	sort.Strings(dropped)
	return out, dropped
}

// TotalQuantity sums the quantities of all entries.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, e := range c {
		total += e.Quantity
	}
	return total
}

// TotalPrice sums UnitPrice * Quantity over all entries.
func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c {
		total = total.Add(e.LineTotal())
	}
	return total
}

// TotalsByCategory sums quantities per known category. Every known category
// is present in the result; entries outside the known set are skipped.
func (c Cart) TotalsByCategory(known []Category) map[Category]int {
	totals := make(map[Category]int, len(known))
	for _, cat := range known {
		totals[cat] = 0
	}
	for _, e := range c {
		if _, ok := totals[e.Category]; ok && e.Category != "" {
			totals[e.Category] += e.Quantity
		}
	}
	return totals
}
