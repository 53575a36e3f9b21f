package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// wireEntry is the persisted shape of one entry. Qty is the field name older
// slots were written with; it is read when Quantity is absent.
type wireEntry struct {
	Price    json.Number `json:"price"`
	Quantity *int        `json:"quantity,omitempty"`
	Qty      *int        `json:"qty,omitempty"`
	Category string      `json:"category,omitempty"`
}

// Encode serializes the cart into the slot format.
func Encode(c Cart) ([]byte, error) {
	wire := make(map[string]wireEntry, len(c))
	for name, e := range c {
		qty := e.Quantity
		wire[name] = wireEntry{
			Price:    json.Number(e.UnitPrice.String()),
			Quantity: &qty,
			Category: string(e.Category),
		}
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wire); err != nil {
		return nil, fmt.Errorf("cart: encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a slot value. An empty or null value decodes to an empty
// cart. Entries with an unparsable price, and those Cart.Sanitize rejects,
// are dropped and reported through the skipped names.
func Decode(raw []byte) (Cart, []string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Cart{}, nil, nil
	}

	var wire map[string]wireEntry
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return nil, nil, fmt.Errorf("cart: decode: %w", err)
	}

	c := make(Cart, len(wire))
	var skipped []string
	for name, w := range wire {
		qty := 0
		switch {
		case w.Quantity != nil:
			qty = *w.Quantity
		case w.Qty != nil:
			qty = *w.Qty
		}
		price, err := decimal.NewFromString(w.Price.String())
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		c[name] = Entry{UnitPrice: price, Quantity: qty, Category: Category(w.Category)}
	}
	c, dropped := c.Sanitize()
	skipped = append(skipped, dropped...)
	return c, skipped, nil
}
