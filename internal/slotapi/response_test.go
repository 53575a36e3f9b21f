package slotapi

import (
	"strconv"
	"testing"
)

func TestExtractResult(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "double-encoded cart", body: `{"result":"{\"Latte\":{\"price\":4.5,\"quantity\":1}}"}`, expected: `{"Latte":{"price":4.5,"quantity":1}}`},
		{name: "quoted double-encoded object", body: `{"result":"\"{\\\"count\\\":1}\""}`, expected: `{"count":1}`},
		{name: "direct object", body: `{"result":{"keys":["a","b"]}}`, expected: `{"keys":["a","b"]}`},
		{name: "plain string", body: `{"result":"hello"}`, expected: `"hello"`},
		{name: "bare encoded string", body: strconv.Quote(`{"a":1}`), expected: `{"a":1}`},
		{name: "null passthrough", body: `null`, expected: `null`},
		{name: "empty body", body: ``, expected: ``},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractResult([]byte(tc.body))
			if err != nil {
				t.Fatalf("ExtractResult: %v", err)
			}
			if string(got) != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestDecodeResult(t *testing.T) {
	var payload struct {
		Keys []string `json:"keys"`
	}
	if err := DecodeResult([]byte(`{"result":{"keys":["cart"]}}`), &payload); err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if len(payload.Keys) != 1 || payload.Keys[0] != "cart" {
		t.Fatalf("unexpected keys %v", payload.Keys)
	}

	var nothing *struct{}
	if err := DecodeResult(nil, &nothing); err != nil {
		t.Fatalf("DecodeResult empty: %v", err)
	}
	if nothing != nil {
		t.Fatalf("expected nil for empty body")
	}
}

func TestIsNull(t *testing.T) {
	for _, raw := range []string{"", " null ", "null"} {
		if !IsNull([]byte(raw)) {
			t.Fatalf("expected %q to be null", raw)
		}
	}
	if IsNull([]byte(`{}`)) {
		t.Fatalf("{} is not null")
	}
}
