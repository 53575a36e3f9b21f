// Package devseed loads seed files for the in-memory slot backend. Seeds are
// YAML or JSON documents listing slots to pre-populate:
//
//	- key: 8bit_cafe_cart_v1
//	  ttl_seconds: 3600
//	  value:
//	    Latte: {price: 4.5, quantity: 2, category: coffee}
package devseed

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one seeded slot. Value holds the slot content re-encoded as JSON.
type Entry struct {
	Key        string
	Value      json.RawMessage
	TTLSeconds *int
}

type rawEntry struct {
	Key        string `yaml:"key"`
	Value      any    `yaml:"value"`
	TTLSeconds *int   `yaml:"ttl_seconds"`
}

// Load reads and parses the seed file at path.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes seed entries from YAML or JSON bytes.
func Parse(data []byte) ([]Entry, error) {
	var raw []rawEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("devseed: parse: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		if strings.TrimSpace(r.Key) == "" {
			return nil, fmt.Errorf("devseed: entry %d missing key", i)
		}
		value, err := json.Marshal(r.Value)
		if err != nil {
			return nil, fmt.Errorf("devseed: entry %q value: %w", r.Key, err)
		}
		entries = append(entries, Entry{Key: r.Key, Value: value, TTLSeconds: r.TTLSeconds})
	}
	return entries, nil
}
