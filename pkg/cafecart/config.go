package cafecart

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/eightbitcafe/cart_sdk_go/pkg/cart"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
)

const (
	ModeAuto   = "auto"
	ModeMemory = "memory"
	ModeFile   = "file"
	ModeSQLite = "sqlite"
	ModeRemote = "remote"
	ModeCookie = "cookie"
)

// Config selects and parameterises the cart slot backend.
type Config struct {
	Backend      string        `yaml:"backend" env:"CAFECART_BACKEND"`
	SlotKey      string        `yaml:"slot_key" env:"CAFECART_SLOT_KEY"`
	FileDir      string        `yaml:"file_dir" env:"CAFECART_FILE_DIR"`
	SQLitePath   string        `yaml:"sqlite_path" env:"CAFECART_SQLITE_PATH"`
	RemoteURL    string        `yaml:"remote_url" env:"CAFECART_REMOTE_URL"`
	MemorySeed   string        `yaml:"memory_seed" env:"CAFECART_MEMORY_SEED"`
	CookieMaxAge time.Duration `yaml:"cookie_max_age" env:"CAFECART_COOKIE_MAX_AGE"`
	PollInterval time.Duration `yaml:"poll_interval" env:"CAFECART_POLL_INTERVAL"`
	Categories   []string      `yaml:"categories" env:"CAFECART_CATEGORIES" envSeparator:","`
	LogLevel     string        `yaml:"log_level" env:"CAFECART_LOG_LEVEL"`
	LogJSON      bool          `yaml:"log_json" env:"CAFECART_LOG_JSON"`
	Addr         string        `yaml:"addr" env:"CAFECART_ADDR"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	cats := make([]string, 0, len(cart.DefaultCategories))
	for _, c := range cart.DefaultCategories {
		cats = append(cats, string(c))
	}
	return Config{
		Backend:      ModeAuto,
		SlotKey:      cart.DefaultKey,
		CookieMaxAge: 30 * 24 * time.Hour,
		PollInterval: slot.DefaultPollInterval,
		Categories:   cats,
		LogLevel:     "info",
		Addr:         ":8080",
	}
}

// LoadConfig layers defaults, the YAML file at path (optional) and the
// environment, in that order.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("cafecart: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("cafecart: parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("cafecart: parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = ModeAuto
	}
	c.SlotKey = strings.TrimSpace(c.SlotKey)
	if c.SlotKey == "" {
		c.SlotKey = cart.DefaultKey
	}
	c.FileDir = strings.TrimSpace(c.FileDir)
	c.SQLitePath = strings.TrimSpace(c.SQLitePath)
	c.RemoteURL = strings.TrimSpace(c.RemoteURL)
	c.MemorySeed = strings.TrimSpace(c.MemorySeed)
	if c.PollInterval <= 0 {
		c.PollInterval = slot.DefaultPollInterval
	}
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case ModeAuto, ModeMemory, ModeCookie:
	case ModeFile:
		if c.FileDir == "" {
			return fmt.Errorf("cafecart: %s backend requires CAFECART_FILE_DIR", ModeFile)
		}
	case ModeSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("cafecart: %s backend requires CAFECART_SQLITE_PATH", ModeSQLite)
		}
	case ModeRemote:
		if c.RemoteURL == "" {
			return fmt.Errorf("cafecart: %s backend requires CAFECART_REMOTE_URL", ModeRemote)
		}
	default:
		return fmt.Errorf("cafecart: unsupported CAFECART_BACKEND value %q", c.Backend)
	}
	return nil
}

// ResolveMode maps auto to the most capable backend whose location is set.
func (c Config) ResolveMode() string {
	if c.Backend != ModeAuto {
		return c.Backend
	}
	switch {
	case c.RemoteURL != "":
		return ModeRemote
	case c.SQLitePath != "":
		return ModeSQLite
	case c.FileDir != "":
		return ModeFile
	default:
		return ModeMemory
	}
}

// CategorySet returns the configured known categories, normalized.
func (c Config) CategorySet() []cart.Category {
	var out []cart.Category
	seen := make(map[cart.Category]struct{})
	for _, raw := range c.Categories {
		cat := cart.ParseCategory(raw)
		if cat == "" {
			continue
		}
		if _, dup := seen[cat]; dup {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	return out
}
