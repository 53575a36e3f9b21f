package cafecart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/eightbitcafe/cart_sdk_go/internal/devseed"
	"github.com/eightbitcafe/cart_sdk_go/internal/httpx"
	"github.com/eightbitcafe/cart_sdk_go/pkg/cart"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot/cookie"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot/file"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot/memory"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot/remote"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot/sqlite"
)

// Runtime is an initialised cart store and the backend behind it.
type Runtime struct {
	// Mode is the resolved backend name.
	Mode   string
	Config Config
	// Backend is nil in cookie mode, where every request carries its own slot.
	Backend slot.Backend
	// Store is the shared store; nil in cookie mode, use StoreFor.
	Store *cart.Store

	log       *zap.Logger
	stopWatch func()
	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// Open builds the backend selected by cfg, loads the cart and starts watching
// for writes made by other processes. Watching stops on Close or when ctx is
// done.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt := &Runtime{Mode: cfg.ResolveMode(), Config: cfg, log: log}

	if rt.Mode == ModeCookie {
		log.Info("cart runtime ready", zap.String("mode", rt.Mode), zap.String("key", cfg.SlotKey))
		return rt, nil
	}

	backend, err := rt.openBackend()
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Backend = backend
	rt.Store = cart.New(backend, rt.storeOptions()...)
	rt.Store.Init(ctx)

	stop, err := rt.Store.Watch(ctx)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("cafecart: watch %s slot: %w", rt.Mode, err)
	}
	rt.stopWatch = stop

	log.Info("cart runtime ready",
		zap.String("mode", rt.Mode),
		zap.String("key", cfg.SlotKey),
		zap.Int("items", rt.Store.TotalQuantity()),
	)
	return rt, nil
}

func (rt *Runtime) openBackend() (slot.Backend, error) {
	cfg := rt.Config
	switch rt.Mode {
	case ModeMemory:
		m := memory.New()
		if cfg.MemorySeed != "" {
			entries, err := devseed.Load(cfg.MemorySeed)
			if err != nil {
				return nil, fmt.Errorf("cafecart: load memory seed: %w", err)
			}
			if err := m.Seed(entries); err != nil {
				return nil, fmt.Errorf("cafecart: apply memory seed: %w", err)
			}
		}
		return m, nil
	case ModeFile:
		d, err := file.Open(cfg.FileDir)
		if err != nil {
			return nil, fmt.Errorf("cafecart: %w", err)
		}
		return d, nil
	case ModeSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, sqlite.WithPollInterval(cfg.PollInterval))
		if err != nil {
			return nil, fmt.Errorf("cafecart: open sqlite slot: %w", err)
		}
		rt.closers = append(rt.closers, s.Close)
		return s, nil
	case ModeRemote:
		c, err := remote.New(cfg.RemoteURL,
			[]httpx.Option{httpx.WithLogger(rt.log.Named("remote"))},
			remote.WithPollInterval(cfg.PollInterval),
		)
		if err != nil {
			return nil, fmt.Errorf("cafecart: init remote slot: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("cafecart: unsupported backend %q", rt.Mode)
	}
}

func (rt *Runtime) storeOptions() []cart.Option {
	log := rt.log.Named("cart")
	opts := []cart.Option{
		cart.WithKey(rt.Config.SlotKey),
		cart.WithLogger(log),
	}
	if cats := rt.Config.CategorySet(); len(cats) > 0 {
		opts = append(opts, cart.WithCategories(cats...))
	}
	return opts
}

// Shared reports whether one store serves every caller. It is false in cookie
// mode.
func (rt *Runtime) Shared() bool {
	return rt.Store != nil
}

// StoreFor returns the store serving an HTTP request. In cookie mode a fresh
// store is bound to the request's cookie and loaded; otherwise the shared
// store is returned.
func (rt *Runtime) StoreFor(w http.ResponseWriter, r *http.Request) *cart.Store {
	if rt.Store != nil {
		return rt.Store
	}
	opts := cookie.DefaultOptions
	opts.MaxAge = rt.Config.CookieMaxAge
	opts.Secure = r.TLS != nil
	s := cart.New(cookie.New(r, w, opts), rt.storeOptions()...)
	s.Init(r.Context())
	return s
}

// Close stops the watcher and releases backend resources.
func (rt *Runtime) Close() error {
	rt.closeOnce.Do(func() {
		if rt.stopWatch != nil {
			rt.stopWatch()
		}
		var errs []error
		for _, c := range rt.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		rt.closeErr = errors.Join(errs...)
	})
	return rt.closeErr
}
