// Package memory implements an in-process slot backend with TTL and ETag
// semantics. Several cart stores sharing one Memory behave like browser tabs
// sharing one origin's storage: every write is pushed to the other watchers.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eightbitcafe/cart_sdk_go/internal/devseed"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
)

var (
	// ErrNotFound is returned by Delete for a missing key.
	ErrNotFound = errors.New("memory slot: not found")
	// ErrPreconditionFailed signals an IfAbsent or IfETagMatch mismatch.
	ErrPreconditionFailed = errors.New("memory slot: precondition failed")
)

// Item is a stored value with its metadata.
type Item struct {
	Key       string
	Value     []byte
	ETag      string
	ExpiresAt *time.Time
}

// PutOptions controls conditional and expiring writes.
type PutOptions struct {
	TTLSeconds  *int
	IfETagMatch string
	IfAbsent    bool
}

type entry struct {
	data      []byte
	etag      string
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-memory slot store.
type Memory struct {
	mu       sync.RWMutex
	items    map[string]*entry
	now      func() time.Time
	ttl      time.Duration
	watchers map[string]map[int]chan struct{}
	nextID   int
}

// Option configures the store.
type Option func(*Memory)

// WithClock overrides the clock used for TTL bookkeeping (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Memory) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithTTL expires every plain Set after d, like a cookie's Max-Age.
func WithTTL(d time.Duration) Option {
	return func(m *Memory) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Memory {
	m := &Memory{
		items:    make(map[string]*entry),
		watchers: make(map[string]map[int]chan struct{}),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed loads initial slots, typically decoded via devseed.Load.
func (m *Memory) Seed(entries []devseed.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, e := range entries {
		if strings.TrimSpace(e.Key) == "" {
			return fmt.Errorf("memory slot: seed entry missing key")
		}
		data := append([]byte(nil), e.Value...)
		if len(data) == 0 {
			data = []byte("null")
		}
		var expires time.Time
		if e.TTLSeconds != nil && *e.TTLSeconds > 0 {
			expires = now.Add(time.Duration(*e.TTLSeconds) * time.Second)
		}
		m.items[e.Key] = &entry{data: data, etag: uuid.NewString(), expiresAt: expires}
	}
	return nil
}

// Get implements slot.Backend.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	item, err := m.Lookup(ctx, key)
	if err != nil || item == nil {
		return nil, err
	}
	return item.Value, nil
}

// Set implements slot.Backend.
func (m *Memory) Set(ctx context.Context, key string, raw []byte) error {
	_, err := m.Put(ctx, key, raw, nil)
	return err
}

// Lookup returns the stored item, or nil when the key is missing or expired.
func (m *Memory) Lookup(ctx context.Context, key string) (*Item, error) {
	if strings.TrimSpace(key) == "" {
		return nil, slot.ErrKeyRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	if ent.expired(m.now()) {
		delete(m.items, key)
		return nil, nil
	}
	return toItem(key, ent), nil
}

// Put writes raw under key honouring opts and notifies watchers of key.
func (m *Memory) Put(ctx context.Context, key string, raw []byte, opts *PutOptions) (*Item, error) {
	if strings.TrimSpace(key) == "" {
		return nil, slot.ErrKeyRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	now := m.now()
	ent, exists := m.items[key]
	if exists && ent.expired(now) {
		delete(m.items, key)
		exists = false
	}

	if opts != nil {
		if opts.IfAbsent && exists {
			m.mu.Unlock()
			return nil, ErrPreconditionFailed
		}
		if opts.IfETagMatch != "" && (!exists || ent.etag != opts.IfETagMatch) {
			m.mu.Unlock()
			return nil, ErrPreconditionFailed
		}
	}

	newEntry := &entry{
		data: append([]byte(nil), raw...),
		etag: uuid.NewString(),
	}
	switch {
	case opts != nil && opts.TTLSeconds != nil && *opts.TTLSeconds > 0:
		newEntry.expiresAt = now.Add(time.Duration(*opts.TTLSeconds) * time.Second)
	case m.ttl > 0:
		newEntry.expiresAt = now.Add(m.ttl)
	}
	m.items[key] = newEntry
	item := toItem(key, newEntry)
	m.mu.Unlock()

	m.notify(key)
	return item, nil
}

// Delete removes key.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return slot.ErrKeyRequired
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.items[key]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.items, key)
	m.mu.Unlock()

	m.notify(key)
	return nil
}

// Keys lists the live keys in ascending order.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	keys := make([]string, 0, len(m.items))
	for key, ent := range m.items {
		if ent.expired(now) {
			delete(m.items, key)
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Watch implements slot.Watcher. Notifications are coalesced and delivered
// on a dedicated goroutine, so fn may call back into the store.
func (m *Memory) Watch(ctx context.Context, key string, fn func()) (func(), error) {
	if strings.TrimSpace(key) == "" {
		return nil, slot.ErrKeyRequired
	}
	sig := make(chan struct{}, 1)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[int]chan struct{})
	}
	m.watchers[key][id] = sig
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers[key], id)
			if len(m.watchers[key]) == 0 {
				delete(m.watchers, key)
			}
			m.mu.Unlock()
			cancel()
			<-done
		})
	}, nil
}

func (m *Memory) notify(key string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sig := range m.watchers[key] {
		select {
		case sig <- struct{}{}:
		default:
		}
	}
}

func toItem(key string, ent *entry) *Item {
	var expiresPtr *time.Time
	if !ent.expiresAt.IsZero() {
		expires := ent.expiresAt
		expiresPtr = &expires
	}
	return &Item{
		Key:       key,
		Value:     append([]byte(nil), ent.data...),
		ETag:      ent.etag,
		ExpiresAt: expiresPtr,
	}
}

var (
	_ slot.Backend = (*Memory)(nil)
	_ slot.Watcher = (*Memory)(nil)
)
