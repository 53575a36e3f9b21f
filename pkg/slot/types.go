package slot

import (
	"context"
	"errors"
)

// Backend reads and writes raw slot values. Get returns nil, nil when the slot
// has never been written or has expired.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, raw []byte) error
}

// Watcher is implemented by backends that can report writes made by another
// process or store instance. fn is invoked after the slot changed; it may be
// called for the caller's own writes too. The returned stop function blocks
// until the watcher goroutine has exited.
type Watcher interface {
	Watch(ctx context.Context, key string, fn func()) (stop func(), err error)
}

var (
	// ErrUnavailable reports that the underlying storage cannot be reached.
	ErrUnavailable = errors.New("slot: storage unavailable")
	// ErrQuotaExceeded reports that the value does not fit in the storage.
	ErrQuotaExceeded = errors.New("slot: quota exceeded")
	// ErrKeyRequired is returned when a blank slot key is used.
	ErrKeyRequired = errors.New("slot: key is required")
)
