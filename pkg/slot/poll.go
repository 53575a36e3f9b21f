package slot

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is used by polling watchers when no interval is given.
const DefaultPollInterval = 2 * time.Second

// Poll reads the slot every interval and invokes fn whenever the value differs
// from the previous read. Read errors are skipped; the next tick retries.
func Poll(ctx context.Context, interval time.Duration, key string, read func(ctx context.Context, key string) ([]byte, error), fn func()) (stop func()) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(ctx)

	last, _ := read(ctx, key)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			current, err := read(ctx, key)
			if err != nil {
				continue
			}
			if !bytes.Equal(current, last) {
				last = current
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}
