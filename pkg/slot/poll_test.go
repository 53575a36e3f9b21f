package slot_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
)

func TestPollNotifiesOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var mu sync.Mutex
	value := []byte(`{}`)
	read := func(ctx context.Context, key string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]byte(nil), value...), nil
	}

	var calls atomic.Int32
	stop := slot.Poll(context.Background(), 5*time.Millisecond, "cart", read, func() { calls.Add(1) })
	defer stop()

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(0), calls.Load(), "unchanged value must not notify")

	mu.Lock()
	value = []byte(`{"Latte":{"price":4.5,"quantity":1}}`)
	mu.Unlock()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	stop()
	stop()
}
