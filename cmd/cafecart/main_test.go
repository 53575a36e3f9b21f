package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eightbitcafe/cart_sdk_go/pkg/cafecart"
	"github.com/eightbitcafe/cart_sdk_go/pkg/cart"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsShareFileSlot(t *testing.T) {
	t.Setenv("CAFECART_BACKEND", "file")
	t.Setenv("CAFECART_FILE_DIR", filepath.Join(t.TempDir(), "slots"))
	t.Setenv("CAFECART_LOG_LEVEL", "error")

	out, err := run(t, "show")
	require.NoError(t, err)
	assert.Equal(t, cart.EmptyCartMessage+"\n", out)

	_, err = run(t, "add", "Latte", "4.50", "--category", "coffee")
	require.NoError(t, err)
	_, err = run(t, "add", "Croissant", "3.25", "--category", "menu-pastries")
	require.NoError(t, err)
	out, err = run(t, "qty", "Latte", "2")
	require.NoError(t, err)
	assert.Equal(t, `Croissant - 1 x 3.25 $ = 3.25 $
Latte - 3 x 4.50 $ = 13.50 $
= 4 items
= 16.75 $
coffee = 3 items
non-coffee = 0 items
pastries = 1 items
`, out)

	out, err = run(t, "qty", "--", "Croissant", "-1")
	require.NoError(t, err)
	assert.NotContains(t, out, "Croissant")

	out, err = run(t, "order")
	require.NoError(t, err)
	assert.Contains(t, out, "Latte - 3 x 4.50 $ = 13.50 $")
	assert.Contains(t, out, "= 13.50 $")

	out, err = run(t, "order")
	require.NoError(t, err)
	assert.Equal(t, cart.EmptyCartMessage+"\n", out)
}

func TestCommandArgumentErrors(t *testing.T) {
	t.Setenv("CAFECART_BACKEND", "memory")
	t.Setenv("CAFECART_LOG_LEVEL", "error")

	_, err := run(t, "add", "Latte", "cheap")
	require.Error(t, err)
	_, err = run(t, "add", "--", "Latte", "-1")
	require.Error(t, err)
	_, err = run(t, "qty", "Latte", "many")
	require.Error(t, err)
	_, err = run(t, "--backend", "redis", "show")
	require.Error(t, err)
	_, err = run(t, "--backend", "cookie", "show")
	require.Error(t, err, "cookie carts only exist inside HTTP requests")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := cafecart.DefaultConfig()
	cfg.Backend = cafecart.ModeMemory
	cfg.Addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, zap.NewNop())
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/up")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
