package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eightbitcafe/cart_sdk_go/internal/live"
	"github.com/eightbitcafe/cart_sdk_go/internal/server"
	"github.com/eightbitcafe/cart_sdk_go/pkg/cafecart"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cart HTTP API",
		Long: `Serves the cart over HTTP:

  GET    /cart                          current cart
  POST   /cart/items                    {"name","price","category"}
  POST   /cart/items/{name}/quantity    {"delta"}
  DELETE /cart                          empty the cart
  POST   /cart/order                    place the order
  GET    /cart/live                     websocket stream of cart updates

With the cookie backend every browser keeps its own cart and /cart/live is
not available.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides CAFECART_ADDR)")
	return cmd
}

func serve(ctx context.Context, cfg cafecart.Config, logger *zap.Logger) error {
	rt, err := cafecart.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	var hub *live.Hub
	if rt.Shared() {
		hub = live.NewHub(logger.Named("live"))
		cancel := rt.Store.Subscribe(hub.Publish)
		defer cancel()
		hub.Publish(rt.Store.View())
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(rt, hub, logger.Named("http")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("cafecart listening", zap.String("addr", cfg.Addr), zap.String("mode", rt.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if hub != nil {
			hub.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
