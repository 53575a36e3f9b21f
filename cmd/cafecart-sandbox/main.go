package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eightbitcafe/cart_sdk_go/internal/devseed"
	"github.com/eightbitcafe/cart_sdk_go/internal/logging"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot/memory"
)

const remoteURLEnv = "CAFECART_REMOTE_URL"

var (
	addr          string
	seedPath      string
	latency       time.Duration
	fail          string
	maxValueBytes int
	ttl           time.Duration
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "cafecart-sandbox",
	Short: "Local stand-in for the remote cart slot service",
	Long: `Serves the remote slot API (/get, /set, /get_status) from memory so the
remote backend can be exercised without the real service. Latency and
failures can be injected to see how carts behave when persistence fails.`,
	Args: cobra.NoArgs,
	RunE: runSandbox,
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", ":8787", "listen address")
	rootCmd.Flags().StringVar(&seedPath, "seed", "", "path to a YAML/JSON seed file")
	rootCmd.Flags().DurationVar(&latency, "latency", 0, "artificial latency to inject per request")
	rootCmd.Flags().StringVar(&fail, "fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	rootCmd.Flags().IntVar(&maxValueBytes, "max-value-bytes", 0, "reject larger values with 413 (0 disables)")
	rootCmd.Flags().DurationVar(&ttl, "ttl", 0, "expire slots this long after their last write")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSandbox(cmd *cobra.Command, _ []string) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store := memory.New(memory.WithTTL(ttl))
	if seedPath != "" {
		entries, err := devseed.Load(seedPath)
		if err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		if err := store.Seed(entries); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
	}

	failCfg, err := parseFailConfig(fail)
	if err != nil {
		return fmt.Errorf("parse fail flag: %w", err)
	}

	server := &http.Server{
		Addr: addr,
		Handler: newHandler(store, options{
			latency:       latency,
			fail:          failCfg,
			maxValueBytes: maxValueBytes,
		}, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("cafecart-sandbox listening", zap.String("addr", addr))
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Println("export CAFECART_BACKEND=remote")
	fmt.Printf("export %s=http://%s\n", remoteURLEnv, host)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
