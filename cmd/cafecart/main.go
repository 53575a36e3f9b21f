package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eightbitcafe/cart_sdk_go/internal/logging"
	"github.com/eightbitcafe/cart_sdk_go/pkg/cafecart"
)

// app carries the state shared by every command.
type app struct {
	configPath string
	backend    string
	verbose    bool

	cfg    cafecart.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "cafecart",
		Short: "8-bit cafe shopping cart",
		Long: `cafecart manages the 8-bit cafe shopping cart stored in the configured slot
backend and serves it over HTTP.

The backend comes from --backend, CAFECART_BACKEND or the config file:
memory, file, sqlite, remote or cookie (serve only). With the default
"auto" the first of CAFECART_REMOTE_URL, CAFECART_SQLITE_PATH and
CAFECART_FILE_DIR that is set wins; otherwise the cart lives in memory and
is gone when the command exits.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "slot backend (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newShowCmd(a),
		newAddCmd(a),
		newQtyCmd(a),
		newClearCmd(a),
		newOrderCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := cafecart.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if b := strings.TrimSpace(a.backend); b != "" {
		cfg.Backend = strings.ToLower(b)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogJSON)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// open starts the runtime for commands that need one shared store.
func (a *app) open(ctx context.Context) (*cafecart.Runtime, error) {
	rt, err := cafecart.Open(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	if !rt.Shared() {
		_ = rt.Close()
		return nil, fmt.Errorf("the %s backend only works with serve", rt.Mode)
	}
	return rt, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
