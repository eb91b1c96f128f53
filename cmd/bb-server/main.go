// Command bb-server runs the world-facing half of Bamboo: it accepts a
// proxy's internal transfer link and serves Play traffic to whatever
// players the proxy has authenticated and forwarded.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bamboo-mc/bamboo/internal/bbconfig"
	"github.com/bamboo-mc/bamboo/internal/mcserver"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	root := &cobra.Command{
		Use:           "bb-server",
		Short:         "Bamboo server: world-facing link counterparty",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringVar(&configPath, "config", "server.toml", "path to the server configuration file")
	root.Version = version

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("bb-server: build logger: %w", err)
	}
	defer log.Sync()

	cfg, err := bbconfig.LoadServer(configPath)
	if err != nil {
		return &startupError{cause: fmt.Errorf("load config: %w", err)}
	}

	srv := mcserver.New(cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bamboo server", zap.String("listenAddress", cfg.ListenAddress))
	if err := srv.Run(ctx); err != nil {
		return &runtimeError{cause: err}
	}
	return nil
}

type startupError struct{ cause error }

func (e *startupError) Error() string { return e.cause.Error() }
func (e *startupError) Unwrap() error { return e.cause }

type runtimeError struct{ cause error }

func (e *runtimeError) Error() string { return e.cause.Error() }
func (e *runtimeError) Unwrap() error { return e.cause }

func exitCodeFor(err error) int {
	switch err.(type) {
	case *startupError:
		return 1
	case *runtimeError:
		return 2
	default:
		return 1
	}
}
