// Command bb-proxy runs the client-facing proxy half of Bamboo: it
// accepts Minecraft client connections, carries them through the full
// handshake/status/login state machine, and forwards Play traffic to a
// bb-server instance over the internal transfer link.
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
	"github.com/bamboo-mc/bamboo/internal/mojang"
	"github.com/bamboo-mc/bamboo/internal/registry"
	"github.com/bamboo-mc/bamboo/internal/supervisor"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	root := &cobra.Command{
		Use:           "bb-proxy",
		Short:         "Bamboo proxy: client-facing Minecraft edge",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringVar(&configPath, "config", "proxy.toml", "path to the proxy configuration file")
	root.Version = version

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("bb-proxy: build logger: %w", err)
	}
	defer log.Sync()

	cfg, err := bbconfig.LoadProxy(configPath)
	if err != nil {
		return &startupError{cause: fmt.Errorf("load config: %w", err)}
	}

	rsaKey, err := mojang.New()
	if err != nil {
		return &startupError{cause: fmt.Errorf("generate rsa keypair: %w", err)}
	}

	reg := registry.New()
	verifier := mojang.SessionVerifier{}
	sup := supervisor.New(cfg, reg, rsaKey, verifier, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bamboo proxy",
		zap.String("address", cfg.Address),
		zap.String("serverAddress", cfg.ServerAddress),
		zap.Bool("onlineMode", cfg.OnlineMode),
	)
	if err := sup.Run(ctx); err != nil {
		return &runtimeError{cause: err}
	}
	return nil
}

// startupError and runtimeError distinguish failures while loading the
// configuration and building components (exit code 1) from failures
// returned by the supervisor's Run, including a failed listen (exit code 2).
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
