package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	lockerclient "github.com/avivl/locker/client/go/locker-client"
	"github.com/avivl/locker/internal/config"
	"github.com/avivl/locker/internal/observability"
	"github.com/spf13/cobra"
)

// RootCmd is the locker command line entry point.
var RootCmd = &cobra.Command{
	Use:   "locker",
	Short: "Acquire, renew and release locks held by a locker service",
	Long: `locker talks to a locker service over HTTP. Locks are leased for a ttl
in seconds and identified by the ownership token returned on acquire. Settings
are read from locker.yaml, LOCKER_* environment variables and flags, in
increasing order of precedence.`,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

// flagKeys maps configuration keys to the flags that override them.
// Only flags present on the running command are bound.
var flagKeys = map[string]string{
	"client.baseUrl":     "base-url",
	"client.basePath":    "base-path",
	"client.username":    "username",
	"client.password":    "password",
	"logger.level":       "log-level",
	"acquire.timeout":    "timeout",
	"acquire.retryDelay": "retry-delay",
	"acquire.ttl":        "ttl",
	"fakeServer.address": "addr",
}

// state is what setup builds for the running command.
var state struct {
	loader   *config.ConfigLoader
	cfg      *config.GlobalConfig
	logger   *observability.SLogger
	metrics  observability.MetricsClient
	shutdown func()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file, or a directory holding locker.yaml")
	RootCmd.PersistentFlags().String("base-url", "", "Locker service base URL")
	RootCmd.PersistentFlags().String("base-path", "", "Path the lock resources are served under")
	RootCmd.PersistentFlags().String("username", "", "Locker service user name")
	RootCmd.PersistentFlags().String("password", "", "Locker service password")
	RootCmd.PersistentFlags().String("log-level", "", "Log level: [LOG_LEVELS_DEBUGLEVEL, LOG_LEVELS_INFOLEVEL, LOG_LEVELS_WARNLEVEL, LOG_LEVELS_ERRORLEVEL]")
}

func setup(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	loader := config.NewConfigLoader(path)
	bound := make(map[string]string)
	for key, name := range flagKeys {
		if cmd.Flags().Lookup(name) != nil {
			bound[key] = name
		}
	}
	if err := loader.BindFlags(cmd.Flags(), bound); err != nil {
		return err
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logger.Level.GetZapLevel())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	state.loader = loader
	state.cfg = cfg
	state.logger = logger.With("command", cmd.Name())
	state.metrics = observability.NoopMetrics{}
	state.shutdown = func() {}

	if cfg.Observability.Enabled {
		shutdown, err := observability.InitProvider(cmd.Context(), cfg.Observability)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		metrics, err := observability.NewMetricsClient(cfg.Observability, state.logger)
		if err != nil {
			shutdown()
			return fmt.Errorf("failed to create metrics client: %w", err)
		}
		state.shutdown = shutdown
		state.metrics = metrics
	}

	if used := loader.ConfigFileUsed(); used != "" {
		state.logger.Debugw("configuration loaded", "file", used)
	}
	return nil
}

func teardown(*cobra.Command, []string) error {
	if state.shutdown != nil {
		state.shutdown()
	}
	if state.logger != nil {
		// Sync reports EINVAL for a terminal stderr on Linux.
		_ = state.logger.Sync()
	}
	return nil
}

func newClient() (*lockerclient.Client, error) {
	return lockerclient.New(state.cfg.Client,
		lockerclient.WithLogger(state.logger),
		lockerclient.WithMetrics(state.metrics),
		lockerclient.WithRetryDelay(state.cfg.Acquire.RetryDelay),
	)
}
