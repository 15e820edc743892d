package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/avivl/locker/client/go/locker-client/lockertest"
	"github.com/avivl/locker/internal/config"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var fakeServerCmd = &cobra.Command{
	Use:   "fake-server",
	Short: "Run an in-memory locker service for local development",
	Long: `fake-server serves the locker HTTP API from memory, authenticating with
the configured client credentials. Server-side counters are exposed on
/metrics. Nothing survives a restart.`,
	Args: cobra.NoArgs,
	RunE: fakeServer,
}

func init() {
	RootCmd.AddCommand(fakeServerCmd)

	fakeServerCmd.Flags().String("addr", "", "Listen address")
}

func fakeServer(cmd *cobra.Command, _ []string) error {
	cfg := state.cfg
	logger := state.logger

	handler := lockertest.NewHandler(lockertest.Options{
		Username: cfg.Client.Username,
		Password: cfg.Client.Password,
		BasePath: cfg.Client.BasePath,
		Logger:   logger,
	})

	state.loader.AddWatcher(func(updated *config.GlobalConfig) {
		if updated.Client.Username != cfg.Client.Username || updated.Client.Password != cfg.Client.Password {
			logger.Warnw("credentials changed in configuration, restart fake-server to apply them")
			return
		}
		logger.Infow("configuration reloaded", "file", state.loader.ConfigFileUsed())
	})
	state.loader.Watch()

	srv := &http.Server{
		Addr:              cfg.FakeServer.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("fake locker service listening", "addr", srv.Addr, "base_path", cfg.Client.BasePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
	}

	logger.Infow("shutting down fake locker service")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
