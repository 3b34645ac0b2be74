package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fountainhq/fountain-agent/internal/api"
	"github.com/fountainhq/fountain-agent/internal/notify"
	"github.com/fountainhq/fountain-agent/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent: scheduler plus local control API",
	Long: `Run the agent loop. The scheduler syncs every enabled platform on its
configured interval, and a loopback HTTP API lets a tray or window shell
query status, trigger syncs, edit settings and stream state changes.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", "127.0.0.1:8787", "Control API listen address (loopback)")
	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		cobra.CheckErr(fmt.Errorf("failed to bind address flag: %w", err))
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.close()
	logger := eng.logger

	notifier := notify.NewLog(logger)
	sched := scheduler.New(
		eng.session, eng.manager.Current(), eng.manager.Subscribe(), notifier, logger,
	)

	address := viper.GetString("address")
	server := &http.Server{
		Addr:        address,
		Handler:     api.NewServer(eng.store, eng.session, eng.manager, logger).Router(),
		ReadTimeout: serverReadTimeout,
		IdleTimeout: serverIdleTimeout,
		// No write timeout: the events endpoint streams indefinitely.
	}

	errCh := make(chan error, 3)

	go func() {
		errCh <- eng.manager.Watch(ctx, logger)
	}()
	go func() {
		errCh <- sched.Run(ctx)
	}()
	go func() {
		logger.Info("Control API listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			stop()
			shutdown(server, logger)
			return err
		}
	}

	shutdown(server, logger)
	return nil
}

func shutdown(server *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Control API shutdown failed", "error", err)
	}
}
