package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/lexrag/internal/server"
	"github.com/hyperjump/lexrag/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the drop-folder watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, noWatch)
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch the configured folders")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, noWatch bool) error {
	cfg, logger, _, err := opts.setup(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srvOpts []server.Option
	var w *watcher.Watcher
	if !noWatch && len(cfg.Watch.Directories) > 0 {
		w = watcher.NewWatcher(cfg.Watch.Directories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(),
			c.Indexer, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			_ = c.Close(false)
			return err
		}
		go w.SyncExistingFiles()
		srvOpts = append(srvOpts, server.WithWatcher(w))
	}

	srv := server.NewServer(c.Engine, c.Indexer, c.Storage, c.VectorIndex, cfg, logger, srvOpts...)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("Server failed", zap.Error(serveErr))
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
	if w != nil {
		w.Stop()
	}
	return errors.Join(serveErr, c.Close(true))
}
