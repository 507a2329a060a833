package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/extract"
	"github.com/hyperjump/ragstore/internal/ingest"
	"github.com/hyperjump/ragstore/internal/server"
	"github.com/hyperjump/ragstore/internal/store"
	"github.com/hyperjump/ragstore/internal/vector"
	"github.com/hyperjump/ragstore/internal/watcher"
	"github.com/hyperjump/ragstore/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. Directories listed under ingest.directories are
ingested at startup and, with ingest.watch, re-ingested when files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, path, opts.debug || cfg.Debug)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}

// components holds the services wired by serve.
type components struct {
	embedder embedding.Embedder
	store    *store.Store
}

func (c *components) Close() {
	if c.store != nil {
		_ = c.store.Close()
	}
	if c.embedder != nil {
		_ = c.embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	emb, err := embedding.NewEmbedder(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}
	c := &components{embedder: emb}
	idx, err := vector.NewIndex(vector.Options{
		Type:       cfg.Index.Type,
		Dimensions: emb.Dimensions(),
		M:          cfg.Index.M,
		EfSearch:   cfg.Index.EfSearch,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize index: %w", err)
	}
	st, err := store.New(emb, store.WithLogger(logger), store.WithIndex(idx))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	c.store = st
	logger.Info("store initialized",
		zap.String("instance_id", st.ID()),
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", emb.ModelName()),
		zap.Int("dimensions", emb.Dimensions()),
		zap.String("index", idx.Type()))
	return c, nil
}

func runServe(ctx context.Context, cfg *config.Config, configPath string, debug bool) error {
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("config_path", configPath), zap.Bool("debug", debug))

	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	if len(cfg.Ingest.Directories) > 0 {
		if err := startIngestion(ctx, cfg, comps.store, logger); err != nil {
			return err
		}
	}

	srv := server.NewServer(comps.store, &cfg.Server, cfg.Query.DefaultK, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}

// startIngestion ingests the configured directories in the background and,
// when enabled, starts a watcher that feeds changed files to the same ingester.
func startIngestion(ctx context.Context, cfg *config.Config, st *store.Store, logger *zap.Logger) error {
	in := ingest.New(st, extract.NewExtractor(), &cfg.Ingest, ingest.WithLogger(logger))
	if cfg.Ingest.Watch {
		watchOpts := []watcher.Option{}
		if cfg.Debug {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		w := watcher.New(
			cfg.Ingest.Directories,
			in.Matches,
			cfg.Ingest.RecursiveOrDefault(),
			func(path string) { in.HandleChange(ctx, path) },
			watchOpts...,
		)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		logger.Info("watching directories", zap.Strings("directories", w.Directories()))
	}
	go func() {
		for _, dir := range cfg.Ingest.Directories {
			if _, err := in.IngestDir(ctx, dir); err != nil {
				logger.Warn("ingest directory failed", zap.String("dir", dir), zap.Error(err))
			}
		}
	}()
	return nil
}
