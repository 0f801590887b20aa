package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/mediagrab/config"
	"github.com/bnema/mediagrab/internal/adapter/encoder/ffmpeg"
	"github.com/bnema/mediagrab/internal/adapter/extractor/ytdlp"
	HTTPAdapter "github.com/bnema/mediagrab/internal/adapter/http"
	sqlitestore "github.com/bnema/mediagrab/internal/adapter/storage/sqlite"
	"github.com/bnema/mediagrab/internal/infrastructure/logger"
	"github.com/bnema/mediagrab/internal/port"
	"github.com/bnema/mediagrab/internal/service"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, job workers and the retention sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ctx.cfgPath != "" {
				logger.Info.Printf("loaded config from %s", ctx.cfgPath)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another mediagrab instance is using %s", cfg.DataDir)
	}
	defer func() { _ = lock.Unlock() }()

	report := ytdlp.DependencyStatus(cfg.YtdlpBinary, cfg.FFmpegBinary)
	if err := report.CheckDependencies(); err != nil {
		logger.Warn.Printf("%v; jobs will fail until it is installed", err)
	}

	var history port.JobHistory
	if cfg.HistoryEnabled {
		store, err := sqlitestore.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer func() { _ = store.Close() }()
		history = sqlitestore.NewHistory(store)
	}

	auth, err := service.NewTokenAuth(cfg.APITokenHash)
	if err != nil {
		return err
	}
	if !auth.Enabled() {
		logger.Warn.Printf("api_token_hash is not set, the API is open to anyone who can reach it")
	}

	eventBus := service.NewEventBus()
	registry := service.NewRegistry(eventBus)
	extractor := ytdlp.New(ytdlp.Config{Binary: cfg.YtdlpBinary, KillGrace: cfg.KillGrace.Std()})
	encoder := ffmpeg.New(ffmpeg.Config{Binary: cfg.FFmpegBinary, KillGrace: cfg.KillGrace.Std()})

	jobs := service.NewJobService(extractor, encoder, history, registry, service.JobServiceOptions{
		DownloadDir:        cfg.DownloadDir(),
		CancelWait:         cfg.CancelWait.Std(),
		DownloadNamePrefix: cfg.DownloadNamePrefix,
	})
	sweeper := service.NewSweeper(registry, service.SweeperOptions{
		Dir:          cfg.DownloadDir(),
		Interval:     cfg.SweepInterval.Std(),
		FileMaxAge:   cfg.FileMaxAge.Std(),
		JobRetention: cfg.JobRetention.Std(),
	})

	server := HTTPAdapter.NewServer(jobs, eventBus, HTTPAdapter.ServerOptions{
		Auth:        auth,
		SubmitRate:  cfg.SubmitRate,
		SubmitBurst: cfg.SubmitBurst,
		BehindProxy: cfg.BehindProxy,
	})

	addr := net.JoinHostPort("", strconv.Itoa(cfg.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		// No write timeout: event streams and artifact downloads are long lived.
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info.Printf("server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		return server.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info.Printf("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Stop accepting requests, then make sure no child process outlives us.
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}
		if err := jobs.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("job shutdown error: %v", err)
		}

		logger.Info.Printf("shutdown complete")
		return nil
	})

	return g.Wait()
}
