package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"workorder-engine/internal/config"
	"workorder-engine/internal/events"
	"workorder-engine/internal/extract"
	"workorder-engine/internal/httpapi"
	"workorder-engine/internal/logging"
	"workorder-engine/internal/processor"
	"workorder-engine/internal/scheduler"
	"workorder-engine/internal/store"
)

type ServeOptions struct {
	*RootOptions
	Addr            string
	AutoStart       bool
	CheckpointEvery time.Duration
	ShutdownTimeout time.Duration
	ChatChunkDelay  time.Duration
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control API and the email processor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":5000", "listen address")
	cmd.Flags().BoolVar(&opts.AutoStart, "auto-start", false, "start the email processor at boot")
	cmd.Flags().DurationVar(&opts.CheckpointEvery, "checkpoint-every", 10*time.Minute, "WAL checkpoint interval")
	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown limit")
	cmd.Flags().DurationVar(&opts.ChatChunkDelay, "chat-chunk-delay", 500*time.Millisecond, "delay between simulated chat chunks")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	log := logging.New(logging.Config{Level: opts.LogLevel, JSON: opts.LogJSON})

	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	cfgStore := config.NewStore(opts.configPath())
	cfg, err := cfgStore.Load()
	if err != nil {
		return err
	}
	vr := config.Validate(cfg)
	for _, w := range vr.Warnings {
		log.Warn().Str("path", cfgStore.AbsPath()).Msg("config: " + w)
	}
	for _, e := range vr.Errors {
		log.Error().Str("path", cfgStore.AbsPath()).Msg("config: " + e)
	}

	// db_path is read once; changing it needs a restart
	dbPath := opts.resolve(cfg.DBPath)
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	settings := cfg.ProcessorSettings()
	rules, err := extract.LoadRules(opts.resolve(settings.RulesPath))
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := events.NewHub()
	logs := store.NewLogStore(db)
	ex := extract.New(rules, logging.Component(log, "extract"))

	proc := processor.New(processor.Options{
		Config:    cfgStore,
		Logs:      logs,
		Handler:   ex,
		NewSource: processor.DefaultSourceFactory(logging.Component(log, "mailbox")),
		Reload: func(s config.ProcessorSettings) error {
			return ex.ReloadRules(opts.resolve(s.RulesPath))
		},
		Hub:     hub,
		Metrics: processor.NewMetrics(reg),
		Log:     logging.Component(log, "processor"),
	})

	srv := &http.Server{
		Addr: opts.Addr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Config:     cfgStore,
			DB:         db,
			Logs:       logs,
			Processor:  proc,
			Extractor:  ex,
			Hub:        hub,
			Gatherer:   reg,
			Log:        logging.Component(log, "http"),
			ChunkDelay: opts.ChatChunkDelay,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("addr", opts.Addr).
			Str("config", cfgStore.AbsPath()).
			Str("db", dbPath).
			Msg("engine listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		proc.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		scheduler.Every(gctx, opts.CheckpointEvery, "wal-checkpoint", logging.Component(log, "scheduler"), db.Checkpoint)
		return nil
	})

	if opts.AutoStart {
		if _, err := proc.Start(); err != nil {
			log.Error().Err(err).Msg("auto-start failed")
		}
	}

	err = g.Wait()
	log.Info().Msg("engine stopped")
	return err
}
