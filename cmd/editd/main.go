package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"editd/internal/config"
	"editd/internal/httpapi"
	"editd/internal/infer"
	"editd/internal/manager"
	"editd/internal/queue"
	"editd/internal/results"
	"editd/internal/store"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		cfgPath string
		cfg     config.Config
	)
	root := &cobra.Command{
		Use:           "editd",
		Short:         "Image-edit daemon: queued editing jobs against a single on-demand model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			merged := config.Config{}
			if cfgPath != "" {
				fileCfg, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				merged = fileCfg
			}
			merged = config.FromEnv(merged)
			// explicit flags win over file and environment
			overlayFlag := func(name string, apply func()) {
				if cmd.Flags().Changed(name) {
					apply()
				}
			}
			overlayFlag("addr", func() { merged.Addr = cfg.Addr })
			overlayFlag("results-dir", func() { merged.ResultsDir = cfg.ResultsDir })
			overlayFlag("model", func() { merged.Model = cfg.Model })
			overlayFlag("timeout-minutes", func() { merged.TimeoutMinutes = cfg.TimeoutMinutes })
			overlayFlag("queue-depth", func() { merged.QueueDepth = cfg.QueueDepth })
			overlayFlag("preload", func() { merged.Preload = cfg.Preload })
			overlayFlag("test-mode", func() { merged.TestMode = cfg.TestMode })
			overlayFlag("worker-url", func() { merged.WorkerURL = cfg.WorkerURL })
			overlayFlag("worker-cmd", func() { merged.WorkerCmd = cfg.WorkerCmd })
			overlayFlag("max-upload-mb", func() { merged.MaxUploadMB = cfg.MaxUploadMB })
			overlayFlag("cors-origins", func() { merged.CORSOrigins = cfg.CORSOrigins })
			return run(config.ApplyDefaults(merged))
		},
	}
	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "Optional config file (.yaml/.json/.toml)")
	f.StringVar(&cfg.Addr, "addr", ":8080", "HTTP listen address")
	f.StringVar(&cfg.ResultsDir, "results-dir", "./results", "Directory for result images")
	f.StringVar(&cfg.Model, "model", "", "Model identifier reported by /health")
	f.Float64Var(&cfg.TimeoutMinutes, "timeout-minutes", 30, "Idle minutes before the model is unloaded")
	f.IntVar(&cfg.QueueDepth, "queue-depth", 32, "Maximum queued jobs before submissions are rejected")
	f.BoolVar(&cfg.Preload, "preload", false, "Load the model at startup instead of on first job")
	f.BoolVar(&cfg.TestMode, "test-mode", false, "Use the no-op inference stub instead of a real worker")
	f.StringVar(&cfg.WorkerURL, "worker-url", "", "Base URL of the inference worker")
	f.StringVar(&cfg.WorkerCmd, "worker-cmd", "", "Command to spawn the inference worker (space separated)")
	f.IntVar(&cfg.MaxUploadMB, "max-upload-mb", 64, "Maximum multipart upload size in MB")
	f.StringSliceVar(&cfg.CORSOrigins, "cors-origins", nil, "Allowed CORS origins (enables CORS when set)")
	return root
}

func run(cfg config.Config) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "editd").Logger()

	res, err := results.New(cfg.ResultsDir)
	if err != nil {
		return err
	}

	var (
		loader manager.Loader
		runner infer.Runner
	)
	if cfg.TestMode {
		stub := infer.NewStub()
		stub.StepDelay = 10 * time.Millisecond
		loader, runner = stub, stub
		logger.Warn().Msg("test mode: inference is stubbed")
	} else {
		worker := infer.NewWorker(infer.WorkerConfig{
			Command: splitCommand(cfg.WorkerCmd),
			BaseURL: cfg.WorkerURL,
			Logger:  logger,
		})
		loader, runner = worker, worker
	}

	st := store.New()
	mgr := manager.New(manager.Config{
		Loader:  loader,
		Timeout: time.Duration(cfg.TimeoutMinutes * float64(time.Minute)),
		Logger:  logger,
	})
	q := queue.New(queue.Config{
		Store:   st,
		Manager: mgr,
		Runner:  runner,
		Results: res,
		Depth:   cfg.QueueDepth,
		Logger:  logger,
	})

	httpapi.SetLogger(logger)
	httpapi.SetModelName(cfg.Model)
	httpapi.SetMaxUploadBytes(int64(cfg.MaxUploadMB) << 20)
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins)
	mux := httpapi.NewMux(&httpapi.App{Queue: q, Store: st, Manager: mgr, Results: res})

	bg, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.RunWorker(bg)
	go mgr.RunReaper(bg)
	if cfg.Preload {
		go func() {
			if _, err := mgr.EnsureLoaded(bg); err != nil {
				logger.Error().Err(err).Msg("preload failed")
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("results_dir", res.Dir()).
			Float64("timeout_minutes", cfg.TimeoutMinutes).Msg("editd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancel()
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// splitCommand breaks a worker command line on whitespace. Arguments with
// embedded spaces are not supported; use a wrapper script instead.
func splitCommand(s string) []string {
	return strings.Fields(s)
}
