package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"golang.org/x/sync/errgroup"

	"github.com/jerbs/sinema-sub001/config"
	"github.com/jerbs/sinema-sub001/core"
	promexp "github.com/jerbs/sinema-sub001/observability/prometheus"
)

type runOptions struct {
	configPath string
	envFiles   []string
	ticks      int
	listen     string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo ticker actor",
		Long: `Run starts an actor, arms its timer and prints every tick. ` +
			`After --ticks ticks (0 runs until interrupted) the actor quits. ` +
			`Metrics are served on /metrics and processor stats on /stats.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runTicker(ctx, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (yaml, toml or json)")
	cmd.Flags().StringSliceVar(&opts.envFiles, "env-file", nil, ".env files to load before reading the environment")
	cmd.Flags().IntVarP(&opts.ticks, "ticks", "n", 5, "number of ticks before quitting, 0 for no limit")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "metrics listen address, overrides metrics.listen; \"-\" disables the server")
	return cmd
}

func runTicker(ctx context.Context, opts *runOptions, out io.Writer) error {
	if err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.Metrics.Listen = opts.listen
	}

	logger := cfg.Logger()
	reg := prom.NewRegistry()
	exporter, err := promexp.NewMetricsExporter(cfg.Metrics.Namespace, reg, promexp.ExporterOptions{})
	if err != nil {
		return fmt.Errorf("metrics exporter: %w", err)
	}
	poller, err := promexp.NewSnapshotPoller(cfg.Metrics.Namespace, reg, cfg.Metrics.PollInterval)
	if err != nil {
		return fmt.Errorf("snapshot poller: %w", err)
	}

	tk, err := newTicker(cfg, logger, exporter, out, opts.ticks)
	if err != nil {
		return err
	}
	defer tk.timer.Close()
	poller.AddProcessor(tk.Name(), tk.EventProcessor)

	atexit.Register(func() {
		stats := tk.Stats()
		logger.Info("final processor stats",
			core.F("processor", stats.Name),
			core.F("executed", stats.Executed),
			core.F("panicked", stats.Panicked),
			core.F("pending", stats.Pending))
	})

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.Metrics.Listen != "-" && cfg.Metrics.Listen != "" {
		srv = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           newRouter(reg, tk.EventProcessor),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", core.F("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	poller.Start(gctx)
	tk.Start()
	tk.QueueStart()

	g.Go(func() error {
		defer poller.Stop()
		select {
		case <-tk.Done():
		case <-gctx.Done():
			tk.QueueQuit()
			<-tk.Done()
		}
		if srv == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
