package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fmal/impact/internal/config"
	"github.com/fmal/impact/internal/errors"
	"github.com/fmal/impact/pkg/devtools"
	"github.com/fmal/impact/pkg/middleware"
	"github.com/fmal/impact/pkg/reactive"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a ticking demo graph with live devtools",
		Long: `Drive a demo graph from a ticker on one goroutine and serve the
inspector over HTTP.

Endpoints:
  GET /graph     latest graph snapshot
  GET /events    recent runtime events (?limit=N)
  GET /ws        live event stream
  GET /metrics   Prometheus metrics (when metrics are enabled)

Examples:
  impact serve
  impact serve --addr :7070 --config impact.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Devtools.Addr = addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			printBanner(w)
			fmt.Fprintln(w, "  serve")
			fmt.Fprintln(w)
			return runServe(ctx, w, cfg, newLogger(cmd.ErrOrStderr(), cfg))
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, w io.Writer, cfg *config.Config, logger *slog.Logger) error {
	hub := devtools.NewHub(cfg.Devtools.EventBuffer)
	instr := []reactive.Instrumentation{hub}

	opts := []devtools.HandlerOption{
		devtools.WithLogger(logger),
		devtools.WithCheckOrigin(originChecker(cfg.Devtools.AllowedOrigins)),
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		instr = append(instr, middleware.Prometheus(
			middleware.WithRegistry(reg),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		))
		opts = append(opts, devtools.WithGatherer(reg))
	}
	if cfg.Tracing.Enabled {
		instr = append(instr, middleware.OpenTelemetry(middleware.WithTracerName(cfg.Tracing.TracerName)))
	}

	srv := &http.Server{
		Addr:              cfg.Devtools.Addr,
		Handler:           devtools.Handler(hub, opts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- driveTicker(ctx, cfg, logger, hub, middleware.Chain(instr...))
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- errors.New("E400").Wrap(err)
			return
		}
		errCh <- nil
	}()

	success(w, "Devtools on http://%s", cfg.Devtools.Addr)
	info(w, "tick every %s, Ctrl+C to stop", cfg.TickInterval())

	var first error
	received := 0
	select {
	case <-ctx.Done():
	case first = <-errCh:
		received++
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("devtools shutdown", "error", err)
	}
	for ; received < 2; received++ {
		if err := <-errCh; first == nil {
			first = err
		}
	}

	fmt.Fprintln(w, "\n  Shutting down...")
	return first
}

// driveTicker owns the runtime: it is created, written and disposed on
// this goroutine only.
func driveTicker(ctx context.Context, cfg *config.Config, logger *slog.Logger, hub *devtools.Hub, instr reactive.Instrumentation) error {
	rt := newRuntime(cfg, logger, instr)
	g, err := newTickerGraph(rt, logger)
	if err != nil {
		return errors.FromError(err, "E301")
	}
	defer g.Dispose()
	hub.Publish(rt.Snapshot())

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := g.Tick(); err != nil {
				// A failing tick is reported and the demo keeps going.
				logger.Error("tick failed", "error", err)
			}
			hub.Publish(rt.Snapshot())
		}
	}
}

// originChecker accepts same-origin requests and the listed origins.
// It returns nil, the websocket default, when the list is empty.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
