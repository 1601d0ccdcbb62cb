package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leoforge/go-leodocs/internal/server"
	"github.com/leoforge/go-leodocs/pkg/leodocs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API over HTTP",
		Long: `Serve renders templates from the template directory over HTTP:

  POST /v1/render   JSON request, DOCX response
  GET  /healthz     liveness probe
  GET  /metrics     Prometheus metrics

With --watch, cached templates are dropped as soon as their files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("host", "", "host to bind to")
	cmd.Flags().IntP("port", "p", 0, "port to serve on")
	cmd.Flags().BoolP("watch", "w", false, "drop cached templates when their files change")
	cmd.Flags().Float64("rate", 0, "render requests per second, 0 disables limiting")
	cmd.Flags().Int("burst", 0, "render request burst size")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := leodocs.NewPrometheusMetrics(registry)
	if err != nil {
		return err
	}

	engine := a.engine(leodocs.WithMetrics(metrics))
	defer engine.Close()

	if a.config.Templates.Watch {
		go func() {
			if err := leodocs.WatchTemplates(ctx, a.config.Templates.Dir, engine.Cache(), a.logger); err != nil {
				a.logger.Error("Template watcher stopped: %v", err)
			}
		}()
	}

	a.logger.WithFields(leodocs.Fields{
		"templates": a.config.Templates.Dir,
		"watch":     a.config.Templates.Watch,
	}).Info("Starting server on %s", a.config.Addr())
	return server.New(engine, a.config, a.logger, registry).Start(ctx)
}
