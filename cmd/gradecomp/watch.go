package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gogpu/compose"
	"github.com/gogpu/compose/internal/scenefile"
)

func newWatchCmd() *cobra.Command {
	var (
		opts        renderOptions
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch SCENE",
		Short: "Re-render a scene document whenever it changes",
		Long: `watch renders the document once, then keeps one compositor alive and feeds it
the differences between successive versions of the document as change batches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, args[0], &opts, metricsAddr)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func runWatch(ctx context.Context, path string, opts *renderOptions, metricsAddr string) error {
	log := compose.Logger()

	sc, err := scenefile.Load(path)
	if sc == nil {
		return err
	}
	if err != nil {
		log.Warn("gradecomp: scene has invalid nodes", "path", path, "err", err)
	}

	var extra []compose.Option
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		extra = append(extra, compose.WithRegisterer(reg))
		stop := serveMetrics(metricsAddr, reg)
		defer stop()
	}

	s, err := newSession(sc, opts, extra)
	if err != nil {
		return err
	}
	defer s.comp.Close()

	if err := s.comp.Sync(scenefile.Diff(nil, sc)); err != nil {
		log.Warn("gradecomp: nodes skipped", "err", err)
	}
	if err := s.renderTo(ctx, opts); err != nil {
		return err
	}

	prev := sc
	w := &scenefile.Watcher{Path: path, Logger: log}
	err = w.Run(ctx, func(next *scenefile.Scene, loadErr error) error {
		if next == nil {
			log.Warn("gradecomp: keeping previous frame", "err", loadErr)
			return nil
		}
		return s.apply(ctx, prev, next, opts, func() { prev = next })
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// apply moves the compositor from prev to next and renders. commit is
// called once next has been synced.
func (s *session) apply(ctx context.Context, prev, next *scenefile.Scene, opts *renderOptions, commit func()) error {
	log := compose.Logger()
	if next.Viewport != s.comp.Viewport() {
		if err := s.comp.SetViewport(next.Viewport); err != nil {
			log.Warn("gradecomp: viewport rejected", "err", err)
			return nil
		}
	}
	batch := scenefile.Diff(prev, next)
	if err := s.comp.Sync(batch); err != nil {
		log.Warn("gradecomp: nodes skipped", "err", err)
	}
	commit()
	log.Info("gradecomp: scene reloaded", "added", len(batch.Added), "updated", len(batch.Updated),
		"removed", len(batch.Removed))
	return s.renderTo(ctx, opts)
}

// serveMetrics starts an HTTP server for reg and returns its shutdown func.
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			compose.Logger().Error("gradecomp: metrics server", "addr", addr, "err", err)
		}
	}()
	compose.Logger().Info("gradecomp: serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
