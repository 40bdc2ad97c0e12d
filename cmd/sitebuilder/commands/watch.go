package commands

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	SourceFlags `embed:""`

	Debounce    time.Duration `help:"Quiet period after the last change before rebuilding (overrides config)"`
	Every       time.Duration `help:"Also rebuild on this interval, e.g. 15m (overrides config)"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address, e.g. :9090"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, w.apply)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return RunWatch(ctx, cfg, w.MetricsAddr, os.Stdout)
}

func (w *WatchCmd) apply(cfg *config.Config) {
	w.SourceFlags.apply(cfg)
	if w.Debounce > 0 {
		cfg.Watch.Debounce = w.Debounce
	}
	if w.Every > 0 {
		cfg.Watch.Every = w.Every
	}
}

// RunWatch builds once, then rebuilds on every relevant change until ctx
// is done. A failed build keeps the previous output and watching goes on.
func RunWatch(ctx context.Context, cfg *config.Config, metricsAddr string, out io.Writer) error {
	b, err := newSiteBuilder(cfg, out)
	if err != nil {
		return err
	}
	defer b.close()

	if metricsAddr != "" {
		_, stop, err := serveMetrics(metricsAddr, b)
		if err != nil {
			return err
		}
		defer stop()
	}

	if _, err := b.build(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("Initial build failed; waiting for changes", logfields.Error(err))
	}

	w, err := watch.New(watch.Options{
		Paths:    []string{cfg.Source},
		Ignore:   []string{cfg.Output, cfg.Output + ".stage", cfg.Output + ".prev"},
		Debounce: cfg.Watch.Debounce,
		Every:    cfg.Watch.Every,
	}, func(ctx context.Context, _ string) error {
		_, err := b.build(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// serveMetrics exposes the builder's registry. It returns the bound address
// and a shutdown func.
func serveMetrics(addr string, b *siteBuilder) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.WrapError(err, errors.CategoryConfig, "cannot listen for metrics").
			WithContext("addr", addr).
			Build()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(b.registry))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", logfields.Error(err))
		}
	}()
	bound := ln.Addr().String()
	slog.Info("Serving metrics", slog.String("addr", bound))

	return bound, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
