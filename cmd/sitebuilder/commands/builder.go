package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

const publishTimeout = 10 * time.Second

// siteBuilder runs builds for one configuration and forwards every report
// to the configured metrics and notification sinks.
type siteBuilder struct {
	cfg       *config.Config
	out       io.Writer
	registry  *prom.Registry
	recorder  *metrics.PrometheusRecorder
	notifier  *notify.Notifier
	pushRetry retry.Policy
}

func newSiteBuilder(cfg *config.Config, out io.Writer) (*siteBuilder, error) {
	reg := prom.NewRegistry()
	b := &siteBuilder{
		cfg:       cfg,
		out:       out,
		registry:  reg,
		recorder:  metrics.NewPrometheusRecorder(reg),
		pushRetry: retry.DefaultPolicy(),
	}
	if cfg.Notify.URL != "" {
		n, err := notify.Connect(cfg.Notify.URL, cfg.Notify.Subject)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "cannot enable build notifications").
				WithContext("url", cfg.Notify.URL).
				Build()
		}
		b.notifier = n
	}
	return b, nil
}

func (b *siteBuilder) close() {
	if b.notifier != nil {
		b.notifier.Close()
	}
}

// build runs one full build and prints its issues and summary.
func (b *siteBuilder) build(ctx context.Context) (*site.Report, error) {
	report, err := site.Build(ctx, b.cfg.Source, b.cfg.Output, b.cfg.Site, site.WithRecorder(b.recorder))
	printReport(b.out, report)
	b.publish(ctx, report)
	return report, err
}

// publish never fails the build; sink errors are logged.
func (b *siteBuilder) publish(ctx context.Context, report *site.Report) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if gw := b.cfg.Metrics.Pushgateway; gw != "" {
		err := b.pushRetry.Do(pctx, "pushgateway", func(ctx context.Context) error {
			return metrics.Push(ctx, gw, b.cfg.Metrics.Job, report.BuildID, b.registry)
		})
		if err != nil {
			slog.Warn("Failed to push build metrics", logfields.URL(gw), logfields.Error(err))
		}
	}
	if b.notifier != nil {
		if err := b.notifier.BuildCompleted(buildEvent(report)); err != nil {
			slog.Warn("Failed to publish build event", logfields.BuildID(report.BuildID), logfields.Error(err))
		}
	}
}

func buildEvent(r *site.Report) notify.BuildCompleted {
	return notify.BuildCompleted{
		BuildID:      r.BuildID,
		Outcome:      string(r.Outcome),
		Source:       r.Source,
		Output:       r.Output,
		Pages:        r.Documents,
		Skipped:      len(r.Skipped),
		Issues:       len(r.Issues),
		ManifestHash: r.ManifestHash,
		DurationMS:   r.Duration().Milliseconds(),
		Timestamp:    r.End.UTC(),
	}
}

func printReport(w io.Writer, r *site.Report) {
	for _, issue := range r.Issues {
		_, _ = fmt.Fprintf(w, "%s: %s\n", issue.Severity, issue)
	}
	_, _ = fmt.Fprintln(w, r.Summary())
}
