package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SourceFlags `embed:""`

	Parallel      int    `short:"p" help:"Number of pages rendered concurrently (overrides config)"`
	Pushgateway   string `help:"Prometheus Pushgateway URL that receives build metrics"`
	NotifyURL     string `name:"notify-url" help:"NATS server URL for build-completed events"`
	NotifySubject string `name:"notify-subject" help:"NATS subject for build-completed events"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, b.apply)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return RunBuild(ctx, cfg, os.Stdout)
}

func (b *BuildCmd) apply(cfg *config.Config) {
	b.SourceFlags.apply(cfg)
	if b.Parallel != 0 {
		cfg.Site.Parallelism = b.Parallel
	}
	if b.Pushgateway != "" {
		cfg.Metrics.Pushgateway = b.Pushgateway
	}
	if b.NotifyURL != "" {
		cfg.Notify.URL = b.NotifyURL
	}
	if b.NotifySubject != "" {
		cfg.Notify.Subject = b.NotifySubject
	}
}

// RunBuild performs a single build and writes the report to out.
func RunBuild(ctx context.Context, cfg *config.Config, out io.Writer) error {
	b, err := newSiteBuilder(cfg, out)
	if err != nil {
		return err
	}
	defer b.close()

	_, err = b.build(ctx)
	return err
}
