package config

import (
	"strings"
	"time"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SiteDefaultApplier handles Site and path defaults.
type SiteDefaultApplier struct{}

func (s *SiteDefaultApplier) Domain() string { return "site" }

func (s *SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Source == "" {
		cfg.Source = "docs"
	}
	if cfg.Output == "" {
		cfg.Output = "public"
	}
	if cfg.Site.Title == "" {
		cfg.Site.Title = "Documentation"
	}
	if cfg.Site.BasePath == "" {
		cfg.Site.BasePath = "/"
	}
	if !strings.HasSuffix(cfg.Site.BasePath, "/") {
		cfg.Site.BasePath += "/"
	}
	if cfg.Site.Parallelism == 0 {
		cfg.Site.Parallelism = 1
	}
	if cfg.Site.HighlightStyle == "" {
		cfg.Site.HighlightStyle = "github"
	}
	return nil
}

// MetricsDefaultApplier handles Pushgateway defaults.
type MetricsDefaultApplier struct{}

func (m *MetricsDefaultApplier) Domain() string { return "metrics" }

func (m *MetricsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "sitebuilder"
	}
	return nil
}

// NotifyDefaultApplier handles NATS notification defaults.
type NotifyDefaultApplier struct{}

func (n *NotifyDefaultApplier) Domain() string { return "notify" }

func (n *NotifyDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "sitebuilder.build.completed"
	}
	return nil
}

// WatchDefaultApplier handles watch command defaults.
type WatchDefaultApplier struct{}

func (w *WatchDefaultApplier) Domain() string { return "watch" }

func (w *WatchDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	return nil
}

// defaultAppliers lists the appliers in the order they run.
func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&SiteDefaultApplier{},
		&MetricsDefaultApplier{},
		&NotifyDefaultApplier{},
		&WatchDefaultApplier{},
	}
}

// ApplyDefaults runs every domain applier against cfg.
func ApplyDefaults(cfg *Config) error {
	for _, applier := range defaultAppliers() {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
