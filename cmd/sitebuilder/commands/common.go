package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (defaults to sitebuilder.yaml when present)"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format: auto, text or json" default:"auto" enum:"auto,text,json"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build the site once"`
	Tree  TreeCmd  `cmd:"" help:"Print the content tree without rendering"`
	Watch WatchCmd `cmd:"" help:"Rebuild the site whenever sources change"`
	Init  InitCmd  `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(os.Stderr, c.LogFormat, c.Verbose))
	return nil
}

// newLogger picks the JSON handler for "json", or for "auto" when w is not
// a terminal.
func newLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if useJSON(w, format) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func useJSON(w io.Writer, format string) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}
	f, ok := w.(*os.File)
	return ok && !term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// SourceFlags are shared by commands that read and write a site.
type SourceFlags struct {
	Source string `short:"s" help:"Source directory (overrides config)"`
	Output string `short:"o" help:"Output directory (overrides config)"`
}

// apply copies non-empty flags onto cfg.
func (f SourceFlags) apply(cfg *config.Config) {
	if f.Source != "" {
		cfg.Source = f.Source
	}
	if f.Output != "" {
		cfg.Output = f.Output
	}
}

// loadConfig loads the configuration, lets mutate override fields from
// flags and validates the result.
func loadConfig(root *CLI, mutate func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
		if err := config.ValidateConfig(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
