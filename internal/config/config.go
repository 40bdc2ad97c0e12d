package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultFileName is the configuration file looked up when no path is given.
const DefaultFileName = "sitebuilder.yaml"

// Config represents the application configuration.
type Config struct {
	Source  string        `yaml:"source"`
	Output  string        `yaml:"output"`
	Site    Site          `yaml:"site"`
	Metrics MetricsConfig `yaml:"metrics"`
	Notify  NotifyConfig  `yaml:"notify"`
	Watch   WatchConfig   `yaml:"watch"`
}

// Site holds everything the build pipeline reads. It is treated as read-only
// once a build starts.
type Site struct {
	Title          string            `yaml:"title"`
	BasePath       string            `yaml:"base_path"`
	ThemeDir       string            `yaml:"theme_dir,omitempty"`
	Defaults       map[string]string `yaml:"defaults,omitempty"`
	Exclude        []string          `yaml:"exclude,omitempty"`
	Parallelism    int               `yaml:"parallelism"`
	HighlightStyle string            `yaml:"highlight_style"`
	CheckLinks     bool              `yaml:"check_links"`
	GitInfo        bool              `yaml:"git_info"`
	IncludeDrafts  bool              `yaml:"include_drafts"`
}

// MetricsConfig configures pushing build metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	Pushgateway string `yaml:"pushgateway,omitempty"`
	Job         string `yaml:"job"`
}

// NotifyConfig configures build-completed events published over NATS.
type NotifyConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Every    time.Duration `yaml:"every,omitempty"`
}

// Load loads configuration from configPath. An empty path falls back to
// DefaultFileName in the working directory; a missing default file yields
// the built-in defaults rather than an error.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultFileName
	}

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse configuration").
				WithPath(configPath).
				Build()
		}
	case os.IsNotExist(err) && !explicit:
		// defaults only
	case os.IsNotExist(err):
		return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
			WithPath(configPath).
			Build()
	default:
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read configuration").
			WithPath(configPath).
			Build()
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Config{
		Source: "docs",
		Output: "public",
		Site: Site{
			Title:          "My Documentation",
			BasePath:       "/",
			Defaults:       map[string]string{"section": "docs"},
			Exclude:        []string{"drafts/**"},
			Parallelism:    4,
			HighlightStyle: "github",
			CheckLinks:     true,
		},
	}
	if err := ApplyDefaults(&example); err != nil {
		return err
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example configuration").Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryIO, "failed to write configuration").WithPath(configPath).Build()
	}
	return nil
}
