package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateSite(); err != nil {
		return err
	}
	if err := cv.validatePaths(); err != nil {
		return err
	}
	if err := cv.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validateSite() error {
	site := cv.config.Site
	if !strings.HasPrefix(site.BasePath, "/") {
		return errors.ConfigError(fmt.Sprintf("site.base_path must start with '/': %q", site.BasePath)).Build()
	}
	if site.Parallelism < 0 {
		return errors.ConfigError(fmt.Sprintf("site.parallelism must not be negative: %d", site.Parallelism)).Build()
	}
	for _, pattern := range site.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return errors.ConfigError(fmt.Sprintf("invalid exclude pattern: %q", pattern)).Build()
		}
	}
	for key := range site.Defaults {
		if strings.TrimSpace(key) == "" {
			return errors.ConfigError("site.defaults contains an empty key").Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validatePaths() error {
	return CheckOutputRoot(cv.config.Source, cv.config.Output)
}

func (cv *configurationValidator) validateMetrics() error {
	if gw := cv.config.Metrics.Pushgateway; gw != "" {
		u, err := url.Parse(gw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.ConfigError(fmt.Sprintf("metrics.pushgateway must be an absolute URL: %q", gw)).Build()
		}
	}
	return nil
}
