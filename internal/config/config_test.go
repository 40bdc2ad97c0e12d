package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "site:\n  title: Handbook\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Handbook", cfg.Site.Title)
	require.Equal(t, "docs", cfg.Source)
	require.Equal(t, "public", cfg.Output)
	require.Equal(t, "/", cfg.Site.BasePath)
	require.Equal(t, 1, cfg.Site.Parallelism)
	require.Equal(t, "github", cfg.Site.HighlightStyle)
	require.Equal(t, "sitebuilder.build.completed", cfg.Notify.Subject)
	require.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_ParsesAllSiteFields(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
source: content
output: out
site:
  title: Guide
  base_path: /docs
  theme_dir: theme
  defaults:
    section: guide
  exclude:
    - "drafts/**"
  parallelism: 4
  highlight_style: monokai
  check_links: true
  git_info: true
  include_drafts: true
watch:
  debounce: 2s
  every: 1m
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "content", cfg.Source)
	require.Equal(t, "out", cfg.Output)
	require.Equal(t, "/docs/", cfg.Site.BasePath)
	require.Equal(t, "theme", cfg.Site.ThemeDir)
	require.Equal(t, map[string]string{"section": "guide"}, cfg.Site.Defaults)
	require.Equal(t, []string{"drafts/**"}, cfg.Site.Exclude)
	require.Equal(t, 4, cfg.Site.Parallelism)
	require.Equal(t, "monokai", cfg.Site.HighlightStyle)
	require.True(t, cfg.Site.CheckLinks)
	require.True(t, cfg.Site.GitInfo)
	require.True(t, cfg.Site.IncludeDrafts)
	require.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	require.Equal(t, time.Minute, cfg.Watch.Every)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("SITE_TITLE", "From Env")
	dir := t.TempDir()
	path := writeConfig(t, dir, "site:\n  title: ${SITE_TITLE}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "From Env", cfg.Site.Title)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SB_KEEP", "process")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SB_KEEP=file\nSB_NEW=file-title\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SB_NEW") })
	writeConfig(t, dir, "site:\n  title: ${SB_NEW}\n  description: ${SB_KEEP}\n")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "file-title", cfg.Site.Title)
	require.Equal(t, "process", os.Getenv("SB_KEEP"))
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "Documentation", cfg.Site.Title)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "site: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		require.NoError(t, ApplyDefaults(cfg))
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative parallelism", func(c *Config) { c.Site.Parallelism = -1 }},
		{"relative base path", func(c *Config) { c.Site.BasePath = "docs/" }},
		{"bad exclude glob", func(c *Config) { c.Site.Exclude = []string{"[unclosed"} }},
		{"empty defaults key", func(c *Config) { c.Site.Defaults = map[string]string{" ": "x"} }},
		{"same source and output", func(c *Config) { c.Output = c.Source }},
		{"output spelled differently", func(c *Config) { c.Source, c.Output = "docs", "./docs/" }},
		{"output is working directory", func(c *Config) { c.Source, c.Output = "docs", "." }},
		{"output is parent of source", func(c *Config) { c.Source, c.Output = "site/docs", "site" }},
		{"staging directory holds source", func(c *Config) { c.Source, c.Output = "public.stage/docs", "public" }},
		{"relative pushgateway", func(c *Config) { c.Metrics.Pushgateway = "gateway:9091" }},
	}

	require.NoError(t, ValidateConfig(base()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryConfig))
		})
	}
}

func TestCheckOutputRoot(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(src, 0o750))

	tests := []struct {
		name string
		dst  string
		ok   bool
	}{
		{"sibling", filepath.Join(root, "public"), true},
		{"inside source", filepath.Join(src, "public"), true},
		{"similar prefix", src + "-site", true},
		{"same directory", src, false},
		{"unclean spelling", filepath.Join(root, "x", "..", "docs") + string(filepath.Separator), false},
		{"parent", root, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOutputRoot(src, tt.dst)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryConfig))
		})
	}
}

func TestCheckOutputRoot_WriterSiblings(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"public.stage", "public.prev"} {
		src := filepath.Join(root, name, "docs")
		require.NoError(t, os.MkdirAll(src, 0o750))
		require.Error(t, CheckOutputRoot(src, filepath.Join(root, "public")), name)
	}
}

func TestCheckOutputRoot_FollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(src, 0o750))
	link := filepath.Join(root, "link")
	if err := os.Symlink(root, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	require.Error(t, CheckOutputRoot(src, link))
	require.NoError(t, CheckOutputRoot(src, filepath.Join(link, "public")))
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "My Documentation", cfg.Site.Title)
	require.Equal(t, []string{"drafts/**"}, cfg.Site.Exclude)
}
