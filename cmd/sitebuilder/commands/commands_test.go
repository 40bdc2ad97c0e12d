package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return root
}

func testConfig(t *testing.T, src string) *config.Config {
	t.Helper()
	cfg := &config.Config{Source: src, Output: filepath.Join(t.TempDir(), "public")}
	require.NoError(t, config.ApplyDefaults(cfg))
	return cfg
}

var basicSite = map[string]string{
	"index.md":       "---\ntitle: Home\n---\nWelcome.\n",
	"guide/setup.md": "---\ntitle: Setup\n---\nInstall it.\n",
}

func TestParse_BuildFlags(t *testing.T) {
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{
		"-c", "site.yaml", "build",
		"-s", "src", "-o", "out", "--parallel", "3",
		"--notify-url", "nats://localhost:4222",
	})
	require.NoError(t, err)
	require.Equal(t, "build", ctx.Command())
	require.Equal(t, "site.yaml", cli.Config)
	require.Equal(t, "auto", cli.LogFormat)
	require.Equal(t, "src", cli.Build.Source)
	require.Equal(t, "out", cli.Build.Output)
	require.Equal(t, 3, cli.Build.Parallel)
	require.Equal(t, "nats://localhost:4222", cli.Build.NotifyURL)
}

func TestParse_WatchDurations(t *testing.T) {
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"watch", "--every", "15m", "--debounce", "200ms"})
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, cli.Watch.Every)
	require.Equal(t, 200*time.Millisecond, cli.Watch.Debounce)
}

func TestBuildCmd_ApplyOverrides(t *testing.T) {
	cfg := testConfig(t, "docs")
	cmd := &BuildCmd{
		SourceFlags:   SourceFlags{Source: "content"},
		Parallel:      8,
		Pushgateway:   "http://gw:9091",
		NotifySubject: "docs.built",
	}
	cmd.apply(cfg)

	require.Equal(t, "content", cfg.Source)
	require.Equal(t, 8, cfg.Site.Parallelism)
	require.Equal(t, "http://gw:9091", cfg.Metrics.Pushgateway)
	require.Equal(t, "docs.built", cfg.Notify.Subject)
	require.Empty(t, cfg.Notify.URL)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "json", false).Info("hello", "k", "v")
	require.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(&buf, "auto", false).Debug("hidden")
	require.Empty(t, buf.String())

	newLogger(&buf, "auto", true).Debug("shown")
	require.Contains(t, buf.String(), "msg=shown")
}

func TestRunBuild_WritesSite(t *testing.T) {
	cfg := testConfig(t, writeSite(t, basicSite))
	var out bytes.Buffer

	require.NoError(t, RunBuild(context.Background(), cfg, &out))
	require.Contains(t, out.String(), "outcome=success")
	require.FileExists(t, filepath.Join(cfg.Output, "index.html"))
	require.FileExists(t, filepath.Join(cfg.Output, "guide", "setup.html"))
	require.FileExists(t, filepath.Join(cfg.Output, site.ReportFileName))
}

func TestRunBuild_FailureListsIssues(t *testing.T) {
	cfg := testConfig(t, writeSite(t, map[string]string{
		"index.md":  "# Home\n",
		"broken.md": "---\ntitle: never closed\n",
	}))
	var out bytes.Buffer

	err := RunBuild(context.Background(), cfg, &out)
	require.Error(t, err)
	require.Contains(t, out.String(), "error: broken.md:1: [malformed_metadata]")
	require.Contains(t, out.String(), "outcome=failed")
	require.NoDirExists(t, cfg.Output)
	require.Equal(t, 11, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestRunBuild_PushesMetrics(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	cfg := testConfig(t, writeSite(t, basicSite))
	cfg.Metrics.Pushgateway = gw.URL

	require.NoError(t, RunBuild(context.Background(), cfg, io.Discard))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	require.True(t, strings.HasPrefix(paths[0], "PUT /metrics/job/sitebuilder/instance/"), paths[0])
}

func TestRunBuild_PushFailureDoesNotFailBuild(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gw.Close()

	cfg := testConfig(t, writeSite(t, basicSite))
	cfg.Metrics.Pushgateway = gw.URL

	require.NoError(t, RunBuild(context.Background(), cfg, io.Discard))
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1+retry.DefaultPolicy().MaxRetries, calls)
}

func TestRunBuild_NotifyConnectFailure(t *testing.T) {
	cfg := testConfig(t, writeSite(t, basicSite))
	cfg.Notify.URL = "nats://127.0.0.1:1"

	err := RunBuild(context.Background(), cfg, io.Discard)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
	require.NoDirExists(t, cfg.Output)
}

func TestBuildEvent(t *testing.T) {
	start := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	r := &site.Report{
		BuildID:      "b-1",
		Source:       "docs",
		Output:       "public",
		Outcome:      site.OutcomeWarning,
		Documents:    4,
		Skipped:      []string{"draft.md"},
		Issues:       []site.Issue{{Severity: site.SeverityWarning, Category: "validation", Message: "x"}},
		ManifestHash: "abc",
		Start:        start,
		End:          start.Add(1500 * time.Millisecond),
	}

	ev := buildEvent(r)
	require.Equal(t, "b-1", ev.BuildID)
	require.Equal(t, "warning", ev.Outcome)
	require.Equal(t, 4, ev.Pages)
	require.Equal(t, 1, ev.Skipped)
	require.Equal(t, 1, ev.Issues)
	require.Equal(t, "abc", ev.ManifestHash)
	require.Equal(t, int64(1500), ev.DurationMS)
	require.Equal(t, r.End, ev.Timestamp)
}

func TestRunTree(t *testing.T) {
	cfg := testConfig(t, writeSite(t, map[string]string{
		"index.md":       "---\ntitle: Home\n---\n",
		"guide/setup.md": "---\ntitle: Setup\norder: 2\n---\n",
		"guide/intro.md": "---\ntitle: Intro\norder: 1\n---\n",
		"draft.md":       "---\ntitle: Draft\npublish: false\n---\n",
	}))
	var out bytes.Buffer

	require.NoError(t, RunTree(context.Background(), cfg, &out))
	text := out.String()
	require.Contains(t, text, "Home (index.md)")
	require.Contains(t, text, "guide/")
	require.NotContains(t, text, "Draft")
	require.Contains(t, text, "Intro (guide/intro.md) [1]")
	require.Contains(t, text, "Setup (guide/setup.md) [2]")
	require.Less(t, strings.Index(text, "Intro (guide/intro.md) [1]"), strings.Index(text, "Setup (guide/setup.md) [2]"))

	cfg.Site.IncludeDrafts = true
	out.Reset()
	require.NoError(t, RunTree(context.Background(), cfg, &out))
	require.Contains(t, out.String(), "Draft (draft.md)")
}

func TestRunTree_EmptyProject(t *testing.T) {
	cfg := testConfig(t, writeSite(t, map[string]string{
		"draft.md": "---\npublish: false\n---\n",
	}))
	err := RunTree(context.Background(), cfg, io.Discard)
	require.True(t, errors.HasCategory(err, errors.CategoryEmptyProject))
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFileName)
	var out bytes.Buffer

	require.NoError(t, RunInit(path, false, &out))
	require.Contains(t, out.String(), path)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "My Documentation", cfg.Site.Title)

	require.Error(t, RunInit(path, false, io.Discard))
	require.NoError(t, RunInit(path, true, io.Discard))
}

func TestRunWatch_RebuildsOnChange(t *testing.T) {
	src := writeSite(t, basicSite)
	cfg := testConfig(t, src)
	cfg.Watch.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunWatch(ctx, cfg, "", io.Discard) }()

	index := filepath.Join(cfg.Output, "index.html")
	require.Eventually(t, func() bool {
		_, err := os.Stat(index)
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		// Rewritten every tick so a change lands after the watches exist.
		if err := os.WriteFile(filepath.Join(src, "index.md"), []byte("---\ntitle: Home\n---\nfreshly edited\n"), 0o600); err != nil {
			return false
		}
		data, err := os.ReadFile(index)
		return err == nil && strings.Contains(string(data), "freshly edited")
	}, 10*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestServeMetrics(t *testing.T) {
	cfg := testConfig(t, writeSite(t, basicSite))
	b, err := newSiteBuilder(cfg, io.Discard)
	require.NoError(t, err)
	defer b.close()

	_, err = b.build(context.Background())
	require.NoError(t, err)

	addr, stop, err := serveMetrics("127.0.0.1:0", b)
	require.NoError(t, err)
	defer stop()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics") //nolint:noctx // test helper
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		data, err := io.ReadAll(resp.Body)
		body = string(data)
		return err == nil && resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
	require.Contains(t, body, `sitebuilder_build_outcomes_total{outcome="success"} 1`)
	require.Contains(t, body, "sitebuilder_pages_rendered_total 2")
}
