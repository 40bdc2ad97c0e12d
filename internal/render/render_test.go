package render

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func newTestRenderer(files fstest.MapFS) *Renderer {
	return New(Options{Highlighter: NewChromaHighlighter("github"), Sources: files})
}

// codeText returns the text content of the first <code> element.
func codeText(t *testing.T, markup string) string {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	require.NoError(t, err)

	var code *html.Node
	var find func(n *html.Node)
	find = func(n *html.Node) {
		if code != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "code" {
			code = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	require.NotNil(t, code, "no <code> element in %q", markup)

	var b strings.Builder
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(code)
	return b.String()
}

func TestRenderBody_CommonMarkAndGFM(t *testing.T) {
	r := newTestRenderer(nil)

	out, err := r.RenderBody("a.md", "# Hello World\n\n*a **b** c* and ~~gone~~\n\n| x | y |\n|---|---|\n| 1 | 2 |\n\n- [x] done\n", 1)
	require.NoError(t, err)
	require.Contains(t, out, `<h1 id="hello-world">Hello World</h1>`)
	require.Contains(t, out, `<em>a <strong>b</strong> c</em>`)
	require.Contains(t, out, `<del>gone</del>`)
	require.Contains(t, out, `<table>`)
	require.Contains(t, out, `type="checkbox"`)
}

func TestRenderBody_RawHTMLIsNotTrusted(t *testing.T) {
	r := newTestRenderer(nil)

	out, err := r.RenderBody("a.md", "<script>alert(1)</script>\n\nText with <b>inline</b> & more.\n", 1)
	require.NoError(t, err)
	require.NotContains(t, out, "<script>")
	require.NotContains(t, out, "<b>")
	require.Contains(t, out, "&amp; more")
}

func TestRenderBody_HighlightedCodeRoundTrips(t *testing.T) {
	r := newTestRenderer(nil)
	code := "package main\n\nfunc main() {\n\tprintln(\"<hi> & bye\")\n}\n"

	out, err := r.RenderBody("a.md", "```go\n"+code+"```\n", 1)
	require.NoError(t, err)
	require.Contains(t, out, `class="chroma"`)
	require.NotContains(t, out, "<hi>")
	require.Equal(t, strings.TrimRight(code, "\n"), strings.TrimRight(codeText(t, out), "\n"))
}

func TestRenderBody_UnknownLanguageFallsBack(t *testing.T) {
	r := newTestRenderer(nil)

	out, err := r.RenderBody("a.md", "```nosuchlang\n<a> & b\n```\n", 1)
	require.NoError(t, err)
	require.Contains(t, out, "<pre><code class=\"language-nosuchlang\">&lt;a&gt; &amp; b\n</code></pre>")

	out, err = r.RenderBody("a.md", "```\nplain\n```\n", 1)
	require.NoError(t, err)
	require.Contains(t, out, "<pre><code>plain\n</code></pre>")
}

func TestRenderBody_NoHighlighter(t *testing.T) {
	r := New(Options{})

	out, err := r.RenderBody("a.md", "```go\nx := 1\n```\n", 1)
	require.NoError(t, err)
	require.Contains(t, out, `<pre><code class="language-go">x := 1`)

	css, err := r.Stylesheet()
	require.NoError(t, err)
	require.Empty(t, css)
}

func TestRenderBody_RewritesContentLinks(t *testing.T) {
	r := newTestRenderer(nil)

	out, err := r.RenderBody("a.md", "[setup](guide/setup.md#install) [ext](https://example.com/x.md) ![img](img/logo.png) [top](#top)\n", 1)
	require.NoError(t, err)
	require.Contains(t, out, `href="guide/setup.html#install"`)
	require.Contains(t, out, `href="https://example.com/x.md"`)
	require.Contains(t, out, `src="img/logo.png"`)
	require.Contains(t, out, `href="#top"`)
}

func TestRewriteLink(t *testing.T) {
	tests := map[string]string{
		"a.md":               "a.html",
		"../b.markdown#sec":  "../b.html#sec",
		"dir/":               "dir/",
		"mailto:me@x.md":     "mailto:me@x.md",
		"//cdn.example/x.md": "//cdn.example/x.md",
		"file.txt":           "file.txt",
		"":                   "",
	}
	for in, want := range tests {
		require.Equal(t, want, RewriteLink(in), in)
	}
}

func TestRenderBody_UnterminatedFence(t *testing.T) {
	r := newTestRenderer(nil)

	_, err := r.RenderBody("guide/x.md", "intro\n\n```go\nfunc x() {}\n", 5)
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, errors.CategoryRender, ce.Category())
	require.Equal(t, "guide/x.md", ce.Path())
	require.Equal(t, 7, ce.Line())
}

func TestCheckFences(t *testing.T) {
	tests := []struct {
		name string
		body string
		line int // 0 when the body is valid
	}{
		{name: "closed", body: "```\ncode\n```\n"},
		{name: "longer tilde fence holds backticks", body: "~~~~\n```\n~~~~\n"},
		{name: "inline backticks", body: "inline ```code``` here\n"},
		{name: "fence in list item", body: "- item\n\n  ```sh\n  ls\n  ```\n"},
		{name: "fence in block quote", body: "> ```\n> code\n> ```\n"},
		{name: "indented code block", body: "Write a fence like this:\n\n    ```go\n\nThen close it.\n"},
		{name: "tab indented code block", body: "text\n\n\t```\n"},
		{name: "shorter closing run", body: "````\n```\n", line: 1},
		{name: "other fence character", body: "~~~\n```\n", line: 1},
		{name: "open in quote inside list item", body: "- item\n\n  > ```\n", line: 3},
		{name: "block quote ends first", body: "intro\n\n> ```\n> code\n\n```\n", line: 3},
		{name: "list item ends first", body: "1. step\n   ```sh\nls\n```\n", line: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkFences("a.md", tt.body, 1)
			if tt.line == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			ce, ok := errors.AsClassified(err)
			require.True(t, ok)
			require.Equal(t, errors.CategoryRender, ce.Category())
			require.Equal(t, "a.md", ce.Path())
			require.Equal(t, tt.line, ce.Line())
		})
	}
}

func TestRenderBody_Include(t *testing.T) {
	files := fstest.MapFS{
		"guide/snippet.go":  {Data: []byte("line 1\nline 2\nline 3\n")},
		"shared/common.txt": {Data: []byte("shared text\n")},
	}
	r := newTestRenderer(files)

	out, err := r.RenderBody("guide/page.md", "```go\n{{ #include snippet.go:2: }}\n```\n", 1)
	require.NoError(t, err)
	require.Equal(t, "line 2\nline 3", strings.TrimRight(codeText(t, out), "\n"))

	out, err = r.RenderBody("guide/page.md", "{{#include ../shared/common.txt}}\n", 1)
	require.NoError(t, err)
	require.Contains(t, out, "<p>shared text</p>")
}

func TestRenderBody_IncludeErrors(t *testing.T) {
	r := newTestRenderer(fstest.MapFS{"a.txt": {Data: []byte("x")}})

	_, err := r.RenderBody("page.md", "ok\n{{ #include missing.txt }}\n", 3)
	require.Error(t, err)
	ce, _ := errors.AsClassified(err)
	require.Equal(t, errors.CategoryRender, ce.Category())
	require.Equal(t, 4, ce.Line())

	_, err = r.RenderBody("guide/page.md", "{{ #include ../../etc/passwd }}\n", 1)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryRender))
}

func TestRenderBody_UnknownDirectiveLeftInPlace(t *testing.T) {
	r := newTestRenderer(fstest.MapFS{})

	out, err := r.RenderBody("page.md", "{{ #toc now }}\n", 1)
	require.NoError(t, err)
	require.Contains(t, out, "{{ #toc now }}")
}

func TestParseInclude(t *testing.T) {
	content := "line 1\nline 2\nline 3\nline 4\n"
	tests := []struct {
		args string
		want string
	}{
		{"f", "line 1\nline 2\nline 3\nline 4"},
		{"f:", "line 1\nline 2\nline 3\nline 4"},
		{"f:2", "line 2"},
		{"f:0", "line 1"},
		{"f:3:", "line 3\nline 4"},
		{"f:5:", ""},
		{"f::2", "line 1\nline 2"},
		{"f::0", ""},
		{"f:2:3", "line 2\nline 3"},
	}
	for _, tt := range tests {
		file, r, err := parseInclude(tt.args)
		require.NoError(t, err, tt.args)
		require.Equal(t, "f", file)
		require.Equal(t, tt.want, r.extract(content), tt.args)
	}

	for _, bad := range []string{"", ":3", "f:x", "f:1:y"} {
		_, _, err := parseInclude(bad)
		require.Error(t, err, bad)
	}
}

func TestStylesheet(t *testing.T) {
	css, err := newTestRenderer(nil).Stylesheet()
	require.NoError(t, err)
	require.Contains(t, css, ".chroma")
}
