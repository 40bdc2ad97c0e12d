package compose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/nav"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/theme"
)

const testBody = "<p>Hello <em>world</em></p>"

func testPage(rel, title string) *content.Page {
	return content.NewPage(source.File{RelPath: rel}, &metadata.Result{Meta: metadata.PageMetadata{
		Title:   title,
		Publish: true,
		Extra:   map[string]string{"section": "guide"},
	}, Fingerprint: "fp-123"})
}

func defaultEngine(t *testing.T) *HTMLEngine {
	t.Helper()
	th, err := theme.Default()
	require.NoError(t, err)
	e, err := NewHTMLEngine(th.Templates)
	require.NoError(t, err)
	return e
}

func TestPathToRoot(t *testing.T) {
	require.Equal(t, "", PathToRoot("index.html"))
	require.Equal(t, "../", PathToRoot("guide/setup.html"))
	require.Equal(t, "../../", PathToRoot("a/b/c.html"))
}

func TestCompose_DefaultTheme(t *testing.T) {
	page := testPage("guide/setup.md", "Setup")
	page.Author = "Ada"
	page.LastModified = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	pages := []nav.Link{
		{ID: "index", Title: "Home", OutputPath: "index.html"},
		{ID: "guide/setup", Title: "Setup", OutputPath: "guide/setup.html"},
		{ID: "guide/faq", Title: "FAQ", OutputPath: "guide/faq.html"},
	}
	navCtx := nav.Context{
		Prev:        &pages[0],
		Next:        &pages[2],
		Breadcrumbs: []nav.Crumb{{ID: "index", Title: "Home", OutputPath: "index.html", HasPage: true}, {Title: "Guide"}},
	}

	c := New(defaultEngine(t), config.Site{Title: "Docs", BasePath: "/"}, pages, []string{"css/site.css"})
	doc, err := c.Compose(page, testBody, navCtx)
	require.NoError(t, err)

	require.Equal(t, "guide/setup.html", doc.Path)
	require.Contains(t, doc.HTML, "<title>Setup · Docs</title>")
	require.Contains(t, doc.HTML, "<p>Hello <em>world</em></p>")
	require.Contains(t, doc.HTML, `href="../css/site.css"`)
	require.Contains(t, doc.HTML, `class="site-title" href="../index.html"`)
	require.Contains(t, doc.HTML, `rel="prev" href="../index.html"`)
	require.Contains(t, doc.HTML, `rel="next" href="../guide/faq.html"`)
	require.Contains(t, doc.HTML, `<li class="current"><a href="../guide/setup.html">Setup</a></li>`)
	require.Contains(t, doc.HTML, `<span>Guide</span>`)
	require.Contains(t, doc.HTML, `content="fp-123"`)
	require.Contains(t, doc.HTML, "Last updated 2024-05-06")
	require.Contains(t, doc.HTML, "Ada")
}

func TestCompose_EscapesMetadata(t *testing.T) {
	page := testPage("a.md", `<script>x</script>`)
	c := New(defaultEngine(t), config.Site{Title: "Docs", BasePath: "/"}, nil, nil)

	doc, err := c.Compose(page, testBody, nav.Context{})
	require.NoError(t, err)
	require.NotContains(t, doc.HTML, "<script>x</script>")
	require.Contains(t, doc.HTML, "&lt;script&gt;")
}

func TestCompose_LeavesPageUnchanged(t *testing.T) {
	page := testPage("guide/setup.md", "Setup")
	before := *page
	c := New(defaultEngine(t), config.Site{Title: "Docs", BasePath: "/"}, nil, nil)

	doc, err := c.Compose(page, testBody, nav.Context{})
	require.NoError(t, err)
	require.Contains(t, doc.HTML, testBody)
	require.Equal(t, before, *page)
}

func TestCompose_TemplateOverride(t *testing.T) {
	e, err := NewHTMLEngine(map[string]string{
		"base.html": `{{block "main" .}}{{end}}`,
		"page.html": `{{template "base.html" .}}{{define "main"}}default:{{.Page.Title}}{{end}}`,
		"wide.html": `{{template "base.html" .}}{{define "main"}}wide:{{.Page.Title}}|{{index .Page.Extra "section"}}{{end}}`,
	})
	require.NoError(t, err)
	c := New(e, config.Site{Title: "Docs"}, nil, nil)

	page := testPage("a.md", "A")
	doc, err := c.Compose(page, testBody, nav.Context{})
	require.NoError(t, err)
	require.Equal(t, "default:A", doc.HTML)

	page.Meta.Template = "wide.html"
	doc, err = c.Compose(page, testBody, nav.Context{})
	require.NoError(t, err)
	require.Equal(t, "wide:A|guide", doc.HTML)
}

func TestCompose_UnknownTemplate(t *testing.T) {
	c := New(defaultEngine(t), config.Site{}, nil, nil)
	page := testPage("notes/a.md", "A")
	page.Meta.Template = "missing.html"

	_, err := c.Compose(page, testBody, nav.Context{})
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, errors.CategoryTemplate, ce.Category())
	require.Equal(t, "notes/a.md", ce.Path())
	name, _ := ce.Context().GetString(errors.KeyTemplate)
	require.Equal(t, "missing.html", name)
}

func TestCompose_UndefinedReference(t *testing.T) {
	e, err := NewHTMLEngine(map[string]string{
		"base.html": `{{.Page.Title}}`,
		"page.html": `{{.Page.Nope}}`,
	})
	require.NoError(t, err)
	c := New(e, config.Site{}, nil, nil)

	_, err = c.Compose(testPage("a.md", "A"), testBody, nav.Context{})
	require.Error(t, err)
	ce, _ := errors.AsClassified(err)
	require.Equal(t, errors.CategoryTemplate, ce.Category())
	require.Equal(t, "a.md", ce.Path())
}

func TestNewHTMLEngine_ParseError(t *testing.T) {
	_, err := NewHTMLEngine(map[string]string{
		"base.html": `ok`,
		"page.html": `{{if}}`,
	})
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, errors.CategoryTemplate, ce.Category())
	name, _ := ce.Context().GetString(errors.KeyTemplate)
	require.Equal(t, "page.html", name)
}

func TestHTMLEngine_PartialsAreShared(t *testing.T) {
	e, err := NewHTMLEngine(map[string]string{
		"base.html":    `[{{template "_head.html" .}}]{{block "main" .}}{{end}}`,
		"_head.html":   `head`,
		"page.html":    `{{template "base.html" .}}{{define "main"}}one{{end}}`,
		"landing.html": `{{template "base.html" .}}{{define "main"}}two{{end}}`,
	})
	require.NoError(t, err)
	require.True(t, e.Has("page.html"))
	require.True(t, e.Has("landing.html"))
	require.False(t, e.Has("_head.html"))

	out, err := e.Render("page.html", nil)
	require.NoError(t, err)
	require.Equal(t, "[head]one", out)
	out, err = e.Render("landing.html", nil)
	require.NoError(t, err)
	require.Equal(t, "[head]two", out)
}
