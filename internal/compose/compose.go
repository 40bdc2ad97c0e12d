// Package compose wraps rendered page bodies in site templates.
package compose

import (
	"html/template"
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/nav"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
)

// DefaultTemplate is used when a page does not name one.
const DefaultTemplate = "page.html"

// Data is the template context of one page.
type Data struct {
	Site        SiteView
	Page        PageView
	Body        template.HTML
	Nav         NavView
	PathToRoot  string
	Stylesheets []string
}

// SiteView is the site-wide part of the context.
type SiteView struct {
	Title    string
	BasePath string
	// Home links the first page in traversal order, the root index page
	// when there is one.
	Home  string
	Pages []LinkView
}

// PageView describes the page being composed.
type PageView struct {
	ID           string
	Title        string
	Description  string
	Date         string
	Extra        map[string]string
	OutputPath   string
	Fingerprint  string
	LastModified time.Time
	Author       string
}

// LinkView is a link relative to the page being composed.
type LinkView struct {
	ID      string
	Title   string
	URL     string
	Current bool
}

// CrumbView is a breadcrumb relative to the page being composed.
type CrumbView struct {
	Title   string
	URL     string
	HasPage bool
}

// NavView holds the page's navigation.
type NavView struct {
	Prev        *LinkView
	Next        *LinkView
	Breadcrumbs []CrumbView
}

// Compositor composes pages. It only reads shared state and may be used
// from several goroutines.
type Compositor struct {
	engine      Engine
	site        config.Site
	pages       []nav.Link
	stylesheets []string
}

// New creates a Compositor. pages is the flat traversal list exposed to
// templates as .Site.Pages; stylesheets are output-relative CSS paths.
func New(engine Engine, site config.Site, pages []nav.Link, stylesheets []string) *Compositor {
	return &Compositor{engine: engine, site: site, pages: pages, stylesheets: stylesheets}
}

// Compose renders page around its rendered body fragment into a document.
func (c *Compositor) Compose(page *content.Page, body string, navCtx nav.Context) (output.Document, error) {
	name := page.Meta.Template
	if name == "" {
		name = DefaultTemplate
	}
	if !c.engine.Has(name) {
		return output.Document{}, errors.TemplateError("unknown template "+name).
			WithPath(page.Source.RelPath).
			WithContext(errors.KeyTemplate, name).
			Build()
	}

	html, err := c.engine.Render(name, c.data(page, body, navCtx))
	if err != nil {
		return output.Document{}, errors.WrapError(err, errors.CategoryTemplate, "template execution failed").
			WithPath(page.Source.RelPath).
			WithContext(errors.KeyTemplate, name).
			Build()
	}
	return output.Document{Path: page.OutputPath, HTML: html}, nil
}

func (c *Compositor) data(page *content.Page, body string, navCtx nav.Context) Data {
	root := PathToRoot(page.OutputPath)

	pages := make([]LinkView, 0, len(c.pages))
	for _, l := range c.pages {
		pages = append(pages, LinkView{ID: l.ID, Title: l.Title, URL: root + l.OutputPath, Current: l.ID == page.ID})
	}

	home := root + "index.html"
	if len(pages) > 0 {
		home = pages[0].URL
	}

	nv := NavView{}
	if navCtx.Prev != nil {
		nv.Prev = &LinkView{ID: navCtx.Prev.ID, Title: navCtx.Prev.Title, URL: root + navCtx.Prev.OutputPath}
	}
	if navCtx.Next != nil {
		nv.Next = &LinkView{ID: navCtx.Next.ID, Title: navCtx.Next.Title, URL: root + navCtx.Next.OutputPath}
	}
	for _, cr := range navCtx.Breadcrumbs {
		view := CrumbView{Title: cr.Title, HasPage: cr.HasPage}
		if cr.HasPage {
			view.URL = root + cr.OutputPath
		}
		nv.Breadcrumbs = append(nv.Breadcrumbs, view)
	}

	return Data{
		Site: SiteView{Title: c.site.Title, BasePath: c.site.BasePath, Home: home, Pages: pages},
		Page: PageView{
			ID:           page.ID,
			Title:        page.Meta.Title,
			Description:  page.Meta.Description,
			Date:         page.Meta.Date,
			Extra:        page.Meta.Extra,
			OutputPath:   page.OutputPath,
			Fingerprint:  page.Fingerprint,
			LastModified: page.LastModified,
			Author:       page.Author,
		},
		Body:        template.HTML(body), //nolint:gosec // renderer output is sanitized markup
		Nav:         nv,
		PathToRoot:  root,
		Stylesheets: c.stylesheets,
	}
}

// PathToRoot returns the relative prefix from an output document to the
// output root: "" for "index.html", "../" for "guide/setup.html".
func PathToRoot(outputPath string) string {
	dir := path.Dir(path.Clean(outputPath))
	if dir == "." || dir == "/" {
		return ""
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1)
}
