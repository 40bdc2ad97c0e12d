// Package render converts Markdown page bodies to HTML fragments.
package render

import (
	"bytes"
	"io/fs"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Options configure a Renderer.
type Options struct {
	// Highlighter handles fenced code blocks; nil disables highlighting.
	Highlighter Highlighter
	// Sources is the source root used to resolve include directives.
	Sources fs.FS
}

// Renderer turns page bodies into HTML. It holds no per-page state and may
// be used from several goroutines.
type Renderer struct {
	md          goldmark.Markdown
	highlighter Highlighter
	sources     fs.FS
}

// New creates a Renderer. Raw HTML in bodies is never passed through.
func New(opts Options) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(linkRewriter{}, 100)),
		),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(&codeBlockRenderer{highlighter: opts.Highlighter}, 200)),
		),
	)
	return &Renderer{md: md, highlighter: opts.Highlighter, sources: opts.Sources}
}

// Render returns the HTML fragment for a page body.
func (r *Renderer) Render(page *content.Page) (string, error) {
	return r.RenderBody(page.Source.RelPath, page.Body, page.BodyLine)
}

// RenderBody renders body, which starts on file line bodyLine of relPath.
func (r *Renderer) RenderBody(relPath, body string, bodyLine int) (string, error) {
	if bodyLine < 1 {
		bodyLine = 1
	}
	if err := checkFences(relPath, body, bodyLine); err != nil {
		return "", err
	}
	expanded, err := expandIncludes(r.sources, relPath, body, bodyLine)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(expanded), &buf); err != nil {
		return "", errors.WrapError(err, errors.CategoryRender, "markdown conversion failed").
			WithPath(relPath).
			Build()
	}
	return buf.String(), nil
}

// Stylesheet returns the CSS that goes with the highlighter's markup, or ""
// when the highlighter ships none.
func (r *Renderer) Stylesheet() (string, error) {
	sw, ok := r.highlighter.(StylesheetWriter)
	if !ok {
		return "", nil
	}
	var buf bytes.Buffer
	if err := sw.WriteCSS(&buf); err != nil {
		return "", errors.WrapError(err, errors.CategoryRender, "cannot generate highlight stylesheet").Build()
	}
	return buf.String(), nil
}
