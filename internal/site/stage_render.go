package site

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/compose"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/nav"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/theme"
)

// highlightCSS is the output path of the highlighter stylesheet.
const highlightCSS = "css/highlight.css"

// stageRenderPages renders and composes every page. Failures do not stop
// other pages; all of them are reported before the stage fails.
func stageRenderPages(ctx context.Context, bs *buildState) error {
	th, err := theme.Load(bs.cfg.ThemeDir)
	if err != nil {
		return err
	}
	engine := bs.opts.engine
	if engine == nil {
		if engine, err = compose.NewHTMLEngine(th.Templates); err != nil {
			return attachSelectingPage(err, bs.tree.Pages())
		}
	}
	hl := bs.opts.highlighter
	if hl == nil {
		hl = render.NewChromaHighlighter(bs.cfg.HighlightStyle)
	}
	body := render.New(render.Options{Highlighter: hl, Sources: os.DirFS(bs.set.Root)})

	css, err := body.Stylesheet()
	if err != nil {
		return err
	}
	stylesheets := th.Stylesheets()
	if css != "" {
		stylesheets = append(stylesheets, highlightCSS)
	}
	bs.theme = th
	bs.highlightCSS = css

	comp := compose.New(engine, bs.cfg, bs.nav.Pages(), stylesheets)
	pages := bs.tree.Pages()
	docs := make([]output.Document, len(pages))
	errs := make([]error, len(pages))

	work := func(i int) {
		docs[i], errs[i] = renderPage(body, comp, bs.nav, pages[i])
	}

	workers := bs.cfg.Parallelism
	if workers <= 1 {
		for i := range pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			work(i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range pages {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				work(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	var failed []error
	for _, err := range errs {
		if err != nil {
			bs.report.addError(StageRenderPages, err)
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		se := newFatalStageError(StageRenderPages, stderrors.Join(failed...))
		se.reported = true
		return se
	}

	bs.docs = docs
	slog.Info("Pages rendered", logfields.Count(len(docs)), slog.Int("workers", max(workers, 1)))
	return nil
}

func renderPage(body *render.Renderer, comp *compose.Compositor, ix *nav.Index, page *content.Page) (output.Document, error) {
	html, err := body.Render(page)
	if err != nil {
		return output.Document{}, err
	}
	navCtx, _ := ix.For(page.ID)
	return comp.Compose(page, html, navCtx)
}

// attachSelectingPage adds the first page that uses the template named by a
// template parse error as the error's path. base.html and partials are used
// by every page.
func attachSelectingPage(err error, pages []*content.Page) error {
	ce, ok := errors.AsClassified(err)
	if !ok || ce.Path() != "" {
		return err
	}
	name, _ := ce.Context().GetString(errors.KeyTemplate)
	if name == "" {
		return err
	}
	shared := name == "base.html" || strings.HasPrefix(name, "_")
	for _, page := range pages {
		selected := page.Meta.Template
		if selected == "" {
			selected = compose.DefaultTemplate
		}
		if shared || selected == name {
			return ce.WithContext(errors.KeyPath, page.Source.RelPath)
		}
	}
	return err
}
