package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

// TreeCmd implements the 'tree' command.
type TreeCmd struct {
	Source string `short:"s" help:"Source directory (overrides config)"`
	Drafts bool   `help:"Include unpublished pages"`
}

func (t *TreeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, func(cfg *config.Config) {
		if t.Source != "" {
			cfg.Source = t.Source
		}
		if t.Drafts {
			cfg.Site.IncludeDrafts = true
		}
	})
	if err != nil {
		return err
	}
	return RunTree(context.Background(), cfg, os.Stdout)
}

// RunTree prints the content hierarchy the build would render, in
// navigation order.
func RunTree(ctx context.Context, cfg *config.Config, out io.Writer) error {
	set, err := source.Load(ctx, cfg.Source, source.Options{Exclude: cfg.Site.Exclude})
	if err != nil {
		return err
	}

	opts := metadata.Options{SiteTitle: cfg.Site.Title, Defaults: cfg.Site.Defaults}
	pages := make([]*content.Page, 0, len(set.Files))
	for _, f := range set.Files {
		res, err := metadata.Extract(f.RelPath, f.Content, opts)
		if err != nil {
			return err
		}
		if !res.Meta.Publish && !cfg.Site.IncludeDrafts {
			continue
		}
		pages = append(pages, content.NewPage(f, res))
	}
	if len(pages) == 0 {
		return errors.EmptyProjectError("every content file is unpublished").WithPath(cfg.Source).Build()
	}

	tree, err := content.Build(pages)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, tree.Print(cfg.Site.Title))
	return err
}
