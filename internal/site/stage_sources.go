package site

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

func stageLoadSources(ctx context.Context, bs *buildState) error {
	if err := config.CheckOutputRoot(bs.src, bs.dst); err != nil {
		return err
	}
	exclude := append(append([]string{}, bs.cfg.Exclude...), outputExcludes(bs.src, bs.dst)...)
	set, err := source.Load(ctx, bs.src, source.Options{Exclude: exclude})
	if err != nil {
		return err
	}
	bs.set = set
	bs.report.Files = len(set.Files)
	bs.report.Assets = len(set.Assets)
	return nil
}

// stageExtractMetadata stops at the first malformed file. Unpublished
// pages are dropped here and listed in the report.
func stageExtractMetadata(ctx context.Context, bs *buildState) error {
	opts := metadata.Options{SiteTitle: bs.cfg.Title, Defaults: bs.cfg.Defaults}
	pages := make([]*content.Page, 0, len(bs.set.Files))
	for _, f := range bs.set.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := metadata.Extract(f.RelPath, f.Content, opts)
		if err != nil {
			return err
		}
		if !res.Meta.Publish && !bs.cfg.IncludeDrafts {
			bs.report.Skipped = append(bs.report.Skipped, f.RelPath)
			slog.Info("Skipping unpublished page", logfields.Path(f.RelPath))
			continue
		}
		pages = append(pages, content.NewPage(f, res))
	}
	bs.pages = pages
	return nil
}
