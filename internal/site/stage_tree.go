package site

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/gitinfo"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/nav"
)

func stageBuildTree(_ context.Context, bs *buildState) error {
	if len(bs.pages) == 0 {
		return errors.EmptyProjectError("every content file is unpublished").WithPath(bs.src).Build()
	}
	tree, err := content.Build(bs.pages)
	if err != nil {
		return err
	}
	bs.tree = tree
	bs.report.Pages = len(bs.pages)
	return nil
}

// stageGitInfo annotates pages with their last commit. A source tree outside
// any repository only produces a warning.
func stageGitInfo(ctx context.Context, bs *buildState) error {
	rels := make([]string, len(bs.pages))
	for i, p := range bs.pages {
		rels[i] = p.Source.RelPath
	}
	info, err := gitinfo.Lookup(ctx, bs.set.Root, rels)
	if err != nil {
		if stderrors.Is(err, gitinfo.ErrNotRepository) {
			return newWarnStageError(StageGitInfo,
				errors.WrapError(err, errors.CategoryConfig, "git info disabled for this build").WithPath(bs.src).Build())
		}
		return newWarnStageError(StageGitInfo, errors.WrapError(err, errors.CategoryIO, "cannot read git history").Build())
	}
	for _, p := range bs.pages {
		if i, ok := info[p.Source.RelPath]; ok {
			p.LastModified = i.LastModified
			p.Author = i.Author
		}
	}
	slog.Debug("Git info applied", logfields.Count(len(info)))
	return nil
}

func stageResolveNavigation(_ context.Context, bs *buildState) error {
	ix, err := nav.Resolve(bs.tree, bs.cfg.Title)
	if err != nil {
		return err
	}
	if ix.Len() != len(bs.pages) {
		return errors.InternalError(fmt.Sprintf("navigation covers %d pages, tree holds %d", ix.Len(), len(bs.pages))).Build()
	}
	bs.nav = ix
	return nil
}
