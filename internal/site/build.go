// Package site runs the build pipeline: it turns a source tree into a
// static website in a single forward pass over a fixed list of stages.
package site

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/nav"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/theme"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

// buildState carries data between stages. Each stage only reads what
// earlier stages produced.
type buildState struct {
	src      string
	dst      string
	cfg      config.Site
	opts     options
	recorder metrics.Recorder
	report   *Report

	set    *source.Set
	pages  []*content.Page
	tree   *content.Tree
	nav    *nav.Index
	docs   []output.Document // traversal order
	writer *output.Writer

	theme        *theme.Theme
	highlightCSS string
}

// Build converts the source tree at src into a site at dst. The returned
// report is never nil; err is non-nil when the build failed, in which case
// dst is left exactly as it was.
func Build(ctx context.Context, src, dst string, cfg config.Site, opts ...Option) (*Report, error) {
	o := options{recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.buildID == "" {
		o.buildID = uuid.NewString()
	}

	bs := &buildState{
		src:      src,
		dst:      dst,
		cfg:      cfg,
		opts:     o,
		recorder: o.recorder,
		report:   newReport(o.buildID, version.Version, src, dst),
	}
	log := slog.With(logfields.BuildID(o.buildID))
	log.Info("Build started", logfields.Source(src), logfields.Output(dst))

	stages := NewPipeline().
		Add(StageLoadSources, stageLoadSources).
		Add(StageExtractMetadata, stageExtractMetadata).
		Add(StageBuildTree, stageBuildTree).
		AddIf(cfg.GitInfo, StageGitInfo, stageGitInfo).
		Add(StageResolveNavigation, stageResolveNavigation).
		Add(StageRenderPages, stageRenderPages).
		Add(StageWriteOutput, stageWriteOutput).
		AddIf(cfg.CheckLinks, StageLinkCheck, stageLinkCheck).
		Build()

	err := runStages(ctx, bs, stages)
	if err == nil {
		err = bs.commit()
	}
	if err != nil && bs.writer != nil {
		bs.writer.Abort()
	}
	bs.finish(err)

	if err != nil {
		log.Error("Build failed", slog.String("summary", bs.report.Summary()), logfields.Error(err))
		return bs.report, err
	}
	log.Info("Build finished", slog.String("summary", bs.report.Summary()))
	return bs.report, nil
}

// commit writes the report into the stage and promotes it.
func (bs *buildState) commit() error {
	if bs.writer == nil {
		return errors.InternalError("no output was staged").Build()
	}
	snapshot := *bs.report
	snapshot.finish(nil)
	if err := bs.writer.WriteJSON(ReportFileName, &snapshot); err != nil {
		bs.report.addError(StageWriteOutput, err)
		return err
	}
	if err := bs.writer.Commit(); err != nil {
		bs.report.addError(StageWriteOutput, err)
		return err
	}
	return nil
}

func (bs *buildState) finish(err error) {
	r := bs.report
	r.finish(err)
	bs.recorder.ObserveBuildDuration(r.Duration())
	bs.recorder.IncBuildOutcome(string(r.Outcome))
	bs.recorder.AddPagesRendered(r.Documents)
	for _, i := range r.Issues {
		bs.recorder.IncIssue(i.Category)
	}
}

// outputExcludes returns source exclusion patterns for dst and its
// siblings created by the writer when they live inside src.
func outputExcludes(src, dst string) []string {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return nil
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(srcAbs, dstAbs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	rel = filepath.ToSlash(rel)
	return []string{rel, rel + ".stage", rel + ".prev"}
}
