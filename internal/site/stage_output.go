package site

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/linkcheck"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
)

// stageWriteOutput stages documents, theme files, generated CSS, source
// assets and the manifest. Source assets never overwrite generated files.
func stageWriteOutput(ctx context.Context, bs *buildState) error {
	w, err := output.NewWriter(bs.dst)
	if err != nil {
		return err
	}
	bs.writer = w

	manifest := output.Manifest{BuildID: bs.report.BuildID}
	pages := bs.tree.Pages()
	for i, doc := range bs.docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.WriteDocument(doc); err != nil {
			return err
		}
		p := pages[i]
		manifest.Pages = append(manifest.Pages, output.ManifestPage{
			ID:          p.ID,
			Source:      p.Source.RelPath,
			Output:      doc.Path,
			Title:       p.Meta.Title,
			Fingerprint: p.Fingerprint,
		})
	}
	bs.report.Documents = len(bs.docs)

	for _, f := range bs.theme.StaticFiles() {
		if err := w.WriteFile(f.Path, f.Data); err != nil {
			return err
		}
		manifest.Assets = append(manifest.Assets, output.ManifestAsset{Output: f.Path})
	}
	if bs.highlightCSS != "" {
		if err := w.WriteFile(highlightCSS, []byte(bs.highlightCSS)); err != nil {
			return err
		}
		manifest.Assets = append(manifest.Assets, output.ManifestAsset{Output: highlightCSS})
	}

	for _, a := range bs.set.Assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.Has(a.RelPath) || a.RelPath == output.ManifestFileName || a.RelPath == ReportFileName {
			bs.report.addWarning(StageWriteOutput, errors.ValidationError("asset collides with a generated file and was not copied").
				WithPath(a.RelPath).
				Warning().
				Build())
			continue
		}
		if err := w.CopyAsset(a.Path, a.RelPath); err != nil {
			return err
		}
		manifest.Assets = append(manifest.Assets, output.ManifestAsset{Output: a.RelPath, Source: a.RelPath})
	}

	manifest.Finalize()
	if err := w.WriteJSON(output.ManifestFileName, &manifest); err != nil {
		return err
	}
	bs.report.ManifestHash = manifest.Hash
	slog.Info("Output staged", logfields.Count(len(w.Written())), logfields.Output(w.Root()))
	return nil
}

// stageLinkCheck reports links that do not resolve to a written file. It
// only ever produces warnings.
func stageLinkCheck(_ context.Context, bs *buildState) error {
	checker := &linkcheck.Checker{BasePath: bs.cfg.BasePath, Exists: bs.writer.Has}
	pages := bs.tree.Pages()
	broken := 0
	for i, doc := range bs.docs {
		src := pages[i].Source.RelPath
		found, err := checker.Check(doc.Path, strings.NewReader(doc.HTML))
		if err != nil {
			bs.report.addWarning(StageLinkCheck, errors.WrapError(err, errors.CategoryValidation, "cannot check links").WithPath(src).Build())
			continue
		}
		for _, b := range found {
			bs.report.addWarning(StageLinkCheck, errors.ValidationError(fmt.Sprintf("broken link %s: %s", b.URL, b.Reason)).
				WithPath(src).
				WithContext("document", b.Page).
				WithContext("target", b.Target).
				Build())
			broken++
		}
	}
	if broken > 0 {
		se := newWarnStageError(StageLinkCheck, fmt.Errorf("%d broken links", broken))
		se.reported = true
		return se
	}
	return nil
}
