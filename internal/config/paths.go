package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// CheckOutputRoot rejects an output directory whose replacement would
// remove the sources. The output root and the staging and backup
// directories next to it must neither be src nor contain it.
func CheckOutputRoot(src, dst string) error {
	srcAbs, err := absPath(src)
	if err != nil {
		return err
	}
	dstAbs, err := absPath(dst)
	if err != nil {
		return err
	}
	for _, dir := range []string{dstAbs, dstAbs + ".stage", dstAbs + ".prev"} {
		if within(srcAbs, dir) {
			return errors.ConfigError(fmt.Sprintf("output directory %q would replace source directory %q", dst, src)).
				WithPath(dst).
				WithContext(errors.KeyOtherPath, src).
				Build()
		}
	}
	return nil
}

// absPath returns the cleaned absolute form of p with symlinks resolved
// when p exists.
func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryConfig, "cannot resolve path").WithPath(p).Build()
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	// A missing leaf is common for the output root; resolve its parent.
	if parent, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(parent, filepath.Base(abs)), nil
	}
	return abs, nil
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
