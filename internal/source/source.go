// Package source discovers the content files and static assets of a site.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// File is a discovered content file. It is immutable once read.
type File struct {
	Path    string // Absolute path to the file
	RelPath string // Slash-separated path relative to the source root
	Content []byte // Raw file content
	Index   int    // Position in canonical order
}

// Asset is a non-content file copied verbatim to the output.
type Asset struct {
	Path    string
	RelPath string
}

// Set is the result of loading a source tree.
type Set struct {
	Root   string
	Files  []File
	Assets []Asset
}

// Options control discovery.
type Options struct {
	// Exclude holds doublestar globs matched against slash-separated relative paths.
	Exclude []string
}

// IsContentFile reports whether name carries a content file extension.
func IsContentFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return true
	}
	return false
}

// Load walks root and reads every content file, returning them in canonical
// order: byte-wise comparison of the relative path.
func Load(ctx context.Context, root string, opts Options) (*Set, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryIO, "cannot resolve source root").WithPath(root).Build()
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryIO, "cannot read source root").WithPath(root).Build()
	}
	if !info.IsDir() {
		return nil, errors.WrapError(ErrRootNotDirectory, errors.CategoryIO, "cannot read source root").WithPath(root).Build()
	}

	set := &Set{Root: abs}
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == abs {
			return nil
		}

		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(d.Name(), ".") || excluded(opts.Exclude, rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() && !linksToFile(p) {
			slog.Warn("Skipping entry that is not a regular file", logfields.Path(rel))
			return nil
		}

		if IsContentFile(rel) {
			set.Files = append(set.Files, File{Path: p, RelPath: rel})
		} else {
			set.Assets = append(set.Assets, Asset{Path: p, RelPath: rel})
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.WrapError(err, errors.CategoryIO, "source walk failed").WithPath(root).Build()
	}

	if len(set.Files) == 0 {
		return nil, errors.WrapError(ErrNoContent, errors.CategoryEmptyProject, "nothing to build").WithPath(root).Build()
	}

	sort.Slice(set.Files, func(i, j int) bool { return set.Files[i].RelPath < set.Files[j].RelPath })
	sort.Slice(set.Assets, func(i, j int) bool { return set.Assets[i].RelPath < set.Assets[j].RelPath })

	for i := range set.Files {
		content, err := os.ReadFile(set.Files[i].Path)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryIO, "cannot read content file").
				WithPath(set.Files[i].RelPath).
				Build()
		}
		set.Files[i].Content = content
		set.Files[i].Index = i
		slog.Debug("Discovered file", logfields.Path(set.Files[i].RelPath))
	}

	slog.Info("Sources loaded",
		logfields.Source(abs),
		logfields.Count(len(set.Files)),
		slog.Int("assets", len(set.Assets)))
	return set, nil
}

// linksToFile reports whether p is a symlink resolving to a regular file.
// Links to directories are not followed.
func linksToFile(p string) bool {
	fi, err := os.Lstat(p)
	if err != nil || fi.Mode()&fs.ModeSymlink == 0 {
		return false
	}
	target, err := os.Stat(p)
	return err == nil && target.Mode().IsRegular()
}

func excluded(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer for debug output.
func (s *Set) String() string {
	return fmt.Sprintf("source.Set{root=%s files=%d assets=%d}", s.Root, len(s.Files), len(s.Assets))
}
