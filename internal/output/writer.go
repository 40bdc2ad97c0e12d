// Package output writes a build into a staging directory and promotes it to
// the final output location once every artifact has been written.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Document is one composed page. It is immutable.
type Document struct {
	Path string // slash-separated, relative to the output root
	HTML string
}

// Writer stages output files. It is safe for concurrent use.
type Writer struct {
	root  string
	stage string

	mu      sync.Mutex
	dirs    map[string]struct{}
	written map[string]struct{}
}

// NewWriter creates an empty staging directory next to root. A stage left
// behind by an earlier run is removed first.
func NewWriter(root string) (*Writer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryIO, "cannot resolve output root").WithPath(root).Build()
	}
	stage := abs + ".stage"
	if err := os.RemoveAll(stage); err != nil {
		return nil, errors.WrapError(err, errors.CategoryIO, "cannot clear staging directory").WithPath(stage).Build()
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return nil, errors.WrapError(err, errors.CategoryIO, "cannot create staging directory").WithPath(stage).Build()
	}
	slog.Debug("Initialized staging directory", slog.String("staging", stage), logfields.Output(abs))
	return &Writer{
		root:    abs,
		stage:   stage,
		dirs:    map[string]struct{}{".": {}},
		written: map[string]struct{}{},
	}, nil
}

// Root is the final output directory.
func (w *Writer) Root() string { return w.root }

// StageDir is the directory files are written to before Commit.
func (w *Writer) StageDir() string { return w.stage }

// WriteDocument writes a composed page.
func (w *Writer) WriteDocument(doc Document) error {
	return w.WriteFile(doc.Path, []byte(doc.HTML))
}

// WriteFile writes data to rel inside the stage, creating parent directories.
func (w *Writer) WriteFile(rel string, data []byte) error {
	target, clean, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := w.ensureDir(path.Dir(clean)); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot write output file").WithPath(clean).Build()
	}
	w.record(clean)
	return nil
}

// CopyAsset copies the file at src to rel inside the stage.
func (w *Writer) CopyAsset(src, rel string) error {
	target, clean, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := w.ensureDir(path.Dir(clean)); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot open asset").WithPath(rel).Build()
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot create asset").WithPath(clean).Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.WrapError(err, errors.CategoryIO, "cannot copy asset").WithPath(clean).Build()
	}
	if err := out.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot copy asset").WithPath(clean).Build()
	}
	w.record(clean)
	return nil
}

// WriteJSON writes v as indented JSON.
func (w *Writer) WriteJSON(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "cannot encode JSON").WithPath(rel).Build()
	}
	return w.WriteFile(rel, append(data, '\n'))
}

// Written lists every file written so far, sorted.
func (w *Writer) Written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.written))
	for p := range w.written {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Has reports whether rel has been written.
func (w *Writer) Has(rel string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.written[path.Clean(rel)]
	return ok
}

// Commit replaces the output root with the stage. Nothing from a previous
// build survives.
func (w *Writer) Commit() error {
	if w.stage == "" {
		return errors.InternalError("no staging directory to commit").Build()
	}
	prev := w.root + ".prev"
	if err := os.RemoveAll(prev); err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot remove previous backup").WithPath(prev).Build()
	}
	if _, err := os.Stat(w.root); err == nil {
		if err := os.Rename(w.root, prev); err != nil {
			return errors.WrapError(err, errors.CategoryIO, "cannot move previous output aside").WithPath(w.root).Build()
		}
	}
	if err := os.Rename(w.stage, w.root); err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot promote staging directory").WithPath(w.root).Build()
	}
	w.stage = ""
	if err := os.RemoveAll(prev); err != nil {
		slog.Warn("Failed to remove previous output", logfields.Path(prev), logfields.Error(err))
	}
	slog.Info("Promoted staging directory", logfields.Output(w.root))
	return nil
}

// Abort removes the stage. The previous output, if any, is left untouched.
func (w *Writer) Abort() {
	if w.stage == "" {
		return
	}
	dir := w.stage
	w.stage = ""
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("Failed to remove staging directory after abort", slog.String("staging", dir), logfields.Error(err))
		return
	}
	slog.Debug("Removed staging directory after abort", slog.String("staging", dir))
}

// resolve maps rel to a path inside the stage.
func (w *Writer) resolve(rel string) (target, clean string, err error) {
	if w.stage == "" {
		return "", "", errors.InternalError("writer is already committed or aborted").WithPath(rel).Build()
	}
	rel = filepath.ToSlash(rel)
	clean = path.Clean(rel)
	if rel == "" || path.IsAbs(rel) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", "", errors.IOError(fmt.Sprintf("output path escapes the output root: %q", rel)).WithPath(rel).Build()
	}
	return filepath.Join(w.stage, filepath.FromSlash(clean)), clean, nil
}

// ensureDir creates dir under the stage once; concurrent callers serialize.
func (w *Writer) ensureDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(filepath.Join(w.stage, filepath.FromSlash(dir)), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot create output directory").WithPath(dir).Build()
	}
	w.dirs[dir] = struct{}{}
	return nil
}

func (w *Writer) record(clean string) {
	w.mu.Lock()
	w.written[clean] = struct{}{}
	w.mu.Unlock()
}
