// Package theme provides the page templates and static files of a site.
//
// A built-in theme is embedded in the binary. A theme directory overrides
// it file by file: templates/<name>.html replaces or adds a template and
// static/<path> replaces or adds a static file.
package theme

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

//go:embed all:defaults
var defaults embed.FS

const (
	templatesDir = "templates"
	staticDir    = "static"
)

// StaticFile is a file copied verbatim into the output.
type StaticFile struct {
	Path string // slash-separated, relative to the output root
	Data []byte
}

// Theme is a resolved set of templates and static files.
type Theme struct {
	// Templates maps template file names (e.g. "page.html") to their source.
	Templates map[string]string
	static    map[string][]byte
}

// Default returns the embedded theme.
func Default() (*Theme, error) {
	sub, err := fs.Sub(defaults, "defaults")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "embedded theme is missing").Build()
	}
	t := &Theme{Templates: map[string]string{}, static: map[string][]byte{}}
	if err := t.merge(sub); err != nil {
		return nil, err
	}
	return t, nil
}

// Load returns the embedded theme overlaid with the files of dir. An empty
// dir yields the embedded theme unchanged.
func Load(dir string) (*Theme, error) {
	t, err := Default()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return t, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "cannot read theme directory").WithPath(dir).Build()
	}
	if !info.IsDir() {
		return nil, errors.ConfigError(fmt.Sprintf("theme path is not a directory: %s", dir)).WithPath(dir).Build()
	}
	if err := t.merge(os.DirFS(dir)); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Theme) merge(fsys fs.FS) error {
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == "." {
				return err
			}
			return nil
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		switch {
		case path.Dir(p) == templatesDir && strings.HasSuffix(p, ".html"):
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return err
			}
			t.Templates[path.Base(p)] = string(data)
		case strings.HasPrefix(p, staticDir+"/"):
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return err
			}
			t.static[strings.TrimPrefix(p, staticDir+"/")] = data
		}
		return nil
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryIO, "cannot load theme files").Build()
	}
	return nil
}

// StaticFiles returns the static files sorted by path.
func (t *Theme) StaticFiles() []StaticFile {
	out := make([]StaticFile, 0, len(t.static))
	for p, data := range t.static {
		out = append(out, StaticFile{Path: p, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Stylesheets lists the static CSS files in output-relative form.
func (t *Theme) Stylesheets() []string {
	var out []string
	for _, f := range t.StaticFiles() {
		if strings.HasSuffix(f.Path, ".css") {
			out = append(out, f.Path)
		}
	}
	return out
}
