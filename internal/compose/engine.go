package compose

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Engine renders named templates.
type Engine interface {
	Render(name string, data any) (string, error)
	Has(name string) bool
}

// HTMLEngine is the html/template implementation of Engine.
//
// base.html and every partial (file name starting with '_') form the shared
// layout set. Each remaining template is parsed into its own clone of that
// set, so pages can redefine blocks without affecting each other.
type HTMLEngine struct {
	templates map[string]*template.Template
}

// NewHTMLEngine parses the given sources, keyed by template file name.
func NewHTMLEngine(sources map[string]string) (*HTMLEngine, error) {
	shared := template.New("").Option("missingkey=error").Funcs(funcs())

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var pages []string
	for _, name := range names {
		if name != "base.html" && !strings.HasPrefix(name, "_") {
			pages = append(pages, name)
			continue
		}
		if _, err := shared.New(name).Parse(sources[name]); err != nil {
			return nil, parseError(name, err)
		}
	}

	e := &HTMLEngine{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		clone, err := shared.Clone()
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "cannot clone layout templates").Build()
		}
		t, err := clone.New(name).Parse(sources[name])
		if err != nil {
			return nil, parseError(name, err)
		}
		e.templates[name] = t
	}
	return e, nil
}

func parseError(name string, err error) error {
	return errors.WrapError(err, errors.CategoryTemplate, fmt.Sprintf("cannot parse template %s", name)).
		WithContext(errors.KeyTemplate, name).
		Build()
}

// Has implements Engine.
func (e *HTMLEngine) Has(name string) bool {
	_, ok := e.templates[name]
	return ok
}

// Render implements Engine.
func (e *HTMLEngine) Render(name string, data any) (string, error) {
	t, ok := e.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s is not defined", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"join":  strings.Join,
	}
}
