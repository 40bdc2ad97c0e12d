// Package metadata turns a raw source file into validated page metadata and
// a body ready for rendering.
package metadata

import (
	stderrors "errors"
	"fmt"
	"maps"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// Known field names. Everything else lands in Extra.
const (
	FieldTitle       = "title"
	FieldOrder       = "order"
	FieldWeight      = "weight"
	FieldPublish     = "publish"
	FieldDraft       = "draft"
	FieldDescription = "description"
	FieldDate        = "date"
	FieldTemplate    = "template"
)

// PageMetadata is the validated per-page metadata.
type PageMetadata struct {
	Title        string
	TitleDerived bool
	Order        *int
	Publish      bool
	Description  string
	Date         string
	Template     string
	Extra        map[string]string
}

// Options carry the site-level inputs the extractor needs.
type Options struct {
	// SiteTitle names the root index page when it has no title of its own.
	SiteTitle string
	// Defaults fill Extra keys a page does not set.
	Defaults map[string]string
}

// Result is the outcome of Extract for one file.
type Result struct {
	Meta PageMetadata
	Body string
	// BodyLine is the 1-based file line the body starts on.
	BodyLine    int
	Fingerprint string
}

// Extract splits and validates the metadata block of one file.
func Extract(relPath string, raw []byte, opts Options) (*Result, error) {
	doc, err := frontmatter.Split(raw)
	if err != nil {
		if stderrors.Is(err, frontmatter.ErrMissingClosingDelimiter) {
			return nil, errors.WrapError(err, errors.CategoryMetadata, "metadata block is not closed").
				WithPath(relPath).
				WithLine(1).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryMetadata, "cannot split metadata").WithPath(relPath).Build()
	}

	fields, err := frontmatter.Parse(doc.Format, doc.Frontmatter)
	if err != nil {
		line := 0
		var syntaxErr *frontmatter.SyntaxError
		if stderrors.As(err, &syntaxErr) && syntaxErr.Line > 0 {
			line = doc.FieldsLine + syntaxErr.Line - 1
		}
		return nil, errors.WrapError(err, errors.CategoryMetadata, "invalid metadata syntax").
			WithPath(relPath).
			WithLine(line).
			Build()
	}

	meta, err := decode(fields)
	if err != nil {
		var fe *fieldError
		line := 0
		if stderrors.As(err, &fe) {
			line = fieldLine(doc, fe.field)
		}
		return nil, errors.WrapError(err, errors.CategoryMetadata, "invalid metadata field").
			WithPath(relPath).
			WithLine(line).
			Build()
	}

	if meta.Title == "" {
		meta.Title = DeriveTitle(relPath, opts.SiteTitle)
		meta.TitleDerived = true
	}
	for k, v := range opts.Defaults {
		if _, ok := meta.Extra[k]; !ok {
			meta.Extra[k] = v
		}
	}

	fp, err := ComputeFingerprint(fields, doc.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryMetadata, "cannot fingerprint page").WithPath(relPath).Build()
	}

	return &Result{
		Meta:        meta,
		Body:        string(doc.Body),
		BodyLine:    doc.BodyLine,
		Fingerprint: fp,
	}, nil
}

type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string { return fmt.Sprintf("field %q: %s", e.field, e.msg) }

func decode(fields map[string]any) (PageMetadata, error) {
	meta := PageMetadata{Publish: true, Extra: map[string]string{}}
	rest := maps.Clone(fields)

	if v, ok := take(rest, FieldTitle); ok {
		s, err := scalarString(FieldTitle, v)
		if err != nil {
			return meta, err
		}
		meta.Title = strings.TrimSpace(s)
	}

	weight, hasWeight := take(rest, FieldWeight)
	order, hasOrder := take(rest, FieldOrder)
	switch {
	case hasOrder:
		n, err := toInt(FieldOrder, order)
		if err != nil {
			return meta, err
		}
		meta.Order = &n
	case hasWeight:
		n, err := toInt(FieldWeight, weight)
		if err != nil {
			return meta, err
		}
		meta.Order = &n
	}

	if v, ok := take(rest, FieldPublish); ok {
		b, isBool := v.(bool)
		if !isBool {
			return meta, &fieldError{field: FieldPublish, msg: fmt.Sprintf("expected a boolean, got %T", v)}
		}
		meta.Publish = b
	}
	if v, ok := take(rest, FieldDraft); ok {
		b, isBool := v.(bool)
		if !isBool {
			return meta, &fieldError{field: FieldDraft, msg: fmt.Sprintf("expected a boolean, got %T", v)}
		}
		if b {
			meta.Publish = false
		}
	}

	for _, f := range []struct {
		name string
		dst  *string
	}{
		{FieldDescription, &meta.Description},
		{FieldDate, &meta.Date},
		{FieldTemplate, &meta.Template},
	} {
		if v, ok := take(rest, f.name); ok {
			s, err := scalarString(f.name, v)
			if err != nil {
				return meta, err
			}
			*f.dst = s
		}
	}

	for k, v := range rest {
		flatten(meta.Extra, k, v)
	}
	return meta, nil
}

func take(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	if ok {
		delete(m, key)
	}
	return v, ok
}

func toInt(field string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, &fieldError{field: field, msg: fmt.Sprintf("expected an integer, got %v", v)}
}

func scalarString(field string, v any) (string, error) {
	switch v.(type) {
	case map[string]any, []any:
		return "", &fieldError{field: field, msg: "expected a scalar value"}
	}
	return Stringify(v), nil
}

// fieldLine finds the file line that sets key inside the metadata block, or 0.
func fieldLine(doc frontmatter.Document, key string) int {
	re := regexp.MustCompile(`^\s*["']?` + regexp.QuoteMeta(key) + `["']?\s*[:=]`)
	for i, line := range strings.Split(string(doc.Frontmatter), "\n") {
		if re.MatchString(line) {
			return doc.FieldsLine + i
		}
	}
	return 0
}

var separatorRe = regexp.MustCompile(`[-_.\s]+`)

// DeriveTitle builds a title from a relative source path. Index pages take
// their directory name; the root index page takes siteTitle.
func DeriveTitle(relPath, siteTitle string) string {
	base := path.Base(relPath)
	base = strings.TrimSuffix(base, path.Ext(base))
	if strings.EqualFold(base, "index") {
		dir := path.Dir(relPath)
		if dir == "." || dir == "/" {
			if siteTitle != "" {
				return siteTitle
			}
			return cases.Title(language.English).String(base)
		}
		base = path.Base(dir)
	}
	words := strings.TrimSpace(separatorRe.ReplaceAllString(base, " "))
	return cases.Title(language.English).String(words)
}
