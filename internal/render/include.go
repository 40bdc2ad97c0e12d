package render

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

var directiveRe = regexp.MustCompile(`\{\{\s*#([a-zA-Z0-9_]+)\s+([^}]*?)\s*\}\}`)

// lineRange selects lines [start, end) by 0-based index; end < 0 means to EOF.
type lineRange struct {
	start int
	end   int
}

// parseInclude parses "path", "path:5", "path:5:", "path::10" or "path:5:10".
// Line numbers are 1-based and the end line is included.
func parseInclude(args string) (string, lineRange, error) {
	file, spec, _ := strings.Cut(args, ":")
	r := lineRange{start: 0, end: -1}
	if file == "" {
		return "", r, fmt.Errorf("missing include path")
	}
	if spec == "" {
		return file, r, nil
	}

	startStr, endStr, hasEnd := strings.Cut(spec, ":")
	if startStr != "" {
		n, err := strconv.Atoi(startStr)
		if err != nil || n < 0 {
			return "", r, fmt.Errorf("invalid start line %q", startStr)
		}
		r.start = max(n-1, 0)
		if !hasEnd {
			r.end = r.start + 1
		}
	}
	if endStr != "" {
		n, err := strconv.Atoi(endStr)
		if err != nil || n < 0 {
			return "", r, fmt.Errorf("invalid end line %q", endStr)
		}
		r.end = n
	}
	return file, r, nil
}

func (r lineRange) extract(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	start := min(r.start, len(lines))
	end := len(lines)
	if r.end >= 0 {
		end = min(r.end, len(lines))
	}
	if end <= start {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

// expandIncludes replaces include directives in body with the referenced
// file content. Paths resolve relative to the page and must stay inside fsys.
// Directives that do not parse, or are unknown, are left untouched.
func expandIncludes(fsys fs.FS, relPath, body string, bodyLine int) (string, error) {
	matches := directiveRe.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body, nil
	}

	var b strings.Builder
	prev := 0
	for _, m := range matches {
		name := body[m[2]:m[3]]
		args := body[m[4]:m[5]]
		line := bodyLine + strings.Count(body[:m[0]], "\n")

		if name != "include" {
			slog.Warn("Unrecognized directive", logfields.Path(relPath), slog.Int("line", line), slog.String("directive", name))
			continue
		}
		file, r, err := parseInclude(args)
		if err != nil {
			slog.Warn("Failed to parse include directive", logfields.Path(relPath), slog.Int("line", line), logfields.Error(err))
			continue
		}
		if fsys == nil {
			return "", errors.RenderError("include directive used without a source root").
				WithPath(relPath).WithLine(line).Build()
		}

		target := path.Join(path.Dir(relPath), file)
		if path.IsAbs(file) || !fs.ValidPath(target) {
			return "", errors.RenderError(fmt.Sprintf("include path escapes the source root: %s", file)).
				WithPath(relPath).WithLine(line).Build()
		}
		data, err := fs.ReadFile(fsys, target)
		if err != nil {
			return "", errors.WrapError(err, errors.CategoryRender, fmt.Sprintf("cannot include %s", file)).
				WithPath(relPath).WithLine(line).Build()
		}

		b.WriteString(body[prev:m[0]])
		b.WriteString(r.extract(string(data)))
		prev = m[1]
	}
	b.WriteString(body[prev:])
	return b.String(), nil
}
