package render

import (
	"bufio"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// container is an open block quote or list item. Lines continue it only
// when they carry its prefix.
type container struct {
	quote  bool
	indent int // content indent of a list item
}

type openFence struct {
	char  byte
	count int
	depth int // containers enclosing the fence
	line  int
}

// checkFences reports a code fence that is never closed: one still open at
// the end of body or cut off by the end of its block quote or list item.
// Goldmark closes both silently. bodyLine is the file line body starts on.
func checkFences(relPath, body string, bodyLine int) error {
	var (
		stack []container
		fence *openFence
	)

	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)
	for n := 0; sc.Scan(); n++ {
		rest := expandTabs(strings.TrimRight(sc.Text(), "\r"))

		matched := 0
		for ; matched < len(stack); matched++ {
			r, ok := continueContainer(stack[matched], rest)
			if !ok {
				break
			}
			rest = r
		}
		if matched < len(stack) {
			if fence != nil && fence.depth > matched {
				return unclosedFence(relPath, fence)
			}
			stack = stack[:matched]
		}

		if fence != nil {
			if closesFence(rest, fence) {
				fence = nil
			}
			continue
		}

		for {
			if r, ok := stripQuote(rest); ok {
				stack = append(stack, container{quote: true})
				rest = r
				continue
			}
			if indent, ok := listItem(rest); ok {
				stack = append(stack, container{indent: indent})
				rest = rest[min(indent, len(rest)):]
				continue
			}
			break
		}
		if char, count, ok := opensFence(rest); ok {
			fence = &openFence{char: char, count: count, depth: len(stack), line: bodyLine + n}
		}
	}
	if err := sc.Err(); err != nil {
		return errors.WrapError(err, errors.CategoryRender, "cannot scan body").WithPath(relPath).Build()
	}

	if fence != nil {
		return unclosedFence(relPath, fence)
	}
	return nil
}

func unclosedFence(relPath string, f *openFence) error {
	return errors.RenderError("code fence is not closed").
		WithPath(relPath).
		WithLine(f.line).
		Build()
}

func continueContainer(c container, line string) (string, bool) {
	if c.quote {
		return stripQuote(line)
	}
	if strings.TrimSpace(line) == "" {
		return "", true
	}
	if leadingSpaces(line) < c.indent {
		return "", false
	}
	return line[c.indent:], true
}

// stripQuote removes a block quote marker and the space after it.
func stripQuote(line string) (string, bool) {
	ind := leadingSpaces(line)
	if ind > 3 || ind == len(line) || line[ind] != '>' {
		return "", false
	}
	rest := line[ind+1:]
	if strings.HasPrefix(rest, " ") {
		rest = rest[1:]
	}
	return rest, true
}

// listItem returns the content indent of a list item starting on line.
func listItem(line string) (int, bool) {
	p := leadingSpaces(line)
	if p > 3 || p == len(line) {
		return 0, false
	}
	switch line[p] {
	case '-', '+', '*':
		p++
	default:
		digits := 0
		for p < len(line) && line[p] >= '0' && line[p] <= '9' && digits < 9 {
			p++
			digits++
		}
		if digits == 0 || p == len(line) || (line[p] != '.' && line[p] != ')') {
			return 0, false
		}
		p++
	}
	if p == len(line) {
		return p + 1, true
	}
	if line[p] != ' ' {
		return 0, false
	}
	sp := leadingSpaces(line[p:])
	if p+sp == len(line) || sp > 4 {
		return p + 1, true
	}
	return p + sp, true
}

func opensFence(line string) (byte, int, bool) {
	ind := leadingSpaces(line)
	if ind > 3 {
		return 0, 0, false
	}
	line = line[ind:]
	char, count := fenceRun(line)
	if count < 3 {
		return 0, 0, false
	}
	if char == '`' && strings.ContainsRune(line[count:], '`') {
		return 0, 0, false
	}
	return char, count, true
}

func closesFence(line string, f *openFence) bool {
	ind := leadingSpaces(line)
	if ind > 3 {
		return false
	}
	line = line[ind:]
	char, count := fenceRun(line)
	return char == f.char && count >= f.count && strings.TrimSpace(line[count:]) == ""
}

func fenceRun(line string) (byte, int) {
	if line == "" || (line[0] != '`' && line[0] != '~') {
		return 0, 0
	}
	c := line[0]
	n := 0
	for n < len(line) && line[n] == c {
		n++
	}
	return c, n
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

// expandTabs replaces tabs with spaces up to the next multiple of four
// columns.
func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			w := 4 - col%4
			b.WriteString(strings.Repeat(" ", w))
			col += w
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}
