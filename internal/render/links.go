package render

import (
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

// linkRewriter points relative links at content files to their documents:
// "setup.md#install" becomes "setup.html#install".
type linkRewriter struct{}

func (linkRewriter) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			node.Destination = []byte(RewriteLink(string(node.Destination)))
		case *ast.Image:
			node.Destination = []byte(RewriteLink(string(node.Destination)))
		}
		return ast.WalkContinue, nil
	})
}

// RewriteLink maps a relative content-file destination to its .html output.
// Absolute URLs, fragment-only links and non-content targets are unchanged.
func RewriteLink(dest string) string {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "//") {
		return dest
	}
	if u, err := url.Parse(dest); err != nil || u.Scheme != "" {
		return dest
	}

	target, fragment, hasFragment := strings.Cut(dest, "#")
	if !source.IsContentFile(target) {
		return dest
	}
	out := strings.TrimSuffix(target, path.Ext(target)) + ".html"
	if hasFragment {
		out += "#" + fragment
	}
	return out
}
