package render

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter turns source code into highlighted markup.
//
// ok is false when the language is not recognized; the caller then falls
// back to plain escaped output.
type Highlighter interface {
	Highlight(code, lang string) (markup string, ok bool, err error)
}

// StylesheetWriter is implemented by highlighters that ship their own CSS.
type StylesheetWriter interface {
	WriteCSS(w io.Writer) error
}

// ChromaHighlighter highlights with chroma using CSS classes.
type ChromaHighlighter struct {
	style     *chroma.Style
	formatter *html.Formatter
}

// NewChromaHighlighter creates a highlighter for the named chroma style.
// Unknown style names fall back to chroma's default style.
func NewChromaHighlighter(styleName string) *ChromaHighlighter {
	return &ChromaHighlighter{
		style:     styles.Get(styleName),
		formatter: html.New(html.WithClasses(true), html.TabWidth(4)),
	}
}

// Highlight implements Highlighter.
func (h *ChromaHighlighter) Highlight(code, lang string) (string, bool, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "", false, nil
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false, nil
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false, err
	}
	var b strings.Builder
	if err := h.formatter.Format(&b, h.style, iterator); err != nil {
		return "", false, err
	}
	return b.String(), true, nil
}

// WriteCSS writes the stylesheet matching the highlighter's classes.
func (h *ChromaHighlighter) WriteCSS(w io.Writer) error {
	return h.formatter.WriteCSS(w, h.style)
}
