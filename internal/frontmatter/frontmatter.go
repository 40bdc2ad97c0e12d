// Package frontmatter splits a metadata block from a Markdown document and
// parses it. Two block styles are recognized on the first line of a file:
// YAML between `---` lines and TOML between `+++` lines.
package frontmatter

import (
	"bytes"
	"errors"
)

// Format identifies the syntax of a metadata block.
type Format int

const (
	FormatNone Format = iota
	FormatYAML
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "none"
	}
}

// Delimiter returns the sentinel line for the format.
func (f Format) Delimiter() string {
	switch f {
	case FormatYAML:
		return "---"
	case FormatTOML:
		return "+++"
	default:
		return ""
	}
}

// Style captures formatting details of the source document.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// Document is the result of splitting a file.
type Document struct {
	Format      Format
	Frontmatter []byte // block content without delimiter lines
	Body        []byte
	// FieldsLine is the 1-based file line of the first block line.
	FieldsLine int
	// BodyLine is the 1-based file line where the body starts.
	BodyLine int
	Style    Style
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrMissingClosingDelimiter indicates the document opened a metadata block
// on its first line but never closed it. The opening sentinel is line 1.
var ErrMissingClosingDelimiter = errors.New("metadata block start delimiter found but closing delimiter is missing")

// Split separates the metadata block from the body.
//
// A document without a block yields FormatNone and the full input as body.
// A leading UTF-8 byte order mark is dropped. CRLF line endings are accepted;
// delimiter lines may carry trailing whitespace.
func Split(content []byte) (Document, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	doc := Document{Style: detectStyle(content), Body: content, BodyLine: 1}

	first, rest, _ := cutLine(content)
	format := formatOf(first)
	if format == FormatNone {
		return doc, nil
	}

	delim := format.Delimiter()
	start := len(content) - len(rest)
	offset := start
	line := 2
	for offset < len(content) {
		current, next, _ := cutLine(content[offset:])
		if string(bytes.TrimRight(current, " \t\r")) == delim {
			doc.Format = format
			doc.Frontmatter = content[start:offset]
			doc.Body = next
			doc.FieldsLine = 2
			doc.BodyLine = line + 1
			return doc, nil
		}
		offset = len(content) - len(next)
		line++
	}

	return Document{Style: doc.Style}, ErrMissingClosingDelimiter
}

func formatOf(line []byte) Format {
	switch string(bytes.TrimRight(line, " \t\r")) {
	case "---":
		return FormatYAML
	case "+++":
		return FormatTOML
	default:
		return FormatNone
	}
}

// cutLine returns the first line (without its '\n') and the remainder.
func cutLine(b []byte) (line, rest []byte, found bool) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i], b[i+1:], true
	}
	return b, b[len(b):], false
}

func detectStyle(content []byte) Style {
	newline := "\n"
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			newline = "\r\n"
			break
		}
		if content[i] == '\n' {
			newline = "\n"
			break
		}
	}

	hasTrailingNewline := len(content) > 0 && (content[len(content)-1] == '\n')

	return Style{
		Newline:            newline,
		HasTrailingNewline: hasTrailingNewline,
	}
}
