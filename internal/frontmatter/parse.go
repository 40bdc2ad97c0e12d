package frontmatter

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// SyntaxError reports a parse failure inside a metadata block.
type SyntaxError struct {
	Format Format
	Line   int // 1-based line within the block, 0 when unknown
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid %s metadata at block line %d: %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("invalid %s metadata: %v", e.Format, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Parse parses raw block content of the given format into a map.
func Parse(format Format, frontmatter []byte) (map[string]any, error) {
	switch format {
	case FormatYAML:
		return ParseYAML(frontmatter)
	case FormatTOML:
		return ParseTOML(frontmatter)
	default:
		return map[string]any{}, nil
	}
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// ParseYAML parses raw YAML frontmatter (without --- delimiters) into a map.
// The top level must be a mapping.
func ParseYAML(frontmatter []byte) (map[string]any, error) {
	frontmatter = bytes.ReplaceAll(frontmatter, []byte("\r\n"), []byte("\n"))
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
		line := 0
		if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
		return nil, &SyntaxError{Format: FormatYAML, Line: line, Err: err}
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// ParseTOML parses raw TOML frontmatter (without +++ delimiters) into a map.
func ParseTOML(frontmatter []byte) (map[string]any, error) {
	frontmatter = bytes.ReplaceAll(frontmatter, []byte("\r\n"), []byte("\n"))
	fields := map[string]any{}
	if err := toml.Unmarshal(frontmatter, &fields); err != nil {
		line := 0
		var decodeErr *toml.DecodeError
		if stderrors.As(err, &decodeErr) {
			line, _ = decodeErr.Position()
		}
		return nil, &SyntaxError{Format: FormatTOML, Line: line, Err: err}
	}
	return fields, nil
}
