package content

import (
	"path"
	"regexp"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

// Page is one published content file on its way through the pipeline.
type Page struct {
	ID          string
	Source      source.File
	Meta        metadata.PageMetadata
	Body        string
	BodyLine    int
	OutputPath  string
	Fingerprint string

	// Optional repository information.
	LastModified time.Time
	Author       string
}

// NewPage assembles a page from a loaded file and its extracted metadata.
func NewPage(file source.File, res *metadata.Result) *Page {
	return &Page{
		ID:          PageID(file.RelPath),
		Source:      file,
		Meta:        res.Meta,
		Body:        res.Body,
		BodyLine:    res.BodyLine,
		OutputPath:  OutputPath(file.RelPath),
		Fingerprint: res.Fingerprint,
	}
}

var idSeparatorRe = regexp.MustCompile(`[\s_]+`)

// PageID derives the stable identifier of a page from its relative path:
// extension dropped, lower-cased, runs of whitespace or underscores turned
// into a single '-'.
func PageID(relPath string) string {
	id := strings.TrimSuffix(relPath, path.Ext(relPath))
	id = strings.ToLower(id)
	return idSeparatorRe.ReplaceAllString(id, "-")
}

// OutputPath maps a relative source path to its document path.
func OutputPath(relPath string) string {
	return strings.TrimSuffix(relPath, path.Ext(relPath)) + ".html"
}

// IsIndex reports whether relPath names a directory index page.
func IsIndex(relPath string) bool {
	base := path.Base(relPath)
	return strings.EqualFold(strings.TrimSuffix(base, path.Ext(base)), "index")
}
