package output

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// ManifestFileName is written at the output root.
const ManifestFileName = "manifest.json"

// Manifest describes everything a build produced.
type Manifest struct {
	BuildID string          `json:"build_id"`
	Pages   []ManifestPage  `json:"pages"`
	Assets  []ManifestAsset `json:"assets"`
	Hash    string          `json:"hash"`
}

// ManifestPage is one page entry.
type ManifestPage struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Output      string `json:"output"`
	Title       string `json:"title"`
	Fingerprint string `json:"fingerprint"`
}

// ManifestAsset is one copied or generated non-page file.
type ManifestAsset struct {
	Output string `json:"output"`
	Source string `json:"source,omitempty"`
}

// Finalize sorts the entries and computes the content hash. The hash
// covers pages and assets but not the build ID, so identical inputs hash
// identically across builds.
func (m *Manifest) Finalize() {
	if m.Pages == nil {
		m.Pages = []ManifestPage{}
	}
	if m.Assets == nil {
		m.Assets = []ManifestAsset{}
	}
	sort.Slice(m.Pages, func(i, j int) bool { return m.Pages[i].Output < m.Pages[j].Output })
	sort.Slice(m.Assets, func(i, j int) bool { return m.Assets[i].Output < m.Assets[j].Output })

	h := sha256.New()
	for _, p := range m.Pages {
		fmt.Fprintf(h, "page|%s|%s|%s|%s\n", p.ID, p.Source, p.Output, p.Fingerprint)
	}
	for _, a := range m.Assets {
		fmt.Fprintf(h, "asset|%s|%s\n", a.Output, a.Source)
	}
	m.Hash = hex.EncodeToString(h.Sum(nil))
}
