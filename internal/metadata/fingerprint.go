package metadata

import (
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
)

// ComputeFingerprint computes the canonical content fingerprint of a page
// from its parsed metadata fields and raw body.
//
// The fields are serialized as sorted YAML with LF newlines regardless of
// the source block format, so a page fingerprints identically whether it
// was written with YAML or TOML metadata. An existing fingerprint field is
// ignored.
func ComputeFingerprint(fields map[string]any, body []byte) (string, error) {
	forHash := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField {
			continue
		}
		forHash[k] = v
	}

	serialized := ""
	if len(forHash) > 0 {
		out, err := frontmatter.SerializeYAML(forHash, frontmatter.Style{Newline: "\n"})
		if err != nil {
			return "", err
		}
		serialized = strings.TrimSuffix(string(out), "\n")
	}

	return mdfp.CalculateFingerprintFromParts(serialized, strings.ReplaceAll(string(body), "\r\n", "\n")), nil
}
