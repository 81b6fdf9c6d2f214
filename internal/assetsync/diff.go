package assetsync

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ManifestDiff renders the line changes between the encoded forms of prev
// and next. Removed lines are prefixed "- ", added lines "+ ". An empty
// string means the manifests encode identically.
func ManifestDiff(prev, next *Manifest) (string, error) {
	a, err := encodeManifest(prev)
	if err != nil {
		return "", fmt.Errorf("encoding current manifest: %w", err)
	}

	b, err := encodeManifest(next)
	if err != nil {
		return "", fmt.Errorf("encoding next manifest: %w", err)
	}

	if string(a) == string(b) {
		return "", nil
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(string(a), string(b))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder

	for _, d := range diffs {
		var prefix string

		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			sb.WriteString(prefix)
			sb.WriteString(line)

			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}

	return sb.String(), nil
}
