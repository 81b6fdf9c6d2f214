package assetsync

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

// StableIDFunc derives the stable ID of a local file from its path. An
// empty return value means the file has no ID, which fails the scan.
type StableIDFunc func(path string) string

// LocalItem is a file matched by the sync pattern in the current run.
type LocalItem struct {
	Path     string
	StableID string
	ModTime  time.Time
}

// MTimeMs returns the modification time in fractional milliseconds, the
// unit persisted in manifests.
func (i LocalItem) MTimeMs() float64 {
	return mtimeMs(i.ModTime)
}

// mtimeMs matches the rounding of Node's fs.Stats.mtimeMs so manifests
// written by other tools compare equal.
func mtimeMs(t time.Time) float64 {
	return float64(t.Unix())*1e3 + float64(t.Nanosecond())/1e6
}

var bracketID = regexp.MustCompile(`\[([^\[\]]*)\]`)

// DefaultStableID returns the text inside the last [...] group of the
// file's base name, e.g. "a" for "assets/alice[a].png".
func DefaultStableID(path string) string {
	matches := bracketID.FindAllStringSubmatch(filepath.Base(path), -1)
	if len(matches) == 0 {
		return ""
	}

	return matches[len(matches)-1][1]
}

// RegexpStableID builds a StableIDFunc from a regular expression matched
// against the base name. The first capture group is the ID.
func RegexpStableID(expr string) (StableIDFunc, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling stable ID pattern: %w", errs.ErrConfig, err)
	}

	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: stable ID pattern %q has no capture group", errs.ErrConfig, expr)
	}

	return func(path string) string {
		m := re.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			return ""
		}

		return m[1]
	}, nil
}

// Scan expands pattern into the local files to sync, in lexical order,
// and assigns each its stable ID. It fails before touching the network
// when the pattern is empty, a file has no ID, or two files share an ID.
func Scan(pattern string, fn StableIDFunc) ([]LocalItem, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: pattern is required", errs.ErrConfig)
	}

	if fn == nil {
		fn = DefaultStableID
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: expanding pattern %q: %w", errs.ErrConfig, pattern, err)
	}

	sort.Strings(matches)

	items := make([]LocalItem, 0, len(matches))

	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if info.IsDir() {
			continue
		}

		raw := fn(path)

		id := norm.NFC.String(strings.TrimSpace(raw))
		if id == "" {
			return nil, fmt.Errorf("%w: stable ID extractor returned %q for file: %s", errs.ErrValidation, raw, path)
		}

		items = append(items, LocalItem{
			Path:     path,
			StableID: id,
			ModTime:  info.ModTime(),
		})
	}

	if err := checkDuplicateIDs(items); err != nil {
		return nil, err
	}

	return items, nil
}

func checkDuplicateIDs(items []LocalItem) error {
	byID := make(map[string][]string, len(items))
	for _, item := range items {
		byID[item.StableID] = append(byID[item.StableID], item.Path)
	}

	dups := make(map[string][]string)

	for id, files := range byID {
		if len(files) > 1 {
			dups[id] = files
		}
	}

	if len(dups) > 0 {
		return &DuplicateIDError{Files: dups}
	}

	return nil
}
