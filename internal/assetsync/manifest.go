package assetsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gofrs/flock"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

const (
	// manifestDirPerm is the permission mode for directories created to
	// hold a manifest. Manifests are usually committed next to skill code.
	manifestDirPerm = fs.FileMode(0o755)

	// manifestFilePerm is the permission mode for the manifest file.
	manifestFilePerm = fs.FileMode(0o644)
)

// ManifestEntry records what was uploaded for one stable ID.
type ManifestEntry struct {
	StableID string
	RemoteID string
	// MTimeMs is the local file's modification time at upload, in
	// fractional milliseconds since the epoch.
	MTimeMs float64
	Path    string
	// URL is derived from RemoteID by the Remote. Informational only.
	URL string
	// TTS is set only for audio collections.
	TTS string
}

// Manifest maps stable IDs to remote items for one sync target.
type Manifest struct {
	entries map[string]ManifestEntry
	exists  bool
	// audio manifests persist the tts side table.
	audio bool
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{entries: make(map[string]ManifestEntry)}
}

// Exists reports whether the manifest was read from disk.
func (m *Manifest) Exists() bool {
	return m.exists
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// Get returns the entry for a stable ID.
func (m *Manifest) Get(stableID string) (ManifestEntry, bool) {
	e, ok := m.entries[stableID]
	return e, ok
}

// Put adds or replaces the entry for e.StableID.
func (m *Manifest) Put(e ManifestEntry) {
	m.entries[e.StableID] = e
}

// Entries returns all entries sorted by stable ID.
func (m *Manifest) Entries() []ManifestEntry {
	out := make([]ManifestEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StableID < out[j].StableID
	})

	return out
}

// RemoteIDs returns the set of remote IDs referenced by the manifest.
func (m *Manifest) RemoteIDs() mapset.Set[string] {
	ids := mapset.NewThreadUnsafeSetWithSize[string](len(m.entries))
	for _, e := range m.entries {
		ids.Add(e.RemoteID)
	}

	return ids
}

// Audio reports whether the manifest carries a TTS table.
func (m *Manifest) Audio() bool {
	return m.audio
}

// manifestFile is the on-disk layout. encoding/json writes map keys in
// sorted order, which keeps diffs of committed manifests small.
type manifestFile struct {
	IDs  map[string]string       `json:"ids"`
	TTS  map[string]string       `json:"tts,omitempty"`
	Meta map[string]manifestMeta `json:"meta"`
}

type manifestMeta struct {
	File    string  `json:"file"`
	URL     string  `json:"url,omitempty"`
	MTimeMs float64 `json:"mtimeMs"`
}

// LoadManifest reads the manifest at path. A missing file yields an empty
// manifest whose Exists reports false.
func LoadManifest(path string) (*Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: manifest path is required", errs.ErrConfig)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator supplied
	if errors.Is(err, fs.ErrNotExist) {
		return NewManifest(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	m, err := decodeManifest(data)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}

	return m, nil
}

func decodeManifest(data []byte) (*Manifest, error) {
	var f manifestFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	m := NewManifest()
	m.exists = true
	m.audio = f.TTS != nil

	for id, remoteID := range f.IDs {
		// An ID without a remote counterpart was never uploaded.
		if remoteID == "" {
			continue
		}

		meta := f.Meta[id]
		m.Put(ManifestEntry{
			StableID: id,
			RemoteID: remoteID,
			MTimeMs:  meta.MTimeMs,
			Path:     meta.File,
			URL:      meta.URL,
			TTS:      f.TTS[id],
		})
	}

	return m, nil
}

func encodeManifest(m *Manifest) ([]byte, error) {
	f := manifestFile{
		IDs:  make(map[string]string, m.Len()),
		Meta: make(map[string]manifestMeta, m.Len()),
	}

	if m.audio {
		f.TTS = make(map[string]string, m.Len())
	}

	for id, e := range m.entries {
		f.IDs[id] = e.RemoteID
		f.Meta[id] = manifestMeta{File: e.Path, URL: e.URL, MTimeMs: e.MTimeMs}

		if m.audio {
			f.TTS[id] = e.TTS
		}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

// SaveManifest writes m to path, replacing any previous file atomically
// via a temp file and rename. Parent directories are created as needed.
func SaveManifest(path string, m *Manifest) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: manifest path is required", errs.ErrConfig)
	}

	data, err := encodeManifest(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, manifestDirPerm); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp manifest: %w", err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("writing temp manifest: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp manifest: %w", err)
	}

	if err := os.Chmod(tmpPath, manifestFilePerm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting manifest permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing manifest: %w", err)
	}

	m.exists = true

	return nil
}

// LockManifest takes an advisory lock on <path>.lock so two runs cannot
// write the same manifest. The returned func releases it.
func LockManifest(path string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), manifestDirPerm); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}

	fl := flock.New(path + ".lock")

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking manifest: %w", err)
	}

	if !locked {
		return nil, fmt.Errorf("%w: manifest %s is in use by another run", errs.ErrState, path)
	}

	return func() error {
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("unlocking manifest: %w", err)
		}

		return os.Remove(fl.Path())
	}, nil
}
