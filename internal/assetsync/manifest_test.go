package assetsync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

// --- LoadManifest ---

func TestLoadManifest_Missing(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.False(t, m.Exists())
	assert.Zero(t, m.Len())
}

func TestLoadManifest_EmptyPath(t *testing.T) {
	_, err := LoadManifest("")
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestLoadManifest_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "decoding manifest")
}

func TestLoadManifest_ReadsLegacyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	data := `{
  "ids": {"a": "R1", "b": "", "c": "R3"},
  "meta": {
    "a": {"file": "assets/alice[a].png", "url": "https://x/R1", "mtimeMs": 1700000000123.456},
    "c": {"file": "assets/c[c].png", "mtimeMs": 1}
  }
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.True(t, m.Exists())
	assert.False(t, m.Audio())
	assert.Equal(t, 2, m.Len())

	a, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, ManifestEntry{
		StableID: "a",
		RemoteID: "R1",
		MTimeMs:  1700000000123.456,
		Path:     "assets/alice[a].png",
		URL:      "https://x/R1",
	}, a)

	_, ok = m.Get("b")
	assert.False(t, ok)
}

// --- SaveManifest ---

func TestSaveManifest_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "m.json")
	m := NewManifest()
	m.audio = true
	m.Put(ManifestEntry{StableID: "b", RemoteID: "R2", MTimeMs: mtimeMs(baseTime), Path: "b.opus", TTS: "<b>"})
	m.Put(ManifestEntry{StableID: "a", RemoteID: "R1", MTimeMs: 5.5, Path: "a.opus", URL: "u", TTS: "<a>"})

	require.NoError(t, SaveManifest(path, m))
	assert.True(t, m.Exists())

	got, err := LoadManifest(path)
	require.NoError(t, err)
	assert.True(t, got.Audio())
	assert.Equal(t, m.Entries(), got.Entries())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, manifestFilePerm, info.Mode().Perm())
}

func TestSaveManifest_DeterministicOutput(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest()

	for _, id := range []string{"z", "m", "a"} {
		m.Put(ManifestEntry{StableID: id, RemoteID: "R-" + id, Path: id + ".png"})
	}

	first := filepath.Join(dir, "one.json")
	second := filepath.Join(dir, "two.json")
	require.NoError(t, SaveManifest(first, m))
	require.NoError(t, SaveManifest(second, m))

	assert.Equal(t, readFile(t, first), readFile(t, second))
	assert.Regexp(t, `(?s)"a": "R-a",\s+"m": "R-m",\s+"z": "R-z"`, readFile(t, first))
	assert.NotContains(t, readFile(t, first), `"tts"`)
}

func TestSaveManifest_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.json")

	require.NoError(t, SaveManifest(path, NewManifest()))
	require.NoError(t, SaveManifest(path, NewManifest()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m.json", entries[0].Name())
}

func TestSaveManifest_EmptyPath(t *testing.T) {
	assert.ErrorIs(t, SaveManifest(" ", NewManifest()), errs.ErrConfig)
}

// --- Manifest ---

func TestManifest_RemoteIDs(t *testing.T) {
	m := NewManifest()
	m.Put(ManifestEntry{StableID: "a", RemoteID: "R1"})
	m.Put(ManifestEntry{StableID: "b", RemoteID: "R2"})

	ids := m.RemoteIDs()
	assert.True(t, ids.Contains("R1"))
	assert.True(t, ids.Contains("R2"))
	assert.Equal(t, 2, ids.Cardinality())
}

func TestManifest_PutReplaces(t *testing.T) {
	m := NewManifest()
	m.Put(ManifestEntry{StableID: "a", RemoteID: "R1"})
	m.Put(ManifestEntry{StableID: "a", RemoteID: "R2"})

	e, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "R2", e.RemoteID)
	assert.Equal(t, 1, m.Len())
}

// --- LockManifest ---

func TestLockManifest_ExclusiveUntilReleased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")

	unlock, err := LockManifest(path)
	require.NoError(t, err)

	_, err = LockManifest(path)
	assert.ErrorIs(t, err, errs.ErrState)

	require.NoError(t, unlock())

	_, statErr := os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(statErr))

	unlock, err = LockManifest(path)
	require.NoError(t, err)
	require.NoError(t, unlock())
}
