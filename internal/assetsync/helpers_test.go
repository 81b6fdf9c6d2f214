package assetsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/asset-sync/internal/models"
)

// baseTime is the mtime given to fixture files unless a test overrides it.
var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)

// fakeRemote is an in-memory Remote. IDs are assigned sequentially.
type fakeRemote struct {
	mu      sync.Mutex
	items   []models.RemoteItem
	next    int
	uploads []string
	deletes []string
	data    map[string][]byte
}

func newFakeRemote(ids ...string) *fakeRemote {
	f := &fakeRemote{data: make(map[string][]byte)}
	for _, id := range ids {
		f.items = append(f.items, models.RemoteItem{ID: id})
	}

	return f
}

func (f *fakeRemote) List(_ context.Context) ([]models.RemoteItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.items), nil
}

func (f *fakeRemote) Upload(_ context.Context, data []byte, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	id := fmt.Sprintf("R%d", f.next)
	f.items = append(f.items, models.RemoteItem{ID: id, Size: int64(len(data)), OriginalName: filename})
	f.uploads = append(f.uploads, filename)
	f.data[id] = data

	return id, nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := slices.IndexFunc(f.items, func(it models.RemoteItem) bool { return it.ID == id })
	if idx < 0 {
		return fmt.Errorf("item %s not found", id)
	}

	f.items = slices.Delete(f.items, idx, idx+1)
	f.deletes = append(f.deletes, id)

	return nil
}

func (f *fakeRemote) URL(id string) string {
	return "https://assets.example.test/" + id
}

// drop removes an item behind the syncer's back, as if deleted on the server.
func (f *fakeRemote) drop(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = slices.DeleteFunc(f.items, func(it models.RemoteItem) bool { return it.ID == id })
}

func (f *fakeRemote) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.uploads)
}

// fakeAudioRemote is a fakeRemote that also provides TTS markup.
type fakeAudioRemote struct {
	*fakeRemote
}

func (f fakeAudioRemote) TTS(id string) string {
	return "<speaker audio=\"test/" + id + ".opus\">"
}

// writeAsset creates dir/name with the given content and mtime.
func writeAsset(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	return path
}

// assetDir returns a temp dir holding the given files at baseTime, plus
// the glob pattern and a manifest path for it.
func assetDir(t *testing.T, names ...string) (dir, pattern, manifest string) {
	t.Helper()

	dir = t.TempDir()
	for _, name := range names {
		writeAsset(t, dir, name, "content of "+name, baseTime)
	}

	return dir, filepath.Join(dir, "*.png"), filepath.Join(dir, "manifest", "images.json")
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}
