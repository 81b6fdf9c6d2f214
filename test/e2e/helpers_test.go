package e2e_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/asset-sync/internal/alice"
	"github.com/alexjbarnes/asset-sync/internal/alice/alicetest"
	"github.com/alexjbarnes/asset-sync/internal/assetsync"
	"github.com/alexjbarnes/asset-sync/internal/journal"
	"github.com/alexjbarnes/asset-sync/internal/logging"
)

const (
	testToken = "e2e-token"
	testSkill = "e2e-skill"
)

// harness wires the real client, syncer and journal against an in-memory
// dialogs API.
type harness struct {
	api      *alicetest.Server
	client   *alice.Client
	journal  *journal.Journal
	dir      string
	pattern  string
	manifest string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	api := alicetest.NewServer(testToken, testSkill)
	t.Cleanup(api.Close)

	client, err := alice.NewClient(alice.Options{
		Token:   testToken,
		SkillID: testSkill,
		BaseURL: api.URL,
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	dir := t.TempDir()

	j, err := journal.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return &harness{
		api:      api,
		client:   client,
		journal:  j,
		dir:      dir,
		pattern:  filepath.Join(dir, "assets", "**", "*.png"),
		manifest: filepath.Join(dir, "manifest", "images.json"),
	}
}

func (h *harness) syncer(remote assetsync.Remote) *assetsync.Syncer {
	return assetsync.NewSyncer(remote, assetsync.Config{
		Concurrency: 2,
		Logger:      logging.Discard(),
		Recorder:    h.journal,
	})
}

func (h *harness) upload(t *testing.T) *assetsync.UploadResult {
	t.Helper()

	result, err := h.syncer(h.client.Images()).UploadChanged(t.Context(), assetsync.UploadOptions{
		Target:       "cards",
		Pattern:      h.pattern,
		ManifestPath: h.manifest,
	})
	require.NoError(t, err)

	return result
}

func (h *harness) deleteUnused(t *testing.T) *assetsync.UnusedResult {
	t.Helper()

	result, err := h.syncer(h.client.Images()).DeleteUnused(t.Context(), assetsync.DeleteOptions{
		Target:       "cards",
		ManifestPath: h.manifest,
	})
	require.NoError(t, err)

	return result
}

// writeAsset writes dir/assets/name and sets its modification time.
func (h *harness) writeAsset(t *testing.T, name, content string, mtime time.Time) string {
	t.Helper()

	path := filepath.Join(h.dir, "assets", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	return path
}

func actions(result *assetsync.UploadResult) map[string]assetsync.Action {
	out := make(map[string]assetsync.Action, len(result.Items))
	for _, item := range result.Items {
		out[item.StableID] = item.Action
	}

	return out
}
