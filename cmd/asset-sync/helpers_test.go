package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/asset-sync/internal/alice/alicetest"
)

const (
	testToken = "tok"
	testSkill = "skill-1"
)

type cliEnv struct {
	api     *alicetest.Server
	dir     string
	journal string
}

// setupCLIEnv points the CLI at a fake dialogs API and a temporary journal.
func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	api := alicetest.NewServer(testToken, testSkill)
	t.Cleanup(api.Close)

	dir := t.TempDir()
	journal := filepath.Join(dir, "state", "journal.db")

	t.Setenv("ALICE_TOKEN", testToken)
	t.Setenv("ALICE_SKILL_ID", testSkill)
	t.Setenv("ALICE_API_URL", api.URL)
	t.Setenv("ALICE_REQUEST_TIMEOUT", "2s")
	t.Setenv("UPLOAD_CONCURRENCY", "2")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JOURNAL_PATH", journal)
	t.Setenv("ASSET_SYNC_TARGETS", "")

	return &cliEnv{api: api, dir: dir, journal: journal}
}

// writeFile creates dir/name with content and returns the full path.
func (e *cliEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func (e *cliEnv) pattern() string  { return filepath.Join(e.dir, "assets", "*.png") }
func (e *cliEnv) manifest() string { return filepath.Join(e.dir, "manifest.json") }

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	return runCLIContext(t, context.Background(), args...)
}

func runCLIContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := cmd.ExecuteContext(ctx)

	return stdout.String(), stderr.String(), err
}
