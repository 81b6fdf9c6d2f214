package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

// clearConfigEnv unsets all config env vars so tests start clean.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"ALICE_TOKEN",
		"ALICE_SKILL_ID",
		"ALICE_API_URL",
		"ALICE_REQUEST_TIMEOUT",
		"UPLOAD_CONCURRENCY",
		"ENVIRONMENT",
		"JOURNAL_PATH",
		"PREVIEW_LISTEN_ADDR",
		"ASSET_SYNC_TARGETS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://dialogs.yandex.net/api/v1", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.UploadConcurrency)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":3000", cfg.PreviewListenAddr)
	assert.Empty(t, cfg.JournalPath)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ALICE_TOKEN", "tok")
	t.Setenv("ALICE_SKILL_ID", "skill")
	t.Setenv("ALICE_API_URL", "http://localhost:9999")
	t.Setenv("ALICE_REQUEST_TIMEOUT", "1500ms")
	t.Setenv("UPLOAD_CONCURRENCY", "8")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JOURNAL_PATH", "/tmp/j.db")
	t.Setenv("PREVIEW_LISTEN_ADDR", "127.0.0.1:8080")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "skill", cfg.SkillID)
	assert.Equal(t, "http://localhost:9999", cfg.APIURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 8, cfg.UploadConcurrency)
	assert.Equal(t, "/tmp/j.db", cfg.JournalPath)
	assert.Equal(t, "127.0.0.1:8080", cfg.PreviewListenAddr)
	assert.True(t, cfg.IsProduction())
	assert.NoError(t, cfg.RequireCredentials())
}

func TestLoad_InvalidConcurrency(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("UPLOAD_CONCURRENCY", "0")

	_, err := Load()
	require.ErrorIs(t, err, errs.ErrConfig)
	assert.Contains(t, err.Error(), "UPLOAD_CONCURRENCY")
}

func TestLoad_UnparsableTimeout(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ALICE_REQUEST_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestLoad_NegativeTimeout(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ALICE_REQUEST_TIMEOUT", "-1s")

	_, err := Load()
	require.ErrorIs(t, err, errs.ErrConfig)
	assert.Contains(t, err.Error(), "ALICE_REQUEST_TIMEOUT")
}

// --- RequireCredentials ---

func TestRequireCredentials(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"both set", Config{Token: "t", SkillID: "s"}, ""},
		{"missing token", Config{SkillID: "s"}, "ALICE_TOKEN"},
		{"missing skill", Config{Token: "t"}, "ALICE_SKILL_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.RequireCredentials()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, errs.ErrConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
