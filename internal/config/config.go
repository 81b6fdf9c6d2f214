package config

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

// Config holds all environment-based configuration for asset-sync.
type Config struct {
	// Dialogs API credentials. Required by every command that talks to the
	// remote; see RequireCredentials.
	Token   string `env:"ALICE_TOKEN"`
	SkillID string `env:"ALICE_SKILL_ID"`

	APIURL         string        `env:"ALICE_API_URL" envDefault:"https://dialogs.yandex.net/api/v1"`
	RequestTimeout time.Duration `env:"ALICE_REQUEST_TIMEOUT" envDefault:"5s"`

	// Uploads and deletes in flight at once.
	UploadConcurrency int `env:"UPLOAD_CONCURRENCY" envDefault:"4"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// JournalPath is empty unless set; the CLI then uses
	// journal.DefaultPath.
	JournalPath string `env:"JOURNAL_PATH"`

	PreviewListenAddr string `env:"PREVIEW_LISTEN_ADDR" envDefault:":3000"`

	// TargetsFile is the default for the --targets flag.
	TargetsFile string `env:"ASSET_SYNC_TARGETS"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. It holds the OAuth token.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %w", errs.ErrConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.UploadConcurrency < 1 {
		return fmt.Errorf("%w: UPLOAD_CONCURRENCY must be at least 1, got %d", errs.ErrConfig, c.UploadConcurrency)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: ALICE_REQUEST_TIMEOUT must be positive, got %s", errs.ErrConfig, c.RequestTimeout)
	}

	if c.APIURL == "" {
		return fmt.Errorf("%w: ALICE_API_URL must not be empty", errs.ErrConfig)
	}

	return nil
}

// RequireCredentials reports a missing token or skill ID. Commands that
// only read local state skip it.
func (c *Config) RequireCredentials() error {
	if c.Token == "" {
		return fmt.Errorf("%w: ALICE_TOKEN is required", errs.ErrConfig)
	}

	if c.SkillID == "" {
		return fmt.Errorf("%w: ALICE_SKILL_ID is required", errs.ErrConfig)
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
