package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/asset-sync/internal/alice"
	"github.com/alexjbarnes/asset-sync/internal/assetsync"
	"github.com/alexjbarnes/asset-sync/internal/config"
	"github.com/alexjbarnes/asset-sync/internal/journal"
	"github.com/alexjbarnes/asset-sync/internal/logging"
)

// commandContext lazily loads configuration and builds the collaborators
// shared by subcommands.
type commandContext struct {
	targetsFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(targetsFlag *string) *commandContext {
	return &commandContext{targetsFlag: targetsFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = fmt.Errorf("loading config: %w", err)
			return
		}

		c.config = cfg
	})

	return c.config, c.configErr
}

func (c *commandContext) targetsFile(cfg *config.Config) string {
	if c.targetsFlag != nil && strings.TrimSpace(*c.targetsFlag) != "" {
		return strings.TrimSpace(*c.targetsFlag)
	}

	return cfg.TargetsFile
}

func (c *commandContext) logger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLoggerTo(cfg.Environment, cmd.ErrOrStderr())
}

func (c *commandContext) client(cfg *config.Config) (*alice.Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	return alice.NewClient(alice.Options{
		Token:   cfg.Token,
		SkillID: cfg.SkillID,
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
	})
}

func (c *commandContext) collection(cfg *config.Config, kind string) (alice.Collection, error) {
	k, err := alice.ParseKind(kind)
	if err != nil {
		return nil, err
	}

	client, err := c.client(cfg)
	if err != nil {
		return nil, err
	}

	return client.Collection(k)
}

func (c *commandContext) journalPath(cfg *config.Config) (string, error) {
	if cfg.JournalPath != "" {
		return cfg.JournalPath, nil
	}

	return journal.DefaultPath()
}

func (c *commandContext) openJournal(cfg *config.Config) (*journal.Journal, error) {
	path, err := c.journalPath(cfg)
	if err != nil {
		return nil, err
	}

	return journal.Open(path)
}

// syncer builds a Syncer for target. When record is set, completed runs
// are written to the journal; the returned close function releases it.
func (c *commandContext) syncer(cmd *cobra.Command, cfg *config.Config, target config.Target, record bool) (*assetsync.Syncer, func(), error) {
	remote, err := c.collection(cfg, target.Kind)
	if err != nil {
		return nil, nil, err
	}

	logger := c.logger(cmd, cfg)
	syncCfg := assetsync.Config{
		Concurrency: cfg.UploadConcurrency,
		Logger:      logger,
	}
	closeFn := func() {}

	if record {
		j, err := c.openJournal(cfg)
		if err != nil {
			return nil, nil, err
		}

		syncCfg.Recorder = j
		closeFn = func() {
			if err := j.Close(); err != nil {
				logger.Warn("closing journal", slog.String("error", err.Error()))
			}
		}
	}

	return assetsync.NewSyncer(remote, syncCfg), closeFn, nil
}
