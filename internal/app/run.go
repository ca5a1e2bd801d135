package app

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ndinh/deckhand/internal/api"
	"github.com/ndinh/deckhand/internal/credential"
	"github.com/ndinh/deckhand/internal/logger"
	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/store"
)

// Run bootstraps the application: config, logger, offline cache, stored
// session token, and the Bubble Tea program.
func Run() error {
	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	cachePath := model.DefaultCachePath()
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	cache, err := store.NewSQLiteStore(cachePath)
	if err != nil {
		return fmt.Errorf("opening offline cache: %w", err)
	}
	defer cache.Close()

	// A missing token just means the device flow runs first.
	token, err := credential.Get(credential.TokenKey)
	if err != nil {
		log.Info("no stored session token, starting login flow")
		token = ""
	}

	m := New(Options{
		Config:        cfg,
		Client:        api.NewClient(cfg.Server.BaseURL, token),
		Cache:         cache,
		Logger:        log,
		Authenticated: token != "",
	})

	log.Info("starting deckhand",
		zap.String("server", cfg.Server.BaseURL),
		zap.Int("poll_interval_sec", cfg.Feed.PollIntervalSec),
	)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
