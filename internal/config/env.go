package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envOverrides mirrors the settings that may be overridden from the
// environment. Zero values mean "not set".
type envOverrides struct {
	Theme         string        `env:"MAPFORGE_THEME"`
	Store         string        `env:"MAPFORGE_STORE"`
	AutosaveDelay time.Duration `env:"MAPFORGE_AUTOSAVE_DELAY"`
	SnapThreshold float64       `env:"MAPFORGE_SNAP_THRESHOLD"`
	FeedURL       string        `env:"MAPFORGE_FEED_URL"`
}

// ApplyEnv overlays MAPFORGE_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Theme != "" {
		cfg.Theme = o.Theme
	}
	if o.Store != "" {
		cfg.Store = o.Store
	}
	if o.AutosaveDelay > 0 {
		cfg.Editor.AutosaveDelay = o.AutosaveDelay
	}
	if o.SnapThreshold > 0 {
		cfg.Editor.SnapThreshold = o.SnapThreshold
	}
	if o.FeedURL != "" {
		cfg.Session.FeedURL = o.FeedURL
	}
	return nil
}
