package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/mapforge/internal/theme"
)

// Editor holds canvas and autosave settings.
type Editor struct {
	AutosaveDelay time.Duration
	SavedHold     time.Duration
	SnapThreshold float64
	CellSize      float64
}

// Notify selects which events raise a desktop notification.
type Notify struct {
	Save   bool
	Error  bool
	Copy   bool
	Export bool
}

// Session holds multiplayer overlay settings.
type Session struct {
	FeedURL string
}

// Config holds the application configuration.
type Config struct {
	Theme   string
	Store   string
	Editor  Editor
	Notify  Notify
	Session Session
	Themes  map[string]*theme.Theme
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		Editor: Editor{
			AutosaveDelay: 2 * time.Second,
			SavedHold:     2 * time.Second,
			SnapThreshold: 15,
			CellSize:      40,
		},
		Notify: Notify{Error: true},
		Themes: make(map[string]*theme.Theme),
	}
}

// LookupTheme returns a theme defined inline in the rc file.
func (c *Config) LookupTheme(name string) (*theme.Theme, bool) {
	t, ok := c.Themes[name]
	return t, ok
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.Store != "" {
		fmt.Fprintf(&sb, "store = %s\n", c.Store)
	}
	sb.WriteString("\n")

	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "autosave_delay = %s\n", c.Editor.AutosaveDelay)
	fmt.Fprintf(&sb, "saved_hold = %s\n", c.Editor.SavedHold)
	fmt.Fprintf(&sb, "snap_threshold = %g\n", c.Editor.SnapThreshold)
	fmt.Fprintf(&sb, "cell_size = %g\n", c.Editor.CellSize)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "error = %v\n", c.Notify.Error)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	fmt.Fprintf(&sb, "export = %v\n", c.Notify.Export)
	sb.WriteString("\n")

	if c.Session.FeedURL != "" {
		sb.WriteString("[session]\n")
		fmt.Fprintf(&sb, "feed_url = %s\n", c.Session.FeedURL)
		sb.WriteString("\n")
	}

	names := make([]string, 0, len(c.Themes))
	for name := range c.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		_ = theme.Format(&sb, c.Themes[name])
		sb.WriteString("\n")
	}
	return sb.String()
}
