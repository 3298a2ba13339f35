package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/example/mapforge/internal/theme"
)

// Parse reads configuration from an io.Reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var section string
	var current *theme.Theme

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			current = nil
			if name, ok := strings.CutPrefix(section, "theme."); ok {
				current = theme.Default()
				current.Name = name
				cfg.Themes[name] = current
			}
			continue
		}

		key, value, ok := splitEntry(line)
		if !ok {
			continue
		}

		var err error
		switch {
		case current != nil:
			err = setThemeField(current, key, value)
		case section == "":
			setRootField(cfg, key, value)
		case section == "editor":
			err = setEditorField(&cfg.Editor, key, value)
		case section == "notify":
			err = setNotifyField(&cfg.Notify, key, value)
		case section == "session":
			if strings.EqualFold(key, "feed_url") {
				cfg.Session.FeedURL = value
			}
		}
		if err != nil {
			if section == "" {
				return nil, fmt.Errorf("error in root section: %w", err)
			}
			return nil, fmt.Errorf("error in section [%s]: %w", section, err)
		}
	}

	return cfg, scanner.Err()
}

// splitEntry accepts "key = value" and "Key: value".
func splitEntry(line string) (string, string, bool) {
	sep := "="
	if !strings.Contains(line, "=") {
		sep = ":"
	}
	key, value, ok := strings.Cut(line, sep)
	if !ok {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 && strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
		value = value[1 : len(value)-1]
	}
	return strings.TrimSpace(key), value, true
}

func setRootField(cfg *Config, key, value string) {
	switch strings.ToLower(key) {
	case "theme":
		cfg.Theme = value
	case "store":
		cfg.Store = value
	}
}

func setEditorField(e *Editor, key, value string) error {
	switch strings.ToLower(key) {
	case "autosave_delay", "saved_hold":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid duration for key %s: %q", key, value)
		}
		if strings.EqualFold(key, "autosave_delay") {
			e.AutosaveDelay = d
		} else {
			e.SavedHold = d
		}
	case "snap_threshold", "cell_size":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid number for key %s: %q", key, value)
		}
		if strings.EqualFold(key, "snap_threshold") {
			e.SnapThreshold = f
		} else {
			e.CellSize = f
		}
	}
	return nil
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	switch strings.ToLower(key) {
	case "save":
		n.Save = b
	case "error":
		n.Error = b
	case "copy":
		n.Copy = b
	case "export":
		n.Export = b
	}
	return nil
}

// setThemeField matches colour field names case-insensitively.
func setThemeField(t *theme.Theme, key, value string) error {
	if strings.EqualFold(key, "Name") {
		t.Name = value
		return nil
	}
	for _, field := range theme.ColorFields() {
		if !strings.EqualFold(field, key) {
			continue
		}
		col, err := theme.ParseColor(value)
		if err != nil {
			return fmt.Errorf("invalid color for key %s: %w", key, err)
		}
		t.SetColor(field, col)
		return nil
	}
	return nil
}
