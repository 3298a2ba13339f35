package theme

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader resolves theme names to theme files.
type Loader struct {
	ConfigDir string
	SystemDir string
}

// NewLoader creates a Loader with the standard search paths.
func NewLoader() *Loader {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return &Loader{
		ConfigDir: filepath.Join(dir, "mapforge", "themes"),
		SystemDir: "/usr/share/mapforge/themes",
	}
}

// Load finds a theme by name or path.
// Order:
// 1. An existing file path.
// 2. Embedded themes.
// 3. ConfigDir.
// 4. SystemDir.
// An empty name yields Default.
func (l *Loader) Load(name string) (*Theme, error) {
	if name == "" {
		return Default(), nil
	}
	if st, err := os.Stat(name); err == nil && !st.IsDir() {
		return parseFile(name)
	}

	filename := name
	if !strings.HasSuffix(filename, ".theme") {
		filename += ".theme"
	}

	if f, err := EmbeddedThemes.Open("defaults/" + filename); err == nil {
		defer f.Close()
		return Parse(f)
	}
	for _, dir := range []string{l.ConfigDir, l.SystemDir} {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, filename)
		if _, err := os.Stat(p); err == nil {
			return parseFile(p)
		}
	}
	return nil, fmt.Errorf("theme %q not found", name)
}

// Names lists every theme reachable by name, without the .theme suffix.
func (l *Loader) Names() []string {
	seen := map[string]bool{}
	add := func(entries []fs.DirEntry) {
		for _, e := range entries {
			if n, ok := strings.CutSuffix(e.Name(), ".theme"); ok && !e.IsDir() {
				seen[n] = true
			}
		}
	}
	if entries, err := fs.ReadDir(EmbeddedThemes, "defaults"); err == nil {
		add(entries)
	}
	for _, dir := range []string{l.ConfigDir, l.SystemDir} {
		if entries, err := os.ReadDir(dir); err == nil {
			add(entries)
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func parseFile(path string) (*Theme, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
