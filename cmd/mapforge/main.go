package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/example/mapforge/assets"
	"github.com/example/mapforge/internal/config"
	"github.com/example/mapforge/internal/notify"
	"github.com/example/mapforge/internal/store/sqlite"
	"github.com/example/mapforge/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs           *flag.FlagSet
	program      string
	notifier     *notify.Notifier
	config       *config.Config
	saveAlerts   bool
	errorAlerts  bool
	copyAlerts   bool
	exportAlerts bool
	themeName    string
	storePath    string
	activeTheme  *theme.Theme
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	prefs := notify.LoadPreferences()
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}

	r := &root{
		fs:       flag.NewFlagSet("mapforge", flag.ExitOnError),
		program:  "mapforge",
		notifier: notify.New(prefs),
		config:   cfg,
	}
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after each autosave")
	r.fs.BoolVar(&r.errorAlerts, "notify-error", cfg.Notify.Error, "show a desktop notification when a save fails")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")
	r.fs.BoolVar(&r.exportAlerts, "notify-export", cfg.Notify.Export, "show a desktop notification after writing a file")

	// Precedence: CLI > Env > Config > Default. The loader has already
	// folded the environment into cfg.
	r.fs.StringVar(&r.themeName, "theme", "", "color theme to use (default, dark, parchment or a theme file)")
	r.fs.StringVar(&r.storePath, "store", "", "map database path")
	r.fs.Usage = usageFunc(r)
	return r
}

// resolveTheme picks the theme named by flag or config, falling back to the
// built-in default with a warning.
func (r *root) resolveTheme() *theme.Theme {
	name := r.themeName
	if name == "" {
		name = r.config.Theme
	}
	if t, ok := r.config.LookupTheme(name); ok {
		return t
	}
	t, err := theme.NewLoader().Load(name)
	if err != nil {
		if name != "" && !strings.EqualFold(name, "default") {
			fmt.Fprintf(os.Stderr, "warning: failed to load theme '%s': %v. using default.\n", name, err)
		}
		return theme.Default()
	}
	return t
}

// openStore opens the map database named by -store, the config or the
// default location, in that order.
func (r *root) openStore() (*sqlite.Store, error) {
	path := r.storePath
	if path == "" && r.config != nil {
		path = r.config.Store
	}
	if path == "" {
		path = config.DefaultStorePath()
	}
	if path == "" {
		return nil, errors.New("no map store path: pass -store")
	}
	st, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map store: %w", err)
	}
	return st, nil
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	if r.notifier != nil {
		r.notifier.Enable(notify.EventSave, r.saveAlerts)
		r.notifier.Enable(notify.EventError, r.errorAlerts)
		r.notifier.Enable(notify.EventCopy, r.copyAlerts)
		r.notifier.Enable(notify.EventExport, r.exportAlerts)
		if r.saveAlerts || r.errorAlerts || r.copyAlerts || r.exportAlerts {
			if icon, err := assets.IconFile(); err == nil {
				r.notifier.SetIcon(icon)
			} else {
				log.Printf("notification icon: %v", err)
			}
		}
	}
	r.activeTheme = r.resolveTheme()

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "new":
		cmd, err = parseNewCmd(subArgs, r)
	case "list":
		cmd, err = parseListCmd(subArgs, r)
	case "edit":
		cmd, err = parseEditCmd(subArgs, r)
	case "render":
		cmd, err = parseRenderCmd(subArgs, r)
	case "export":
		cmd, err = parseExportCmd(subArgs, r)
	case "delete":
		cmd, err = parseDeleteCmd(subArgs, r)
	case "themes":
		cmd, err = parseThemesCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (r *root) notifyCopy(detail string) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Copied(detail)
}

func (r *root) notifyExport(path string) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Exported(path)
}
