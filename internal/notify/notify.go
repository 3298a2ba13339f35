// Package notify raises desktop notifications for map events.
package notify

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/example/mapforge/internal/platform"
)

// Event identifies a notification trigger.
type Event string

const (
	// EventSave fires when map content reaches the store.
	EventSave Event = "save"
	// EventError fires when a save fails.
	EventError Event = "error"
	// EventCopy fires when a rendered map is put on the clipboard.
	EventCopy Event = "copy"
	// EventExport fires when a map is written to a file.
	EventExport Event = "export"
)

// Preferences holds the title and per-event message templates. Each template
// takes one %s for the event detail.
type Preferences struct {
	Title     string
	Templates map[Event]string
}

type envOverrides struct {
	Title  string `env:"MAPFORGE_NOTIFY_TITLE"`
	Save   string `env:"MAPFORGE_NOTIFY_SAVE_TEXT"`
	Error  string `env:"MAPFORGE_NOTIFY_ERROR_TEXT"`
	Copy   string `env:"MAPFORGE_NOTIFY_COPY_TEXT"`
	Export string `env:"MAPFORGE_NOTIFY_EXPORT_TEXT"`
}

// DefaultPreferences returns the built-in notification text.
func DefaultPreferences() Preferences {
	return Preferences{
		Title: "mapforge",
		Templates: map[Event]string{
			EventSave:   "Saved %s",
			EventError:  "Could not save %s",
			EventCopy:   "Copied %s to clipboard",
			EventExport: "Exported %s",
		},
	}
}

// LoadPreferences applies MAPFORGE_NOTIFY_* environment overrides to the
// defaults.
func LoadPreferences() Preferences {
	prefs := DefaultPreferences()
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		log.Printf("notify env: %v", err)
	}
	if v := strings.TrimSpace(o.Title); v != "" {
		prefs.Title = v
	}
	for ev, v := range map[Event]string{EventSave: o.Save, EventError: o.Error, EventCopy: o.Copy, EventExport: o.Export} {
		if v = strings.TrimSpace(v); v != "" {
			prefs.Templates[ev] = v
		}
	}
	return prefs
}

// Sender delivers one notification.
type Sender func(title, body string, opts platform.Options) error

// Notifier sends notifications for the enabled events.
type Notifier struct {
	prefs   Preferences
	enabled map[Event]bool
	send    Sender
	icon    string
}

// New creates a Notifier with every event disabled.
func New(prefs Preferences) *Notifier {
	cloned := Preferences{Title: prefs.Title, Templates: make(map[Event]string, len(prefs.Templates))}
	for k, v := range prefs.Templates {
		cloned.Templates[k] = v
	}
	return &Notifier{prefs: cloned, enabled: make(map[Event]bool), send: platform.Notify}
}

// SetSender replaces the platform backend.
func (n *Notifier) SetSender(s Sender) {
	if n != nil && s != nil {
		n.send = s
	}
}

// SetIcon sets the icon used when an event carries none of its own.
func (n *Notifier) SetIcon(path string) {
	if n != nil {
		n.icon = path
	}
}

// Enable toggles the notifier for event.
func (n *Notifier) Enable(event Event, enabled bool) {
	if n == nil {
		return
	}
	n.enabled[event] = enabled
}

// Saved reports a successful save of the named map.
func (n *Notifier) Saved(mapName string) { n.dispatch(EventSave, mapName, platform.Options{}) }

// SaveFailed reports a failed save.
func (n *Notifier) SaveFailed(mapName string, err error) {
	detail := mapName
	if err != nil {
		detail = fmt.Sprintf("%s: %v", mapName, err)
	}
	n.dispatch(EventError, detail, platform.Options{Urgent: true})
}

// Copied reports a clipboard copy.
func (n *Notifier) Copied(detail string) {
	if strings.TrimSpace(detail) == "" {
		detail = "map"
	}
	n.dispatch(EventCopy, detail, platform.Options{})
}

// Exported reports a file written to path. PNG exports are used as the icon.
func (n *Notifier) Exported(path string) {
	detail := strings.TrimSpace(path)
	opts := platform.Options{}
	if abs, err := filepath.Abs(path); err == nil {
		detail = abs
		if strings.EqualFold(filepath.Ext(abs), ".png") {
			if _, err := os.Stat(abs); err == nil {
				opts.IconPath = abs
			}
		}
	}
	n.dispatch(EventExport, detail, opts)
}

func (n *Notifier) dispatch(event Event, detail string, opts platform.Options) {
	if n == nil || !n.enabled[event] {
		return
	}
	tmpl := strings.TrimSpace(n.prefs.Templates[event])
	if tmpl == "" {
		return
	}
	body := strings.TrimSpace(fmt.Sprintf(tmpl, strings.TrimSpace(detail)))
	if body == "" {
		return
	}
	if opts.IconPath == "" {
		opts.IconPath = n.icon
	}
	if err := n.send(n.prefs.Title, body, opts); err != nil {
		log.Printf("notification %s: %v", event, err)
	}
}
