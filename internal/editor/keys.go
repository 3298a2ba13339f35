package editor

import (
	"strings"
	"unicode"

	"golang.org/x/mobile/event/key"

	"github.com/example/mapforge/internal/content"
)

// KeyShortcut describes a keyboard combination that triggers an action.
// Printable keys match on Rune, others on Code.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

const modMask = key.ModShift | key.ModControl | key.ModAlt | key.ModMeta

var keyboardAction = map[KeyShortcut]string{
	{Rune: 'p'}: "tool:pan",
	{Rune: 't'}: "tool:terrain",
	{Rune: 'r'}: "tool:path",
	{Rune: 'l'}: "tool:label",
	{Rune: 'e'}: "tool:erase",
	{Rune: 'w'}: "tool:wall",
	{Rune: 'f'}: "tool:feature",

	{Rune: '1'}: "sub:1",
	{Rune: '2'}: "sub:2",
	{Rune: '3'}: "sub:3",
	{Rune: '4'}: "sub:4",
	{Rune: '5'}: "sub:5",

	{Rune: 'z'}:                          "rotate",
	{Rune: 'z', Modifiers: key.ModShift}: "rotate-back",

	{Code: key.CodeReturnEnter}:     "finish",
	{Code: key.CodeEscape}:          "cancel",
	{Code: key.CodeDeleteForward}:   "delete",
	{Code: key.CodeDeleteBackspace}: "delete",
}

// Shortcuts returns the action bound to every editor shortcut.
func Shortcuts() map[KeyShortcut]string {
	out := make(map[KeyShortcut]string, len(keyboardAction))
	for k, v := range keyboardAction {
		out[k] = v
	}
	return out
}

func lookupAction(ev key.Event) (string, bool) {
	mods := ev.Modifiers & modMask
	if ev.Rune > 0 {
		if a, ok := keyboardAction[KeyShortcut{Rune: unicode.ToLower(ev.Rune), Modifiers: mods}]; ok {
			return a, true
		}
	}
	a, ok := keyboardAction[KeyShortcut{Code: ev.Code, Modifiers: mods}]
	return a, ok
}

// Key handles a keyboard event and reports whether it was consumed.
func (e *Editor) Key(ev key.Event) bool {
	if ev.Code == key.CodeSpacebar && e.entry == nil {
		switch ev.Direction {
		case key.DirPress:
			if !e.spaceHeld {
				e.spaceHeld = true
				e.painting = false
				e.drag = dragState{}
				e.requestRedraw()
			}
		case key.DirRelease:
			if e.spaceHeld {
				e.spaceHeld = false
				e.vp.EndPan()
				e.requestRedraw()
			}
		}
		return true
	}
	if ev.Direction == key.DirRelease {
		return false
	}
	if e.entry != nil {
		return e.entryKey(ev)
	}
	action, ok := lookupAction(ev)
	if !ok {
		return false
	}
	switch {
	case strings.HasPrefix(action, "tool:"):
		t, err := ParseTool(strings.TrimPrefix(action, "tool:"))
		if err != nil {
			return false
		}
		e.SetTool(t)
		return true
	case strings.HasPrefix(action, "sub:"):
		return e.selectSubType(int(action[len(action)-1] - '0'))
	}
	switch action {
	case "rotate":
		return e.Rotate(false)
	case "rotate-back":
		return e.Rotate(true)
	case "finish":
		if len(e.draft) > 0 {
			e.FinishPath()
			e.requestRedraw()
			return true
		}
		return false
	case "cancel":
		e.Cancel()
		return true
	case "delete":
		return e.DeleteSelection()
	}
	return false
}

func (e *Editor) entryKey(ev key.Event) bool {
	switch ev.Code {
	case key.CodeReturnEnter:
		e.CommitLabel()
	case key.CodeEscape:
		e.CancelLabel()
	case key.CodeDeleteBackspace:
		e.Backspace()
	default:
		if ev.Modifiers&(key.ModControl|key.ModMeta) != 0 {
			return false
		}
		if ev.Rune > 0 {
			e.TypeRune(ev.Rune)
		}
	}
	return true
}

// selectSubType applies a numeric shortcut to the active tool: path type
// 1-5, label size 1-4, wall add (1) or remove (2).
func (e *Editor) selectSubType(n int) bool {
	switch e.Tool() {
	case ToolPath:
		if n >= 1 && n <= 5 {
			e.SetPathType(content.PathType(n - 1))
			return true
		}
	case ToolLabel:
		if n >= 1 && n <= 4 {
			e.SetLabelSize(content.LabelSize(n - 1))
			return true
		}
	case ToolWall:
		switch n {
		case 1:
			e.SetWallMode(true)
			return true
		case 2:
			e.SetWallMode(false)
			return true
		}
	case ToolTerrain:
		if n >= 1 && n <= len(content.TerrainTypes) {
			e.SetTerrain(content.TerrainTypes[n-1])
			return true
		}
	case ToolFeature:
		if n >= 1 && n <= len(content.Features) {
			e.SetFeatureType(content.Features[n-1].Name)
			return true
		}
	}
	return false
}

func trimLabel(s string) string { return strings.TrimSpace(s) }
