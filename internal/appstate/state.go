// Package appstate runs the interactive map editor window: a toolbar, the
// map canvas and a status bar, driven by shiny's event loop.
package appstate

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
	"golang.org/x/mobile/event/touch"

	"github.com/example/mapforge/internal/clipboard"
	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/editor"
	"github.com/example/mapforge/internal/grid"
	"github.com/example/mapforge/internal/notify"
	"github.com/example/mapforge/internal/render"
	"github.com/example/mapforge/internal/session"
	"github.com/example/mapforge/internal/theme"
	"github.com/example/mapforge/internal/viewport"
)

const (
	defaultWidth  = 1024
	defaultHeight = 768

	messageDuration = 2 * time.Second
	closeTimeout    = 5 * time.Second
)

// AppState holds everything the editor window needs.
type AppState struct {
	Name  string
	Model *content.Model

	theme    *theme.Theme
	save     content.SaveFunc
	delay    time.Duration
	hold     time.Duration
	snapPx   float64
	feed     *session.Feed
	overlay  *session.Overlay
	notifier *notify.Notifier
	renderer *render.Renderer

	persister *content.Persister

	controlMu   sync.Mutex
	sendControl func(any)

	onClose   func()
	closeOnce sync.Once
}

// Option modifies an AppState during creation.
type Option func(*AppState)

// WithTheme sets the colour theme of the canvas and chrome.
func WithTheme(th *theme.Theme) Option { return func(a *AppState) { a.theme = th } }

// WithSaveFunc enables autosave through fn.
func WithSaveFunc(fn content.SaveFunc) Option { return func(a *AppState) { a.save = fn } }

// WithAutosave overrides the debounce delay and the saved-status hold.
func WithAutosave(delay, hold time.Duration) Option {
	return func(a *AppState) { a.delay, a.hold = delay, hold }
}

// WithSnapThreshold sets the snapping radius in screen pixels.
func WithSnapThreshold(px float64) Option { return func(a *AppState) { a.snapPx = px } }

// WithFeed attaches a live session feed. Its snapshots take precedence over
// a static overlay.
func WithFeed(f *session.Feed) Option { return func(a *AppState) { a.feed = f } }

// WithOverlay attaches a fixed session overlay.
func WithOverlay(o *session.Overlay) Option { return func(a *AppState) { a.overlay = o } }

// WithNotifier sends desktop notifications for saves and copies.
func WithNotifier(n *notify.Notifier) Option { return func(a *AppState) { a.notifier = n } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(a *AppState) { a.onClose = fn } }

// New creates an AppState editing m.
func New(name string, m *content.Model, opts ...Option) *AppState {
	a := &AppState{Name: name, Model: m, snapPx: editor.DefaultSnapThreshold}
	for _, o := range opts {
		o(a)
	}
	if a.theme == nil {
		a.theme = theme.Default()
	}
	a.renderer = render.New(render.WithTheme(a.theme))
	if a.save != nil {
		var popts []content.PersisterOption
		if a.delay > 0 {
			popts = append(popts, content.WithSaveDelay(a.delay))
		}
		if a.hold > 0 {
			popts = append(popts, content.WithSavedHold(a.hold))
		}
		popts = append(popts, content.WithStatusFunc(a.statusChanged))
		a.persister = content.NewPersister(m.Document, a.save, popts...).Attach(m)
	}
	return a
}

// Overlay returns the session state currently shown, or nil.
func (a *AppState) Overlay() *session.Overlay {
	if a.feed != nil {
		if o := a.feed.Overlay(); o != nil {
			return o
		}
	}
	return a.overlay
}

// Persister returns the autosave controller, or nil without a save func.
func (a *AppState) Persister() *content.Persister { return a.persister }

type statusEvent struct {
	status content.Status
	err    error
}

type messageEvent struct{ text string }

// overlayEvent asks for a repaint after a new session snapshot.
type overlayEvent struct{}

func (a *AppState) setControlSender(fn func(any)) {
	a.controlMu.Lock()
	a.sendControl = fn
	a.controlMu.Unlock()
}

func (a *AppState) control(ev any) {
	a.controlMu.Lock()
	send := a.sendControl
	a.controlMu.Unlock()
	if send != nil {
		send(ev)
	}
}

// statusChanged runs on the persister's timer goroutine.
func (a *AppState) statusChanged(s content.Status, err error) {
	a.control(statusEvent{status: s, err: err})
}

// OverlayChanged requests a repaint. It is safe to call from any goroutine
// and is meant for session.WithUpdateFunc.
func (a *AppState) OverlayChanged(*session.Overlay) { a.control(overlayEvent{}) }

func (a *AppState) notifyClose() {
	a.closeOnce.Do(func() {
		a.setControlSender(nil)
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if a.persister != nil {
			if err := a.persister.Close(ctx); err != nil {
				log.Printf("save %s on close: %v", a.Name, err)
			}
		}
		a.renderer.Close()
		if a.onClose != nil {
			a.onClose()
		}
	})
}

// Run executes the UI loop using shiny's driver.
func (a *AppState) Run() { driver.Main(a.Main) }

// layout tracks the window size and places the canvas between the toolbar
// and the status bar.
type layout struct {
	width, height int
	toolbarWidth  int
}

func (l *layout) canvas() image.Rectangle {
	return image.Rect(l.toolbarWidth, 0, max(l.width, l.toolbarWidth+1), max(l.height-statusHeight, 1))
}

// resize applies a size event. Only real window sizes reach the viewport,
// so its one-time centring uses the size the window actually got.
func (l *layout) resize(w, h int, vp *viewport.Viewport, g grid.Map) {
	l.width, l.height = w, h
	if w <= 0 || h <= 0 {
		return
	}
	r := l.canvas()
	mw, mh := g.PixelSize()
	vp.Measure(float64(r.Dx()), float64(r.Dy()), mw, mh)
}

// chromeImages is the finished chrome handed to the frame worker.
type chromeImages struct {
	toolbar *image.RGBA
	status  *image.RGBA
}

func (a *AppState) Main(s screen.Screen) {
	g := a.Model.Grid()
	tools := editor.Tools(g.Type)

	w, err := s.NewWindow(&screen.NewWindowOptions{Width: defaultWidth, Height: defaultHeight, Title: "mapforge: " + a.Name})
	if err != nil {
		log.Printf("new window: %v", err)
		return
	}
	defer w.Release()
	defer a.notifyClose()

	a.setControlSender(func(ev any) { w.Send(ev) })

	var message string
	var messageUntil time.Time
	say := func(msg string) {
		message = msg
		messageUntil = time.Now().Add(messageDuration)
		log.Print(msg)
		w.Send(paint.Event{})
	}
	saveStatus, saveErr := content.StatusIdle, error(nil)

	vp := viewport.New()
	eopts := []editor.Option{
		editor.WithOverlay(a.Overlay),
		editor.WithRedraw(func() { w.Send(paint.Event{}) }),
		editor.WithMessage(say),
		editor.WithSnapThreshold(a.snapPx),
	}
	if a.feed != nil {
		eopts = append(eopts, editor.WithIntentSink(a.feed))
	}
	ed := editor.New(a.Model, vp, eopts...)
	ui := newChrome(a.theme, tools, func(t editor.Tool) { ed.SetTool(t) })

	lay := &layout{width: defaultWidth, height: defaultHeight, toolbarWidth: ui.toolbarWidth}
	canvasRect := lay.canvas

	var latestChrome atomic.Pointer[chromeImages]
	var canvas *image.RGBA
	sched := render.NewScheduler(func(ctx context.Context, f render.Frame) {
		if canvas == nil || canvas.Bounds().Dx() != f.Width || canvas.Bounds().Dy() != f.Height {
			canvas = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		}
		if err := a.renderer.Render(ctx, canvas, f); err != nil {
			return
		}
		ch := latestChrome.Load()
		if ch == nil {
			return
		}
		winW := ch.toolbar.Bounds().Dx() + f.Width
		winH := f.Height + ch.status.Bounds().Dy()
		b, err := s.NewBuffer(image.Point{winW, winH})
		if err != nil {
			log.Printf("new buffer: %v", err)
			return
		}
		defer b.Release()
		dst := b.RGBA()
		draw.Draw(dst, ch.toolbar.Bounds(), ch.toolbar, image.Point{}, draw.Src)
		draw.Draw(dst, canvas.Bounds().Add(image.Pt(ch.toolbar.Bounds().Dx(), 0)), canvas, image.Point{}, draw.Src)
		draw.Draw(dst, ch.status.Bounds().Add(image.Pt(0, f.Height)), ch.status, image.Point{}, draw.Src)
		if ctx.Err() != nil {
			return
		}
		w.Upload(image.Point{}, b, b.Bounds())
		w.Publish()
	})
	defer sched.Close()

	keyboardAction := map[KeyShortcut]string{}
	actions := map[string]func(){}
	editorKeys := editor.Shortcuts()
	register := func(name string, keys KeyboardShortcuts, fn func()) {
		actions[name] = fn
		if keys != nil {
			for _, sc := range keys.KeyboardShortcuts() {
				if prev, ok := editorKeys[sc]; ok {
					log.Printf("shortcut for %s is taken by editor action %s", name, prev)
				}
				keyboardAction[sc] = name
			}
		}
	}
	zoomAtCentre := func(in bool) {
		r := canvasRect()
		if vp.ZoomToward(grid.Point{X: float64(r.Dx()) / 2, Y: float64(r.Dy()) / 2}, in) {
			w.Send(paint.Event{})
		}
	}

	register("save", shortcutList{{Rune: 's', Modifiers: key.ModControl}}, func() {
		if a.persister == nil {
			say("no map store attached")
			return
		}
		go func() {
			if err := a.persister.Flush(context.Background()); err != nil {
				log.Printf("save %s: %v", a.Name, err)
			}
		}()
	})
	register("copy", shortcutList{{Rune: 'c', Modifiers: key.ModControl}}, func() {
		overlay := a.Overlay()
		go func() {
			img, err := a.renderer.RenderMap(context.Background(), a.Model, overlay, 1)
			if err == nil {
				err = clipboard.WriteImage(img)
			}
			if err != nil {
				log.Printf("copy: %v", err)
				a.control(messageEvent{text: fmt.Sprintf("copy failed: %v", err)})
				return
			}
			if a.notifier != nil {
				a.notifier.Copied(a.Name)
			}
			a.control(messageEvent{text: "map copied to clipboard"})
		}()
	})
	register("zoom-in", shortcutList{{Rune: '+'}, {Rune: '='}, {Code: key.CodeKeypadPlusSign}}, func() { zoomAtCentre(true) })
	register("zoom-out", shortcutList{{Rune: '-'}, {Code: key.CodeKeypadHyphenMinus}}, func() { zoomAtCentre(false) })

	trigger := func(action string) {
		if fn, ok := actions[action]; ok {
			fn()
		}
		w.Send(paint.Event{})
	}

	windowKey := func(e key.Event) bool {
		if e.Direction == key.DirRelease {
			return false
		}
		mods := e.Modifiers & (key.ModShift | key.ModControl | key.ModAlt | key.ModMeta)
		candidates := []KeyShortcut{{Code: e.Code, Modifiers: mods}}
		if e.Rune > 0 {
			r := e.Rune
			if mods&key.ModControl != 0 && r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			candidates = append([]KeyShortcut{{Rune: r, Modifiers: mods}, {Rune: r, Modifiers: mods &^ key.ModShift}}, candidates...)
		}
		for _, sc := range candidates {
			if name, ok := keyboardAction[sc]; ok {
				trigger(name)
				return true
			}
		}
		return false
	}

	toCanvas := func(x, y float32) (grid.Point, bool) {
		r := canvasRect()
		p := image.Pt(int(x), int(y))
		return grid.Point{X: float64(x) - float64(r.Min.X), Y: float64(y) - float64(r.Min.Y)}, p.In(r)
	}
	inCanvas := false
	middlePan := false

	for {
		e := w.NextEvent()
		switch e := e.(type) {
		case statusEvent:
			saveStatus, saveErr = e.status, e.err
			switch e.status {
			case content.StatusSaved:
				if a.notifier != nil {
					a.notifier.Saved(a.Name)
				}
			case content.StatusError:
				log.Printf("save %s: %v", a.Name, e.err)
				if a.notifier != nil {
					a.notifier.SaveFailed(a.Name, e.err)
				}
			}
			w.Send(paint.Event{})
		case messageEvent:
			say(e.text)
		case overlayEvent:
			w.Send(paint.Event{})
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return
			}
			if e.Crosses(lifecycle.StageFocused) == lifecycle.CrossOff {
				ed.PointerLeave()
				vp.CancelGestures()
			}
		case size.Event:
			lay.resize(e.WidthPx, e.HeightPx, vp, g)
			w.Send(paint.Event{})
		case paint.Event:
			if message != "" && time.Now().After(messageUntil) {
				message = ""
			}
			opts := subOptions(ed, a.theme)
			ui.setOptions(opts)
			r := canvasRect()
			st := status{tool: ed.Tool(), zoom: vp.ZoomPercent(), save: saveStatus, saveErr: saveErr, message: message}
			latestChrome.Store(&chromeImages{
				toolbar: ui.drawToolbar(r.Dy(), ed.Tool(), opts),
				status:  ui.drawStatus(lay.width, st, trigger),
			})
			sched.Request(render.Frame{
				Model:   a.Model,
				Offset:  vp.Offset,
				Zoom:    vp.Zoom,
				State:   ed.State(),
				Overlay: a.Overlay(),
				Width:   r.Dx(),
				Height:  r.Dy(),
			})
		case key.Event:
			if ed.Key(e) {
				continue
			}
			windowKey(e)
		case touch.Event:
			p, _ := toCanvas(e.X, e.Y)
			id := int(e.Sequence)
			switch e.Type {
			case touch.TypeBegin:
				vp.TouchBegin(id, p)
			case touch.TypeMove:
				if vp.TouchMove(id, p) {
					w.Send(paint.Event{})
				}
			case touch.TypeEnd:
				vp.TouchEnd(id)
			}
		case mouse.Event:
			p, over := toCanvas(e.X, e.Y)
			pt := image.Pt(int(e.X), int(e.Y))
			if !over && !middlePan {
				if inCanvas {
					inCanvas = false
					ed.PointerLeave()
				}
				a.chromeMouse(ui, e, pt, lay.height)
				continue
			}
			if !inCanvas {
				inCanvas = true
				if ui.hoverTool >= 0 || ui.hoverOption >= 0 || ui.hoverShortcut >= 0 {
					ui.hoverTool, ui.hoverOption, ui.hoverShortcut = -1, -1, -1
					w.Send(paint.Event{})
				}
			}
			switch {
			case e.Button == mouse.ButtonWheelUp || e.Button == mouse.ButtonWheelDown:
				if e.Direction == mouse.DirStep || e.Direction == mouse.DirPress {
					if vp.ZoomToward(p, e.Button == mouse.ButtonWheelUp) {
						w.Send(paint.Event{})
					}
				}
			case e.Direction == mouse.DirNone:
				if middlePan {
					if vp.PanTo(p) {
						w.Send(paint.Event{})
					}
					continue
				}
				ed.PointerMove(p)
			case e.Button == mouse.ButtonMiddle:
				switch e.Direction {
				case mouse.DirPress:
					middlePan = true
					vp.BeginPan(p)
				case mouse.DirRelease:
					middlePan = false
					vp.EndPan()
				}
			case e.Button == mouse.ButtonLeft:
				switch e.Direction {
				case mouse.DirPress:
					ed.PointerDown(p)
				case mouse.DirRelease:
					ed.PointerUp(p)
				}
			}
		case error:
			log.Print(e)
		}
	}
}

// chromeMouse handles pointer events over the toolbar and status bar.
func (a *AppState) chromeMouse(ui *chrome, e mouse.Event, pt image.Point, height int) {
	prev := [3]int{ui.hoverTool, ui.hoverOption, ui.hoverShortcut}
	ui.hoverTool = hit(ui.tools, pt)
	ui.hoverOption = hit(ui.options, pt)
	ui.hoverShortcut = hit(ui.shortcuts, pt.Sub(image.Pt(0, height-statusHeight)))
	press := e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress
	switch {
	case press && ui.hoverTool >= 0:
		ui.tools[ui.hoverTool].Activate()
	case press && ui.hoverOption >= 0:
		ui.options[ui.hoverOption].Activate()
	case press && ui.hoverShortcut >= 0:
		ui.shortcuts[ui.hoverShortcut].Activate()
	}
	if press || prev != [3]int{ui.hoverTool, ui.hoverOption, ui.hoverShortcut} {
		a.control(paint.Event{})
	}
}
