//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"context"
	"errors"
	"image"
	"os"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

var (
	initOnce     sync.Once
	initErr      error
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
	owner        *selectionOwner
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		owner, initErr = newSelectionOwner()
	})
	return initErr
}

// WriteImage encodes img as PNG and publishes it to the clipboard.
func WriteImage(img image.Image) error {
	if err := ensureInit(); err != nil {
		return err
	}
	data, err := encodePNG(img)
	if err != nil {
		return err
	}
	return owner.own(owner.atoms.png, data)
}

// WriteText publishes text to the clipboard.
func WriteText(text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return owner.own(owner.atoms.utf8, []byte(text))
}

// Serve blocks until another application takes the clipboard or ctx ends.
func Serve(ctx context.Context) {
	if owner == nil {
		return
	}
	owner.mu.RLock()
	lost := owner.lost
	owner.mu.RUnlock()
	select {
	case <-lost:
	case <-ctx.Done():
	}
}

// selectionOwner holds the CLIPBOARD selection on a hidden X11 window and
// answers conversion requests for the single payload it owns.
type selectionOwner struct {
	conn   *xgb.Conn
	window xproto.Window
	atoms  atomSet

	mu      sync.RWMutex
	target  xproto.Atom
	payload []byte
	lost    chan struct{}
}

type atomSet struct {
	clipboard xproto.Atom
	targets   xproto.Atom
	utf8      xproto.Atom
	textPlain xproto.Atom
	png       xproto.Atom
}

func newSelectionOwner() (*selectionOwner, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := xproto.CreateWindowChecked(conn, screen.RootDepth, window, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange}).Check(); err != nil {
		conn.Close()
		return nil, err
	}
	var atoms atomSet
	for name, dst := range map[string]*xproto.Atom{
		"CLIPBOARD":                &atoms.clipboard,
		"TARGETS":                  &atoms.targets,
		"UTF8_STRING":              &atoms.utf8,
		"text/plain;charset=utf-8": &atoms.textPlain,
		"image/png":                &atoms.png,
	} {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			xproto.DestroyWindow(conn, window)
			conn.Close()
			return nil, err
		}
		*dst = reply.Atom
	}
	o := &selectionOwner{conn: conn, window: window, atoms: atoms, lost: make(chan struct{})}
	go o.eventLoop()
	return o, nil
}

func (o *selectionOwner) own(target xproto.Atom, data []byte) error {
	o.mu.Lock()
	o.target = target
	o.payload = append([]byte(nil), data...)
	select {
	case <-o.lost:
		o.lost = make(chan struct{})
	default:
	}
	o.mu.Unlock()
	return xproto.SetSelectionOwnerChecked(o.conn, o.window, o.atoms.clipboard, xproto.TimeCurrentTime).Check()
}

func (o *selectionOwner) eventLoop() {
	for {
		ev, err := o.conn.WaitForEvent()
		if err != nil {
			return
		}
		switch e := ev.(type) {
		case xproto.SelectionRequestEvent:
			o.answer(e)
		case xproto.SelectionClearEvent:
			o.mu.Lock()
			o.payload = nil
			select {
			case <-o.lost:
			default:
				close(o.lost)
			}
			o.mu.Unlock()
		}
	}
}

// matches reports whether a requested target can be served from the payload.
func (o *selectionOwner) matches(requested, have xproto.Atom) bool {
	if have == o.atoms.utf8 {
		return requested == o.atoms.utf8 || requested == o.atoms.textPlain || requested == xproto.AtomString
	}
	return requested == have
}

func (o *selectionOwner) answer(e xproto.SelectionRequestEvent) {
	property := e.Property
	if property == xproto.AtomNone {
		property = e.Target
	}

	o.mu.RLock()
	have, payload := o.target, o.payload
	o.mu.RUnlock()

	switch {
	case len(payload) == 0:
		property = xproto.AtomNone
	case e.Target == o.atoms.targets:
		targets := []xproto.Atom{o.atoms.targets, have}
		if have == o.atoms.utf8 {
			targets = append(targets, xproto.AtomString, o.atoms.textPlain)
		}
		buf := make([]byte, 4*len(targets))
		for i, a := range targets {
			xgb.Put32(buf[i*4:], uint32(a))
		}
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, property, xproto.AtomAtom, 32, uint32(len(targets)), buf)
	case o.matches(e.Target, have):
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, property, have, 8, uint32(len(payload)), payload)
	default:
		property = xproto.AtomNone
	}

	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  property,
	}
	_ = xproto.SendEvent(o.conn, false, e.Requestor, 0, string(notify.Bytes()))
}
