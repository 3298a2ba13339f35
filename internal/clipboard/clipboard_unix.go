//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && cgo

package clipboard

import (
	"context"
	"errors"
	"image"
	"os"
	"sync"

	"golang.design/x/clipboard"
)

var (
	initOnce     sync.Once
	initErr      error
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")

	ownMu sync.Mutex
	owned <-chan struct{}
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		initErr = clipboard.Init()
	})
	return initErr
}

func publish(format clipboard.Format, data []byte) {
	ch := clipboard.Write(format, data)
	ownMu.Lock()
	owned = ch
	ownMu.Unlock()
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
	publish(clipboard.FmtImage, data)
	return nil
}

// WriteText publishes text to the clipboard.
func WriteText(text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	publish(clipboard.FmtText, []byte(text))
	return nil
}

// Serve blocks until another application takes the clipboard or ctx ends.
// Short-lived commands call it so the data outlives the write.
func Serve(ctx context.Context) {
	ownMu.Lock()
	ch := owned
	ownMu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	case <-ctx.Done():
	}
}
