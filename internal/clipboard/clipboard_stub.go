//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package clipboard

import (
	"context"
	"errors"
	"image"
)

var errUnsupported = errors.New("clipboard is not supported on this platform")

func WriteImage(image.Image) error { return errUnsupported }

func WriteText(string) error { return errUnsupported }

func Serve(context.Context) {}
