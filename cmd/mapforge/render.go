package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/mapforge/internal/clipboard"
	"github.com/example/mapforge/internal/render"
	"github.com/example/mapforge/internal/session"
)

// clipboardHold bounds how long render waits for another program to take
// the clipboard before exiting.
const clipboardHold = 30 * time.Second

type renderCmd struct {
	*root
	fs            *flag.FlagSet
	mapID         string
	overlay       string
	output        string
	stdout        bool
	toClipboard   bool
	zoom          float64
	shadow        bool
	shadowRadius  int
	shadowOffset  string
	shadowPoint   image.Point
	shadowOpacity float64
	noTint        bool
	out           io.Writer
}

func (c *renderCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseRenderCmd(args []string, r *root) (*renderCmd, error) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	c := &renderCmd{root: r, fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(c)
	defaults := render.DefaultShadowOptions()
	fs.StringVar(&c.mapID, "map", "", "id of the map to render")
	fs.StringVar(&c.overlay, "overlay", "", "session overlay JSON file to draw fog and tokens from")
	fs.StringVar(&c.output, "output", "", "write the PNG to this file (default <map name>.png)")
	fs.BoolVar(&c.stdout, "stdout", false, "write PNG data to stdout")
	fs.BoolVar(&c.toClipboard, "to-clipboard", false, "copy the image to the clipboard")
	fs.Float64Var(&c.zoom, "zoom", 1, "scale factor")
	fs.BoolVar(&c.shadow, "shadow", false, "apply a drop shadow around the map")
	fs.IntVar(&c.shadowRadius, "shadow-radius", defaults.Radius, "drop shadow blur radius in pixels")
	fs.StringVar(&c.shadowOffset, "shadow-offset", formatShadowOffset(defaults.Offset), "drop shadow offset as dx,dy")
	fs.Float64Var(&c.shadowOpacity, "shadow-opacity", defaults.Opacity, "drop shadow opacity between 0 and 1")
	fs.BoolVar(&c.noTint, "no-tint", false, "draw terrain glyphs without the colour wash")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.mapID == "" || fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	pt, err := parseShadowOffset(c.shadowOffset)
	if err != nil {
		return nil, err
	}
	c.shadowPoint = pt
	if c.toClipboard && c.stdout {
		return nil, fmt.Errorf("-stdout cannot be used with -to-clipboard")
	}
	if c.zoom <= 0 {
		return nil, fmt.Errorf("-zoom must be positive")
	}
	return c, nil
}

func (c *renderCmd) Run() error {
	ctx := context.Background()
	st, err := c.root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	m, model, err := loadMap(ctx, st, c.mapID)
	if err != nil {
		return err
	}
	var overlay *session.Overlay
	if c.overlay != "" {
		if overlay, err = session.LoadOverlay(c.overlay); err != nil {
			return err
		}
	}

	opts := []render.Option{render.WithTerrainTint(!c.noTint)}
	if c.root != nil && c.root.activeTheme != nil {
		opts = append(opts, render.WithTheme(c.root.activeTheme))
	}
	rd := render.New(opts...)
	defer rd.Close()
	img, err := rd.RenderMap(ctx, model, overlay, c.zoom)
	if err != nil {
		return fmt.Errorf("render %s: %w", m.Name, err)
	}
	if c.shadow {
		img = render.ApplyShadow(img, render.ShadowOptions{
			Radius:  c.shadowRadius,
			Offset:  c.shadowPoint,
			Opacity: c.shadowOpacity,
		})
	}

	switch {
	case c.stdout:
		if err := png.Encode(c.out, img); err != nil {
			return fmt.Errorf("render %s: encode: %w", m.Name, err)
		}
	case c.toClipboard:
		if err := clipboard.WriteImage(img); err != nil {
			return fmt.Errorf("render %s: copy to clipboard: %w", m.Name, err)
		}
		c.root.notifyCopy(m.Name)
		fmt.Fprintf(os.Stderr, "copied %s to clipboard\n", m.Name)
		hold, cancel := context.WithTimeout(ctx, clipboardHold)
		defer cancel()
		clipboard.Serve(hold)
	default:
		path := c.output
		if path == "" {
			path = fileName(m.Name) + ".png"
		}
		if err := writePNG(path, img); err != nil {
			return fmt.Errorf("render %s: %w", m.Name, err)
		}
		c.root.notifyExport(path)
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// fileName turns a map name into a safe file stem.
func fileName(name string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		}
		return -1
	}, strings.TrimSpace(name))
	if stem == "" {
		return "map"
	}
	return stem
}

func parseShadowOffset(val string) (image.Point, error) {
	parts := strings.Split(val, ",")
	if len(parts) != 2 {
		return image.Point{}, fmt.Errorf("invalid shadow offset %q", val)
	}
	vals := make([]int, 2)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Point{}, fmt.Errorf("invalid shadow offset %q", val)
		}
		vals[i] = v
	}
	return image.Pt(vals[0], vals[1]), nil
}

func formatShadowOffset(pt image.Point) string {
	return fmt.Sprintf("%d,%d", pt.X, pt.Y)
}
