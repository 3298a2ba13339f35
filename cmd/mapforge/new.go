package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/mapforge/internal/grid"
)

type newCmd struct {
	*root
	fs       *flag.FlagSet
	name     string
	gridType string
	width    int
	height   int
	cellSize float64
	out      io.Writer
}

func (c *newCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseNewCmd(args []string, r *root) (*newCmd, error) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	c := &newCmd{root: r, fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(c)
	cellSize := 40.0
	if r != nil && r.config != nil && r.config.Editor.CellSize > 0 {
		cellSize = r.config.Editor.CellSize
	}
	fs.StringVar(&c.name, "name", "", "map name")
	fs.StringVar(&c.gridType, "grid", "square", "grid type: square or hex")
	fs.IntVar(&c.width, "width", 30, "map width in cells")
	fs.IntVar(&c.height, "height", 30, "map height in cells")
	fs.Float64Var(&c.cellSize, "cell-size", cellSize, "cell size in pixels")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	if strings.TrimSpace(c.name) == "" {
		return nil, fmt.Errorf("-name is required")
	}
	return c, nil
}

func (c *newCmd) Run() error {
	typ, err := grid.ParseType(c.gridType)
	if err != nil {
		return fmt.Errorf("new map: %w", err)
	}
	st, err := c.root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	m, err := st.CreateMap(context.Background(), c.name, grid.Map{
		Type:     typ,
		Width:    c.width,
		Height:   c.height,
		CellSize: c.cellSize,
	})
	if err != nil {
		return fmt.Errorf("new map: %w", err)
	}
	fmt.Fprintln(c.out, m.ID)
	return nil
}
