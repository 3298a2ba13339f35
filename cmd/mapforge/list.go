package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/example/mapforge/internal/store/sqlite"
	"github.com/example/mapforge/internal/theme"
)

type listCmd struct {
	*root
	fs  *flag.FlagSet
	out io.Writer
}

func (c *listCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseListCmd(args []string, r *root) (*listCmd, error) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	c := &listCmd{root: r, fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *listCmd) Run() error {
	st, err := c.root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	maps, err := st.ListMaps(context.Background())
	if err != nil {
		return err
	}
	if len(maps) == 0 {
		fmt.Fprintln(c.out, "no maps yet; create one with: mapforge new -name <name>")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tGRID\tSIZE\tUPDATED")
	for _, m := range maps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%s\n", m.ID, m.Name, m.Grid.Type, m.Grid.Width, m.Grid.Height,
			m.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

type deleteCmd struct {
	*root
	fs    *flag.FlagSet
	mapID string
}

func (c *deleteCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseDeleteCmd(args []string, r *root) (*deleteCmd, error) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	c := &deleteCmd{root: r, fs: fs}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.mapID, "map", "", "id of the map to delete")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.mapID == "" || fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *deleteCmd) Run() error {
	st, err := c.root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.DeleteMap(context.Background(), c.mapID); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return fmt.Errorf("delete map %s: no such map", c.mapID)
		}
		return err
	}
	fmt.Fprintf(os.Stderr, "deleted map %s\n", c.mapID)
	return nil
}

type themesCmd struct {
	*root
	fs  *flag.FlagSet
	out io.Writer
}

func (c *themesCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseThemesCmd(args []string, r *root) (*themesCmd, error) {
	fs := flag.NewFlagSet("themes", flag.ExitOnError)
	c := &themesCmd{root: r, fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *themesCmd) Run() error {
	seen := map[string]bool{}
	for _, name := range theme.NewLoader().Names() {
		seen[name] = true
		fmt.Fprintln(c.out, name)
	}
	if c.root != nil && c.root.config != nil {
		var extra []string
		for name := range c.root.config.Themes {
			if !seen[name] {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			fmt.Fprintf(c.out, "%s (config)\n", name)
		}
	}
	return nil
}
