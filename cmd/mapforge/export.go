package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/example/mapforge/internal/clipboard"
	"github.com/example/mapforge/internal/content"
)

type exportCmd struct {
	*root
	fs          *flag.FlagSet
	mapID       string
	output      string
	toClipboard bool
	importFile  string
	out         io.Writer
}

func (c *exportCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseExportCmd(args []string, r *root) (*exportCmd, error) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	c := &exportCmd{root: r, fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.mapID, "map", "", "id of the map")
	fs.StringVar(&c.output, "output", "", "write the content document to this file instead of stdout")
	fs.BoolVar(&c.toClipboard, "to-clipboard", false, "copy the content document to the clipboard")
	fs.StringVar(&c.importFile, "import", "", "replace the map content with this document instead of exporting")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.mapID == "" || fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	if c.importFile != "" && (c.output != "" || c.toClipboard) {
		return nil, fmt.Errorf("-import cannot be combined with -output or -to-clipboard")
	}
	if c.output != "" && c.toClipboard {
		return nil, fmt.Errorf("-output cannot be used with -to-clipboard")
	}
	return c, nil
}

func (c *exportCmd) Run() error {
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

	if c.importFile != "" {
		b, err := os.ReadFile(c.importFile)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		doc, err := content.ParseDocument(b)
		if err != nil {
			return fmt.Errorf("import %s: %w", c.importFile, err)
		}
		fresh := content.NewModel(m.Grid)
		if dropped := fresh.Load(doc); dropped > 0 {
			fmt.Fprintf(os.Stderr, "import: dropped %d invalid entries\n", dropped)
		}
		if err := st.SaveContent(ctx, m.ID, fresh.Document()); err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Fprintf(os.Stderr, "imported %s into %s\n", c.importFile, m.Name)
		return nil
	}

	b, err := model.Document().Marshal()
	if err != nil {
		return fmt.Errorf("export %s: %w", m.Name, err)
	}
	switch {
	case c.toClipboard:
		if err := clipboard.WriteText(string(b)); err != nil {
			return fmt.Errorf("export %s: copy to clipboard: %w", m.Name, err)
		}
		c.root.notifyCopy(m.Name)
		hold, cancel := context.WithTimeout(ctx, clipboardHold)
		defer cancel()
		clipboard.Serve(hold)
	case c.output != "":
		if err := os.WriteFile(c.output, append(b, '\n'), 0o644); err != nil {
			return fmt.Errorf("export %s: %w", m.Name, err)
		}
		c.root.notifyExport(c.output)
		fmt.Fprintf(os.Stderr, "wrote %s\n", c.output)
	default:
		if _, err := fmt.Fprintf(c.out, "%s\n", b); err != nil {
			return err
		}
	}
	return nil
}
