package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/example/mapforge/internal/config"
)

type configCmd struct {
	*root
	fs     *flag.FlagSet
	output string
	out    io.Writer
}

func (c *configCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	c := &configCmd{root: r, fs: fs, out: os.Stdout}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.output, "output", "", "file written by save (default: the active config path)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}

	switch args[0] {
	case "print":
		_, err := fmt.Fprint(c.out, c.root.config.String())
		return err
	case "save":
		return c.runSave()
	case "path":
		fmt.Fprintln(c.out, c.configPath())
		return nil
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

func (c *configCmd) configPath() string {
	if c.output != "" {
		return c.output
	}
	if path := config.NewLoader(version, configPathOverride).GetConfigPath(); path != "" {
		return path
	}
	return config.DefaultPath()
}

func (c *configCmd) runSave() error {
	path := c.configPath()
	if path == "" {
		return fmt.Errorf("no config path: pass -output")
	}
	if err := config.Save(c.root.config, path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Configuration saved to %s\n", path)
	return nil
}
