package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/mapforge/internal/config"
	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/theme"
)

func testRoot(t *testing.T) *root {
	t.Helper()
	return &root{
		program:     "mapforge",
		config:      config.New(),
		storePath:   filepath.Join(t.TempDir(), "maps.db"),
		activeTheme: theme.Default(),
	}
}

func createMap(t *testing.T, r *root, args ...string) string {
	t.Helper()
	c, err := parseNewCmd(args, r)
	if err != nil {
		t.Fatalf("parse new: %v", err)
	}
	var out bytes.Buffer
	c.out = &out
	if err := c.Run(); err != nil {
		t.Fatalf("new: %v", err)
	}
	return strings.TrimSpace(out.String())
}

func TestNewAndList(t *testing.T) {
	r := testRoot(t)
	id := createMap(t, r, "-name", "Crypt", "-grid", "square", "-width", "12", "-height", "8")
	if id == "" {
		t.Fatal("new printed no id")
	}
	c, err := parseListCmd(nil, r)
	if err != nil {
		t.Fatalf("parse list: %v", err)
	}
	var out bytes.Buffer
	c.out = &out
	if err := c.Run(); err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{id, "Crypt", "square", "12x8"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("list output missing %q:\n%s", want, out.String())
		}
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	r := testRoot(t)
	if _, err := parseNewCmd([]string{"-grid", "hex"}, r); err == nil || !strings.Contains(err.Error(), "-name") {
		t.Fatalf("expected missing name error, got %v", err)
	}
	c, err := parseNewCmd([]string{"-name", "x", "-grid", "octagon"}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := c.Run(); err == nil || !strings.Contains(err.Error(), "new map") {
		t.Fatalf("expected grid type error, got %v", err)
	}
}

func TestRenderWritesPNG(t *testing.T) {
	r := testRoot(t)
	id := createMap(t, r, "-name", "Vale", "-grid", "hex", "-width", "6", "-height", "5", "-cell-size", "20")
	out := filepath.Join(t.TempDir(), "vale.png")
	c, err := parseRenderCmd([]string{"-map", id, "-output", out, "-zoom", "2"}, r)
	if err != nil {
		t.Fatalf("parse render: %v", err)
	}
	if err := c.Run(); err != nil {
		t.Fatalf("render: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Fatalf("empty image %v", img.Bounds())
	}
}

func TestRenderShadowEnlargesImage(t *testing.T) {
	r := testRoot(t)
	id := createMap(t, r, "-name", "Keep", "-width", "4", "-height", "4", "-cell-size", "10")
	var plain, shadowed bytes.Buffer
	for _, tc := range []struct {
		args []string
		buf  *bytes.Buffer
	}{
		{[]string{"-map", id, "-stdout"}, &plain},
		{[]string{"-map", id, "-stdout", "-shadow", "-shadow-radius", "4", "-shadow-offset", "2,2"}, &shadowed},
	} {
		c, err := parseRenderCmd(tc.args, r)
		if err != nil {
			t.Fatalf("parse render: %v", err)
		}
		c.out = tc.buf
		if err := c.Run(); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	a, err := png.Decode(&plain)
	if err != nil {
		t.Fatalf("decode plain: %v", err)
	}
	b, err := png.Decode(&shadowed)
	if err != nil {
		t.Fatalf("decode shadowed: %v", err)
	}
	if b.Bounds().Dx() <= a.Bounds().Dx() {
		t.Errorf("shadowed width %d not larger than %d", b.Bounds().Dx(), a.Bounds().Dx())
	}
}

func TestRenderFlagConflicts(t *testing.T) {
	r := testRoot(t)
	if _, err := parseRenderCmd([]string{"-map", "x", "-stdout", "-to-clipboard"}, r); err == nil {
		t.Error("expected -stdout/-to-clipboard conflict")
	}
	if _, err := parseRenderCmd([]string{"-map", "x", "-shadow-offset", "1"}, r); err == nil {
		t.Error("expected bad shadow offset error")
	}
	if _, err := parseRenderCmd([]string{"-map", "x", "-zoom", "0"}, r); err == nil {
		t.Error("expected zoom error")
	}
}

func TestRenderUnknownMap(t *testing.T) {
	r := testRoot(t)
	c, err := parseRenderCmd([]string{"-map", "missing", "-stdout"}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c.out = &bytes.Buffer{}
	if err := c.Run(); err == nil || !strings.Contains(err.Error(), "no such map") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	r := testRoot(t)
	id := createMap(t, r, "-name", "Cellar", "-width", "5", "-height", "5")

	doc := content.Document{Version: 3, Walls: []string{"1,1", "2,1", "99,99"}}
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(in, b, 0o644); err != nil {
		t.Fatal(err)
	}
	imp, err := parseExportCmd([]string{"-map", id, "-import", in}, r)
	if err != nil {
		t.Fatalf("parse import: %v", err)
	}
	if err := imp.Run(); err != nil {
		t.Fatalf("import: %v", err)
	}

	exp, err := parseExportCmd([]string{"-map", id}, r)
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	var out bytes.Buffer
	exp.out = &out
	if err := exp.Run(); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := content.ParseDocument(bytes.TrimSpace(out.Bytes()))
	if err != nil {
		t.Fatalf("parse exported: %v", err)
	}
	if len(got.Walls) != 2 {
		t.Errorf("walls = %v, want the two in-bounds walls", got.Walls)
	}
	if got.Version != 3 {
		t.Errorf("version = %d, want 3", got.Version)
	}
}

func TestExportFlagConflicts(t *testing.T) {
	r := testRoot(t)
	if _, err := parseExportCmd([]string{"-map", "x", "-import", "a.json", "-output", "b.json"}, r); err == nil {
		t.Error("expected -import/-output conflict")
	}
	if _, err := parseExportCmd([]string{"-map", "x", "-output", "b.json", "-to-clipboard"}, r); err == nil {
		t.Error("expected -output/-to-clipboard conflict")
	}
}

func TestUsageErrorRendersTemplate(t *testing.T) {
	r := testRoot(t)
	_, err := parseDeleteCmd(nil, r)
	if err == nil {
		t.Fatal("expected usage error")
	}
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("error %T is not a UsageError", err)
	}
	if msg := uerr.Error(); !strings.Contains(msg, "Usage: mapforge delete -map") {
		t.Errorf("help text = %q", msg)
	}
}

func TestConfigPrintAndSave(t *testing.T) {
	r := testRoot(t)
	r.config.Theme = "dark"
	path := filepath.Join(t.TempDir(), "nested", "config.rc")
	c, err := parseConfigCmd([]string{"-output", path, "save"}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := c.Run(); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	if !strings.Contains(string(b), "theme = dark") {
		t.Errorf("saved config missing theme:\n%s", b)
	}

	p, err := parseConfigCmd([]string{"print"}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out bytes.Buffer
	p.out = &out
	if err := p.Run(); err != nil {
		t.Fatalf("print: %v", err)
	}
	if out.String() != string(b) {
		t.Errorf("print and save differ:\n%s\n---\n%s", out.String(), b)
	}
}

func TestResolveThemePrecedence(t *testing.T) {
	r := testRoot(t)
	r.config.Theme = "dark"
	if got := r.resolveTheme().Name; got != "Dark" {
		t.Errorf("config theme = %q, want Dark", got)
	}
	r.themeName = "parchment"
	if got := r.resolveTheme().Name; !strings.EqualFold(got, "parchment") {
		t.Errorf("flag theme = %q, want parchment", got)
	}
	r.themeName = "no-such-theme"
	if got := r.resolveTheme().Name; got != theme.Default().Name {
		t.Errorf("missing theme = %q, want default", got)
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"Dragon's Lair": "Dragons_Lair",
		"  ":            "map",
		"v1.2-final":    "v1_2-final",
	}
	for in, want := range cases {
		if got := fileName(in); got != want {
			t.Errorf("fileName(%q) = %q, want %q", in, got, want)
		}
	}
}
