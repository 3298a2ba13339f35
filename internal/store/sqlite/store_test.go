package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/grid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "maps.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateGetSave(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	g := grid.Map{Type: grid.Hex, Width: 30, Height: 30, CellSize: 40}

	m, err := s.CreateMap(ctx, "Westmarch", g)
	if err != nil {
		t.Fatalf("CreateMap: %v", err)
	}
	got, err := s.GetMap(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMap: %v", err)
	}
	if got.Name != "Westmarch" || got.Grid != g {
		t.Errorf("got %+v", got)
	}
	if len(got.Content.Terrain) != 0 {
		t.Errorf("new map has content: %+v", got.Content)
	}

	doc := content.Document{
		Terrain: []content.TerrainEntry{{CellKey: "5,5", Terrain: "forest", Variant: 2}},
		Walls:   []string{"1,1"},
	}
	if err := s.SaveContent(ctx, m.ID, doc); err != nil {
		t.Fatalf("SaveContent: %v", err)
	}
	got, err = s.GetMap(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMap: %v", err)
	}
	if got.Content.Version != 3 {
		t.Errorf("version = %d, want 3", got.Content.Version)
	}
	if len(got.Content.Terrain) != 1 || got.Content.Terrain[0] != doc.Terrain[0] {
		t.Errorf("terrain = %+v", got.Content.Terrain)
	}
}

func TestListOrderAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	clock := time.Unix(1000, 0)
	s.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	g := grid.Map{Type: grid.Square, Width: 10, Height: 10, CellSize: 40}
	a, err := s.CreateMap(ctx, "A", g)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.CreateMap(ctx, "B", g)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveFunc(a.ID)(ctx, content.Document{}); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListMaps(ctx)
	if err != nil {
		t.Fatalf("ListMaps: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("order = %+v", list)
	}

	if err := s.DeleteMap(ctx, b.ID); err != nil {
		t.Fatalf("DeleteMap: %v", err)
	}
	if _, err := s.GetMap(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMap after delete: %v", err)
	}
	if err := s.DeleteMap(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if err := s.SaveContent(ctx, "missing", content.Document{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("save missing: %v", err)
	}
}

func TestCreateValidates(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.CreateMap(context.Background(), " ", grid.Map{Width: 1, Height: 1, CellSize: 1}); err == nil {
		t.Error("empty name accepted")
	}
	if _, err := s.CreateMap(context.Background(), "x", grid.Map{Width: 0, Height: 1, CellSize: 1}); err == nil {
		t.Error("zero width accepted")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	m, err := s.CreateMap(context.Background(), "Keep", grid.Map{Type: grid.Square, Width: 2, Height: 2, CellSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.GetMap(context.Background(), m.ID); err != nil {
		t.Errorf("GetMap after reopen: %v", err)
	}
}

func TestUpSection(t *testing.T) {
	got := upSection("-- +migrate Up\nCREATE TABLE x(a);\n-- +migrate Down\nDROP TABLE x;\n")
	if got != "\nCREATE TABLE x(a);\n" {
		t.Errorf("upSection = %q", got)
	}
}
