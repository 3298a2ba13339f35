// Package sqlite persists maps and their content documents in a SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/example/mapforge/internal/content"
	"github.com/example/mapforge/internal/grid"
	"github.com/example/mapforge/internal/store/sqlite/migrations"
)

// ErrNotFound is returned when a map id does not exist.
var ErrNotFound = errors.New("map not found")

// Map is a stored map: its descriptor plus the latest saved content.
type Map struct {
	ID        string
	Name      string
	Grid      grid.Map
	Content   content.Document
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is a row of ListMaps.
type Summary struct {
	ID             string
	Name           string
	Grid           grid.Map
	ContentVersion int
	UpdatedAt      time.Time
}

// Store is a SQLite-backed map store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	dsn := "file:" + clean + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// CreateMap stores a new empty map.
func (s *Store) CreateMap(ctx context.Context, name string, g grid.Map) (Map, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Map{}, fmt.Errorf("map name is required")
	}
	if g.Width <= 0 || g.Height <= 0 || g.CellSize <= 0 {
		return Map{}, fmt.Errorf("invalid map size %dx%d cell %g", g.Width, g.Height, g.CellSize)
	}
	now := s.now()
	m := Map{
		ID:        uuid.NewString(),
		Name:      name,
		Grid:      g,
		Content:   content.Document{Version: 1},
		CreatedAt: fromMillis(toMillis(now)),
		UpdatedAt: fromMillis(toMillis(now)),
	}
	body, err := m.Content.Marshal()
	if err != nil {
		return Map{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO maps (id, name, grid_type, width, height, cell_size, content, content_version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, g.Type.String(), g.Width, g.Height, g.CellSize, string(body), 1, toMillis(now), toMillis(now))
	if err != nil {
		return Map{}, fmt.Errorf("insert map: %w", err)
	}
	return m, nil
}

// GetMap loads a map and its content.
func (s *Store) GetMap(ctx context.Context, id string) (Map, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, grid_type, width, height, cell_size, content, created_at, updated_at FROM maps WHERE id = ?`, id)
	var (
		m                Map
		gridType, body   string
		created, updated int64
	)
	err := row.Scan(&m.ID, &m.Name, &gridType, &m.Grid.Width, &m.Grid.Height, &m.Grid.CellSize, &body, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Map{}, fmt.Errorf("get map %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Map{}, fmt.Errorf("get map %s: %w", id, err)
	}
	if m.Grid.Type, err = grid.ParseType(gridType); err != nil {
		return Map{}, fmt.Errorf("get map %s: %w", id, err)
	}
	if m.Content, err = content.ParseDocument([]byte(body)); err != nil {
		return Map{}, fmt.Errorf("get map %s: %w", id, err)
	}
	m.CreatedAt, m.UpdatedAt = fromMillis(created), fromMillis(updated)
	return m, nil
}

// ListMaps returns every map, most recently updated first.
func (s *Store) ListMaps(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, grid_type, width, height, cell_size, content_version, updated_at FROM maps ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var (
			sm       Summary
			gridType string
			updated  int64
		)
		if err := rows.Scan(&sm.ID, &sm.Name, &gridType, &sm.Grid.Width, &sm.Grid.Height, &sm.Grid.CellSize, &sm.ContentVersion, &updated); err != nil {
			return nil, fmt.Errorf("scan map: %w", err)
		}
		if sm.Grid.Type, err = grid.ParseType(gridType); err != nil {
			return nil, fmt.Errorf("map %s: %w", sm.ID, err)
		}
		sm.UpdatedAt = fromMillis(updated)
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	return out, nil
}

// SaveContent replaces the content document of map id.
func (s *Store) SaveContent(ctx context.Context, id string, doc content.Document) error {
	body, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE maps SET content = ?, content_version = ?, updated_at = ? WHERE id = ?`,
		string(body), doc.DerivedVersion(), toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("save map %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save map %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveFunc binds SaveContent to one map for a content.Persister.
func (s *Store) SaveFunc(id string) content.SaveFunc {
	return func(ctx context.Context, doc content.Document) error {
		return s.SaveContent(ctx, id, doc)
	}
}

// DeleteMap removes map id.
func (s *Store) DeleteMap(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM maps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete map %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete map %s: %w", id, ErrNotFound)
	}
	return nil
}
