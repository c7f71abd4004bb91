package directory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
)

// Store persists the directory to a local sqlite file so the cache
// survives restarts: loaded once at process start, rewritten after each
// successful refresh.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS nodes(alias TEXT PRIMARY KEY, kind TEXT, host TEXT, port INTEGER);
CREATE TABLE IF NOT EXISTS projects(name TEXT PRIMARY KEY, route TEXT, identity_id TEXT);
`

func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("directory store mkdir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("directory store open: %w", err)
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("directory store ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("directory store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Load reads all persisted records into the cache.
func (s *Store) Load(ctx context.Context, cache *Cache) error {
	rows, err := s.db.QueryContext(ctx, `SELECT alias, kind, host, port FROM nodes`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var n model.NodeRecord
		var kind string
		if err := rows.Scan(&n.Alias, &kind, &n.Host, &n.Port); err != nil {
			return err
		}
		n.Kind = model.EndpointKind(kind)
		cache.PutNode(n)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prows, err := s.db.QueryContext(ctx, `SELECT name, route, identity_id FROM projects`)
	if err != nil {
		return err
	}
	defer prows.Close()
	var records []model.ProjectRecord
	for prows.Next() {
		var name, route, identity string
		if err := prows.Scan(&name, &route, &identity); err != nil {
			return err
		}
		parsed, err := addr.Parse(route)
		if err != nil {
			return fmt.Errorf("persisted route for project %q: %w", name, err)
		}
		records = append(records, model.ProjectRecord{Name: name, Route: parsed, IdentityID: identity})
	}
	if err := prows.Err(); err != nil {
		return err
	}
	cache.ReplaceProjects(records)
	return nil
}

// SaveNode upserts one node alias.
func (s *Store) SaveNode(ctx context.Context, n model.NodeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nodes(alias, kind, host, port) VALUES(?,?,?,?)
		 ON CONFLICT(alias) DO UPDATE SET kind=excluded.kind, host=excluded.host, port=excluded.port`,
		n.Alias, string(n.Kind), n.Host, n.Port)
	return err
}

// SaveProjects rewrites the persisted project set to match a refreshed
// snapshot, in one transaction.
func (s *Store) SaveProjects(ctx context.Context, records []model.ProjectRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO projects(name, route, identity_id) VALUES(?,?,?)`,
			r.Name, r.Route.String(), r.IdentityID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
