// Package store persists type graph definitions as versioned snapshots in a
// SQL database. SQLite (mattn/go-sqlite3) and PostgreSQL (lib/pq or pgx) are
// supported.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// ErrNotFound is returned when no snapshot matches
var ErrNotFound = errors.New("snapshot not found")

// Driver names accepted by Open
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Config selects the database
type Config struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Snapshot is a stored graph definition. Versions count up per name.
type Snapshot struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	Version     int                  `json:"version"`
	Fingerprint string               `json:"fingerprint"`
	Types       int                  `json:"types"`
	CreatedAt   time.Time            `json:"created_at"`
	Definition  typegraph.Definition `json:"definition"`
}

// Graph rebuilds the graph of the snapshot
func (s *Snapshot) Graph() (*typegraph.Graph, error) {
	return typegraph.Build(s.Definition)
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialectSQLite, nil
	case DriverPostgres, DriverPgx:
		return dialectPostgres, nil
	default:
		return 0, fmt.Errorf("unsupported store driver %q (use sqlite3, postgres or pgx)", driver)
	}
}

// rebind rewrites ? placeholders for the dialect
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) schema() string {
	idType, timeType := "TEXT", "TIMESTAMP"
	if d == dialectPostgres {
		idType, timeType = "UUID", "TIMESTAMPTZ"
	}
	return `
CREATE TABLE IF NOT EXISTS lineage_snapshots (
	id ` + idType + ` PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	version INTEGER NOT NULL,
	fingerprint VARCHAR(64) NOT NULL,
	type_count INTEGER NOT NULL,
	definition TEXT NOT NULL,
	created_at ` + timeType + ` NOT NULL,
	UNIQUE (name, version)
)`
}

// Store reads and writes snapshots
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
	now     func() time.Time
}

// Open connects to the configured database and creates the schema
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store dsn is required")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// one connection keeps :memory: databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}

	s, err := New(db, cfg.Driver, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. driver selects the SQL dialect.
func New(db *sql.DB, driver string, logger *zap.Logger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, dialect: d, logger: logger, now: time.Now}, nil
}

// Migrate creates the snapshot table if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema()); err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the definition of g as the next version of name
func (s *Store) Save(ctx context.Context, name string, g *typegraph.Graph) (*Snapshot, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("snapshot name is required")
	}
	def := g.Definition()
	data, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to encode definition: %w", err)
	}

	snap := &Snapshot{
		ID:          uuid.New(),
		Name:        name,
		Fingerprint: g.Fingerprint(),
		Types:       g.Len(),
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
		Definition:  def,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current sql.NullInt64
	err = tx.QueryRowContext(ctx,
		s.dialect.rebind("SELECT MAX(version) FROM lineage_snapshots WHERE name = ?"), name,
	).Scan(&current)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest version: %w", err)
	}
	snap.Version = int(current.Int64) + 1

	_, err = tx.ExecContext(ctx, s.dialect.rebind(`
INSERT INTO lineage_snapshots (id, name, version, fingerprint, type_count, definition, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		snap.ID.String(), snap.Name, snap.Version, snap.Fingerprint, snap.Types, string(data), snap.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.logger.Info("snapshot saved",
		zap.String("id", snap.ID.String()),
		zap.String("name", snap.Name),
		zap.Int("version", snap.Version),
		zap.String("fingerprint", snap.Fingerprint),
	)
	return snap, nil
}

const selectSnapshot = `
SELECT id, name, version, fingerprint, type_count, definition, created_at
FROM lineage_snapshots`

// Get returns the snapshot with the given id
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(selectSnapshot+" WHERE id = ?"), id.String())
	return scanSnapshot(row, id.String())
}

// Latest returns the highest version saved under name
func (s *Store) Latest(ctx context.Context, name string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.rebind(selectSnapshot+" WHERE name = ? ORDER BY version DESC LIMIT 1"), name)
	return scanSnapshot(row, name)
}

// List returns all snapshots ordered by name and version, without definitions
func (s *Store) List(ctx context.Context) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, version, fingerprint, type_count, created_at
FROM lineage_snapshots
ORDER BY name ASC, version ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var id string
		if err := rows.Scan(&id, &snap.Name, &snap.Version, &snap.Fingerprint, &snap.Types, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if snap.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid snapshot id %q: %w", id, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return out, nil
}

// Delete removes the snapshot with the given id
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind("DELETE FROM lineage_snapshots WHERE id = ?"), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Info("snapshot deleted", zap.String("id", id.String()))
	return nil
}

func scanSnapshot(row *sql.Row, ref string) (*Snapshot, error) {
	snap := &Snapshot{}
	var id, data string
	err := row.Scan(&id, &snap.Name, &snap.Version, &snap.Fingerprint, &snap.Types, &data, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if snap.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid snapshot id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(data), &snap.Definition); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}
	return snap, nil
}
