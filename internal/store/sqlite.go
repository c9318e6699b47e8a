package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const sqliteCatalog = `
CREATE TABLE IF NOT EXISTS gs_classes (
	name       TEXT PRIMARY KEY,
	abstract   INTEGER NOT NULL DEFAULT 0,
	superclass TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS gs_properties (
	class        TEXT NOT NULL REFERENCES gs_classes(name) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	type         TEXT NOT NULL,
	mandatory    INTEGER NOT NULL DEFAULT 0,
	not_null     INTEGER NOT NULL DEFAULT 0,
	regexp       TEXT NOT NULL DEFAULT '',
	linked_class TEXT NOT NULL DEFAULT '',
	linked_type  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (class, name)
);`

// SQLiteStore implements Provider on a SQLite database. The class catalog
// lives in gs_classes and gs_properties; every class is also a real table
// and every property a real column, so raw CREATE INDEX statements work.
type SQLiteStore struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore creates a provider for the database at path. Nothing is
// opened until EnsureDatabase or Open is called.
func NewSQLiteStore(path string, logger *slog.Logger) *SQLiteStore {
	if path == "" {
		path = "graphschema.db"
	}
	return &SQLiteStore{path: path, logger: logger}
}

func (s *SQLiteStore) inMemory() bool {
	return s.path == ":memory:" || strings.Contains(s.path, "mode=memory")
}

// EnsureDatabase opens (creating if needed) the database file and its
// catalog tables.
func (s *SQLiteStore) EnsureDatabase(ctx context.Context) (bool, error) {
	created := s.inMemory()
	if !created {
		if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
			created = true
		} else if err != nil {
			return false, fmt.Errorf("checking database %s: %w", s.path, err)
		}
	}
	s.mu.Lock()
	alreadyOpen := s.db != nil
	s.mu.Unlock()
	if alreadyOpen {
		created = false
	}
	if _, err := s.open(ctx); err != nil {
		return false, err
	}
	if created {
		s.logger.Info("created sqlite database", "path", s.path)
	} else {
		s.logger.Info("sqlite database found", "path", s.path)
	}
	return created, nil
}

func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", s.path, err)
	}
	// Sessions hold at most one transaction and an in-memory database only
	// exists on its own connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteCatalog); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating catalog tables: %w", err)
	}
	s.db = db
	return db, nil
}

// Open returns a session on the database.
func (s *SQLiteStore) Open(ctx context.Context) (Session, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	return &sqlSession{db: db}, nil
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlSession struct {
	db *sql.DB
	tx *sql.Tx
}

// q routes through the pending transaction when there is one; with a
// single connection the pool would otherwise block behind it.
func (s *sqlSession) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *sqlSession) Schema() Schema { return &sqlSchema{s: s} }

func (s *sqlSession) Indexes(ctx context.Context) ([]string, error) {
	rows, err := s.q().QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND name NOT LIKE 'sqlite_autoindex%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning index name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *sqlSession) Execute(ctx context.Context, statement string) error {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		s.tx = tx
	}
	if _, err := s.tx.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	return nil
}

func (s *sqlSession) RebuildIndexes(ctx context.Context) error {
	if _, err := s.q().ExecContext(ctx, "REINDEX"); err != nil {
		return fmt.Errorf("rebuilding indexes: %w", err)
	}
	return nil
}

func (s *sqlSession) Commit(_ context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (s *sqlSession) Close() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

type sqlSchema struct {
	s *sqlSession
}

func (sc *sqlSchema) Classes(ctx context.Context) ([]string, error) {
	rows, err := sc.s.q().QueryContext(ctx, `SELECT name FROM gs_classes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing classes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning class name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (sc *sqlSchema) ExistsClass(ctx context.Context, name string) (bool, error) {
	var n int
	if err := sc.s.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM gs_classes WHERE name = ?`, name).Scan(&n); err != nil {
		return false, fmt.Errorf("checking class %s: %w", name, err)
	}
	return n > 0, nil
}

func (sc *sqlSchema) Class(ctx context.Context, name string) (Class, error) {
	ok, err := sc.ExistsClass(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("class %s: %w", name, ErrNotFound)
	}
	return &sqlClass{s: sc.s, name: name}, nil
}

func (sc *sqlSchema) GetOrCreateClass(ctx context.Context, name string) (Class, error) {
	ok, err := sc.ExistsClass(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := sc.s.q().ExecContext(ctx, `INSERT INTO gs_classes (name) VALUES (?)`, name); err != nil {
			return nil, fmt.Errorf("creating class %s: %w", name, err)
		}
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (rid INTEGER PRIMARY KEY AUTOINCREMENT)`, quoteIdent(name))
		if _, err := sc.s.q().ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("creating table for class %s: %w", name, err)
		}
	}
	return &sqlClass{s: sc.s, name: name}, nil
}

type sqlClass struct {
	s    *sqlSession
	name string
}

func (c *sqlClass) Name() string { return c.name }

func (c *sqlClass) Attribute(ctx context.Context, attr ClassAttribute) (any, error) {
	var abstract bool
	var superclass string
	err := c.s.q().QueryRowContext(ctx, `SELECT abstract, superclass FROM gs_classes WHERE name = ?`, c.name).
		Scan(&abstract, &superclass)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("class %s: %w", c.name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading class %s: %w", c.name, err)
	}
	switch attr {
	case ClassAbstract:
		return abstract, nil
	case ClassSuperclass:
		return superclass, nil
	}
	return nil, fmt.Errorf("unsupported class attribute %s", attr)
}

func (c *sqlClass) SetAttribute(ctx context.Context, attr ClassAttribute, value any) error {
	var column string
	switch attr {
	case ClassAbstract:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("class %s: ABSTRACT wants bool, got %T", c.name, value)
		}
		column = "abstract"
	case ClassSuperclass:
		sup, ok := value.(string)
		if !ok {
			return fmt.Errorf("class %s: SUPERCLASS wants string, got %T", c.name, value)
		}
		if sup != "" {
			exists, err := (&sqlSchema{s: c.s}).ExistsClass(ctx, sup)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("superclass %s: %w", sup, ErrNotFound)
			}
		}
		column = "superclass"
	default:
		return fmt.Errorf("unsupported class attribute %s", attr)
	}
	q := fmt.Sprintf(`UPDATE gs_classes SET %s = ? WHERE name = ?`, column)
	if _, err := c.s.q().ExecContext(ctx, q, value, c.name); err != nil {
		return fmt.Errorf("setting %s on class %s: %w", attr, c.name, err)
	}
	return nil
}

func (c *sqlClass) ExistsProperty(ctx context.Context, name string) (bool, error) {
	var n int
	err := c.s.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM gs_properties WHERE class = ? AND name = ?`, c.name, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking property %s.%s: %w", c.name, name, err)
	}
	return n > 0, nil
}

func (c *sqlClass) Property(ctx context.Context, name string) (Property, error) {
	ok, err := c.ExistsProperty(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("property %s.%s: %w", c.name, name, ErrNotFound)
	}
	return &sqlProperty{s: c.s, class: c.name, name: name}, nil
}

func (c *sqlClass) CreateProperty(ctx context.Context, name string, typ Type) (Property, error) {
	if _, err := c.s.q().ExecContext(ctx,
		`INSERT INTO gs_properties (class, name, type) VALUES (?, ?, ?)`, c.name, name, typ.String()); err != nil {
		return nil, fmt.Errorf("creating property %s.%s: %w", c.name, name, err)
	}
	has, err := c.hasColumn(ctx, name)
	if err != nil {
		return nil, err
	}
	if !has {
		ddl := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, quoteIdent(c.name), quoteIdent(name), sqliteAffinity(typ))
		if _, err := c.s.q().ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("adding column %s.%s: %w", c.name, name, err)
		}
	}
	return &sqlProperty{s: c.s, class: c.name, name: name}, nil
}

func (c *sqlClass) hasColumn(ctx context.Context, name string) (bool, error) {
	var n int
	err := c.s.q().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.name, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspecting table %s: %w", c.name, err)
	}
	return n > 0, nil
}

func (c *sqlClass) DropProperty(ctx context.Context, name string) error {
	res, err := c.s.q().ExecContext(ctx, `DELETE FROM gs_properties WHERE class = ? AND name = ?`, c.name, name)
	if err != nil {
		return fmt.Errorf("dropping property %s.%s: %w", c.name, name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("property %s.%s: %w", c.name, name, ErrNotFound)
	}
	has, err := c.hasColumn(ctx, name)
	if err != nil {
		return err
	}
	if has {
		ddl := fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s`, quoteIdent(c.name), quoteIdent(name))
		if _, err := c.s.q().ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("dropping column %s.%s: %w", c.name, name, err)
		}
	}
	return nil
}

func (c *sqlClass) HasIndex(ctx context.Context, name string) (bool, error) {
	var n int
	err := c.s.q().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ? AND tbl_name = ? COLLATE NOCASE`,
		name, c.name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking index %s on %s: %w", name, c.name, err)
	}
	return n > 0, nil
}

type sqlProperty struct {
	s     *sqlSession
	class string
	name  string
}

func (p *sqlProperty) Name() string { return p.name }

func (p *sqlProperty) Type(ctx context.Context) (Type, error) {
	var raw string
	err := p.s.q().QueryRowContext(ctx, `SELECT type FROM gs_properties WHERE class = ? AND name = ?`, p.class, p.name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return TypeNone, fmt.Errorf("property %s.%s: %w", p.class, p.name, ErrNotFound)
	}
	if err != nil {
		return TypeNone, fmt.Errorf("reading property %s.%s: %w", p.class, p.name, err)
	}
	return ParseType(raw)
}

func (p *sqlProperty) SetType(ctx context.Context, typ Type) error {
	if _, err := p.s.q().ExecContext(ctx,
		`UPDATE gs_properties SET type = ? WHERE class = ? AND name = ?`, typ.String(), p.class, p.name); err != nil {
		return fmt.Errorf("setting type of %s.%s: %w", p.class, p.name, err)
	}
	return nil
}

var propertyColumns = map[PropertyAttribute]string{
	PropMandatory:   "mandatory",
	PropNotNull:     "not_null",
	PropRegexp:      "regexp",
	PropLinkedClass: "linked_class",
	PropLinkedType:  "linked_type",
}

func (p *sqlProperty) Attribute(ctx context.Context, attr PropertyAttribute) (any, error) {
	column, ok := propertyColumns[attr]
	if !ok {
		return nil, fmt.Errorf("unsupported property attribute %s", attr)
	}
	q := fmt.Sprintf(`SELECT %s FROM gs_properties WHERE class = ? AND name = ?`, column)
	row := p.s.q().QueryRowContext(ctx, q, p.class, p.name)

	var err error
	var out any
	switch attr {
	case PropMandatory, PropNotNull:
		var b bool
		err = row.Scan(&b)
		out = b
	case PropLinkedType:
		var raw string
		if err = row.Scan(&raw); err == nil {
			out, err = ParseType(raw)
		}
	default:
		var str string
		err = row.Scan(&str)
		out = str
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("property %s.%s: %w", p.class, p.name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s of %s.%s: %w", attr, p.class, p.name, err)
	}
	return out, nil
}

func (p *sqlProperty) SetAttribute(ctx context.Context, attr PropertyAttribute, value any) error {
	column, ok := propertyColumns[attr]
	if !ok {
		return fmt.Errorf("unsupported property attribute %s", attr)
	}
	var arg any
	switch attr {
	case PropMandatory, PropNotNull:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%s.%s: %s wants bool, got %T", p.class, p.name, attr, value)
		}
		arg = b
	case PropLinkedType:
		t, ok := value.(Type)
		if !ok {
			return fmt.Errorf("%s.%s: %s wants Type, got %T", p.class, p.name, attr, value)
		}
		arg = t.String()
	default:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s.%s: %s wants string, got %T", p.class, p.name, attr, value)
		}
		arg = str
	}
	q := fmt.Sprintf(`UPDATE gs_properties SET %s = ? WHERE class = ? AND name = ?`, column)
	if _, err := p.s.q().ExecContext(ctx, q, arg, p.class, p.name); err != nil {
		return fmt.Errorf("setting %s of %s.%s: %w", attr, p.class, p.name, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteAffinity(t Type) string {
	switch t {
	case TypeBoolean, TypeInteger, TypeShort, TypeLong, TypeByte:
		return "INTEGER"
	case TypeFloat, TypeDouble:
		return "REAL"
	case TypeDecimal:
		return "NUMERIC"
	case TypeBinary:
		return "BLOB"
	}
	return "TEXT"
}
