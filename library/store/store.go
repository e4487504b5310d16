package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"library-portal/library/logger"
)

// Keys of the persisted session values.
const (
	KeyToken = "token"
	KeyRole  = "userRole"
	KeyEmail = "userEmail"
)

// Store persists the client session in a small SQLite file. The bearer token
// is sealed at rest; role and email are stored as plain text.
type Store struct {
	db  *sqlx.DB
	key *[keySize]byte

	getStmt *sqlx.Stmt
	putStmt *sqlx.Stmt
	delStmt *sqlx.Stmt
}

// Open opens (or creates) the session file at dbPath, applies schema
// migrations, loads (or creates) the sealing key at keyPath, and prepares
// common statements.
func Open(dbPath, keyPath string) (*Store, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	key, err := loadKey(keyPath)
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, key: key}
	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases prepared statements and closes the DB.
func (s *Store) Close() error {
	for _, stmt := range []*sqlx.Stmt{s.getStmt, s.putStmt, s.delStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.Get(&current, `SELECT value FROM meta WHERE key='schema_version';`)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS kv (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *Store) prepareStatements() error {
	var err error
	if s.getStmt, err = s.db.Preparex(`SELECT value FROM kv WHERE key=?`); err != nil {
		return err
	}
	if s.putStmt, err = s.db.Preparex(`INSERT INTO kv(key,value) VALUES(?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP`); err != nil {
		return err
	}
	if s.delStmt, err = s.db.Preparex(`DELETE FROM kv WHERE key=?`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Key/value helpers
// ---------------------------------------------------------------------------

// Get returns the value stored under key, or "" when nothing is stored.
// A token that can no longer be unsealed reads as "".
func (s *Store) Get(key string) (string, error) {
	var value string
	if err := s.getStmt.Get(&value, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	if key != KeyToken {
		return value, nil
	}
	plain, err := s.open(value)
	if err != nil {
		logger.Log.WithError(err).Warn("stored token could not be unsealed")
		return "", nil
	}
	return plain, nil
}

// Set stores value under key. An empty value removes the key.
func (s *Store) Set(key, value string) error {
	return s.SetAll(map[string]string{key: value})
}

// SetAll writes every value in one transaction so readers never observe a
// partially written session.
func (s *Store) SetAll(values map[string]string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range values {
		if value == "" {
			if _, err := tx.Stmtx(s.delStmt).Exec(key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			continue
		}
		if key == KeyToken {
			if value, err = s.seal(value); err != nil {
				return err
			}
		}
		if _, err := tx.Stmtx(s.putStmt).Exec(key, value); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Clear removes every persisted value.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the persisted bearer token, or "" when none is stored.
func (s *Store) Token() string {
	token, err := s.Get(KeyToken)
	if err != nil {
		logger.Log.WithError(err).Warn("read token")
		return ""
	}
	return token
}
