// Package relica provides a SQL-backed processed-key store using the Relica
// query builder. Supports MySQL, PostgreSQL, and SQLite.
//
// The store relies on the table's primary key for atomicity: a concurrent
// duplicate insert fails with a unique-constraint violation, which is
// reported as "already present" rather than an error. Apply the embedded
// migrations (eventrelay.MigrationFiles) before use.
package relica

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/coregx/relica"

	"github.com/coregx/eventrelay"
)

// processedKey is the row model for the dedup table.
type processedKey struct {
	IdempotencyKey string    `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}

// KeyStore implements eventrelay.ProcessedKeyStore using Relica.
type KeyStore struct {
	db          *relica.DB
	tablePrefix string
}

// NewKeyStore creates a new SQL-backed key store with the default table prefix.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
func NewKeyStore(sqlDB *sql.DB, driverName string) *KeyStore {
	return &KeyStore{db: relica.WrapDB(sqlDB, driverName), tablePrefix: "eventrelay_"}
}

// NewKeyStoreWithPrefix creates a new SQL-backed key store with a custom table prefix.
func NewKeyStoreWithPrefix(sqlDB *sql.DB, driverName, prefix string) *KeyStore {
	return &KeyStore{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (s *KeyStore) tableName() string {
	return s.tablePrefix + "processed_key"
}

// Contains reports whether the key was already committed.
func (s *KeyStore) Contains(ctx context.Context, key string) (bool, error) {
	var row processedKey
	err := s.db.WithContext(ctx).Select("idempotency_key").
		From(s.tableName()).
		Where("idempotency_key = ?", key).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eventrelay.NewErrorWithCause(eventrelay.ErrCodeStorage, "failed to check processed key", err)
	}
	return true, nil
}

// InsertIfAbsent atomically commits the key. The table's primary key turns a
// lost race into a unique-constraint violation, reported as already present.
func (s *KeyStore) InsertIfAbsent(ctx context.Context, key string) (bool, error) {
	row := processedKey{
		IdempotencyKey: key,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Model(&row).Table(s.tableName()).Insert()
	if err != nil {
		if isDuplicateKeyError(err) {
			return false, nil
		}
		return false, eventrelay.NewErrorWithCause(eventrelay.ErrCodeStorage, "failed to commit processed key", err)
	}
	return true, nil
}

// isDuplicateKeyError detects unique-constraint violations across the
// supported drivers (MySQL, PostgreSQL, SQLite).
func isDuplicateKeyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || // MySQL
		strings.Contains(msg, "duplicate key") || // PostgreSQL
		strings.Contains(msg, "UNIQUE constraint") // SQLite
}
