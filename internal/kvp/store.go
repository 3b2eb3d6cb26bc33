// Package kvp provides a small persistent key-value store on top of a
// database connection.
//
// Keys and values are text. The backing table is created by the built-in
// "kv" migration domain when the store is opened.
package kvp

import (
	"errors"
	"fmt"

	"github.com/nerrad567/sqlez/internal/infrastructure/database"
	"github.com/nerrad567/sqlez/migrations"
)

// Domain is the migration domain that owns the kv_store table.
const Domain = "kv"

// ErrKeyNotFound is returned by Delete when the key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Store reads and writes the kv_store table of one connection.
//
// Like the connection it wraps, a Store must not be used from more than one
// goroutine at a time.
type Store struct {
	conn *database.Connection
}

// Open brings the kv schema up to date on conn and returns a Store.
func Open(conn *database.Connection) (*Store, error) {
	m, err := migrations.Domain(Domain)
	if err != nil {
		return nil, err
	}
	if err := m.Run(conn); err != nil {
		return nil, fmt.Errorf("migrating kv store: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Read returns the value stored under key and whether it exists.
func (s *Store) Read(key string) (string, bool, error) {
	stmt, err := s.conn.Prepare("SELECT value FROM kv_store WHERE key = ?")
	if err != nil {
		return "", false, err
	}
	defer stmt.Close() //nolint:errcheck // Read-only statement

	if _, err := stmt.WithBindings(key); err != nil {
		return "", false, err
	}
	value, ok, err := database.MaybeRow[string](stmt)
	if err != nil {
		return "", false, fmt.Errorf("reading key %s: %w", key, err)
	}
	return value, ok, nil
}

// Write stores value under key, replacing any previous value.
func (s *Store) Write(key, value string) error {
	stmt, err := s.conn.Prepare(`INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck // Exec reports the relevant error

	if _, err := stmt.WithBindings(database.NewTuple2(key, value)); err != nil {
		return err
	}
	if err := stmt.Exec(); err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. It returns ErrKeyNotFound if key was not present.
func (s *Store) Delete(key string) error {
	if _, ok, err := s.Read(key); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("deleting key %s: %w", key, ErrKeyNotFound)
	}

	stmt, err := s.conn.Prepare("DELETE FROM kv_store WHERE key = ?")
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck // Exec reports the relevant error

	if _, err := stmt.WithBindings(key); err != nil {
		return err
	}
	if err := stmt.Exec(); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

// Entry is one stored pair.
type Entry = database.Tuple2[string, string]

// List returns every stored pair ordered by key.
func (s *Store) List() ([]Entry, error) {
	stmt, err := s.conn.Prepare("SELECT key, value FROM kv_store ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer stmt.Close() //nolint:errcheck // Read-only statement

	entries, err := database.Rows[Entry](stmt)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return entries, nil
}

// Keys returns every stored key in order.
func (s *Store) Keys() ([]string, error) {
	stmt, err := s.conn.Prepare("SELECT key FROM kv_store ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer stmt.Close() //nolint:errcheck // Read-only statement

	keys, err := database.Rows[string](stmt)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}
