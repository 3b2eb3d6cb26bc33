// Package database is a safe layer over SQLite's native connection and
// statement handles.
//
// This package manages:
//   - Connection lifecycle (file-backed with in-memory fallback, or named in-memory)
//   - Prepared statements with 1-based parameter binding and row stepping
//   - Typed binding and decoding through the Binder/Columner protocol
//   - Whole-store backup between connections
//   - Ordered, idempotent schema migrations per domain
//
// The native handles from github.com/mattn/go-sqlite3 never leave this
// package. Every engine result code is checked and surfaced as an *Error
// whose Kind can be tested with errors.Is (ErrExec, ErrBind, ErrDecode, ...).
//
// Concurrency:
//
// A Connection and the Statements prepared from it are single-goroutine
// objects. The handle is opened without SQLite's per-connection mutex; it
// may be passed to another goroutine but never used from two at once.
//
// Usage:
//
//	conn := database.OpenFile("./data/app.db", database.WithLogger(log))
//	defer conn.Close()
//
//	if err := database.NewMigration("kv", []string{
//	    "CREATE TABLE kv_store(key TEXT PRIMARY KEY, value TEXT NOT NULL) STRICT;",
//	}).Run(conn); err != nil {
//	    return err
//	}
//
//	stmt, err := conn.Prepare("SELECT key, value FROM kv_store WHERE key = ?")
//	if err != nil {
//	    return err
//	}
//	defer stmt.Close()
//
//	if _, err := stmt.WithBindings("theme"); err != nil {
//	    return err
//	}
//	kv, err := database.Row[database.Tuple2[string, string]](stmt)
//
// Fallback:
//
// OpenFile never fails. When the file cannot be opened it logs a warning,
// notifies the Observer and returns an in-memory store named after the path.
// Check Persistent or OpenError when losing persistence matters.
package database
