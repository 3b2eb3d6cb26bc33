package database

import (
	"database/sql/driver"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// File and directory permissions for persistent stores.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// mainSchema is the name SQLite gives a connection's primary store.
	mainSchema = "main"
)

// Logger is the logging surface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives lifecycle notifications from connections and migrations.
//
// Methods are called synchronously on the goroutine using the connection,
// so implementations should return quickly.
type Observer interface {
	// PersistenceLost is called when OpenFile could not open location and
	// substituted an in-memory store.
	PersistenceLost(location string, err error)

	// MigrationStepApplied is called after a migration step is executed and recorded.
	MigrationStepApplied(domain string, step int, elapsed time.Duration)

	// BackupCompleted is called after BackupMain copied a store.
	BackupCompleted(source, destination string, elapsed time.Duration)
}

// OpenOption configures a Connection at open time.
type OpenOption func(*Connection)

// WithLogger sets the logger used for warnings and migration progress.
func WithLogger(l Logger) OpenOption {
	return func(c *Connection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the observer notified of lifecycle events.
func WithObserver(o Observer) OpenOption {
	return func(c *Connection) {
		c.observer = o
	}
}

// Connection owns exactly one native SQLite handle.
//
// A Connection is not safe for concurrent use. It may be handed to another
// goroutine, but only one goroutine may use it (and the statements prepared
// from it) at a time. Close must be called to release the handle.
type Connection struct {
	raw        *sqlite3.SQLiteConn
	location   string
	persistent bool
	openErr    error

	// stmts holds statements prepared from this connection that are not yet closed.
	stmts map[*Statement]struct{}

	logger   Logger
	observer Observer
	closed   bool
}

// OpenFile opens a persistent store at location, creating it if missing.
//
// If the store cannot be opened, OpenFile logs a warning, notifies the
// observer and returns an in-memory connection named after location instead.
// The swallowed error is available from OpenError, and Persistent reports false.
func OpenFile(location string, opts ...OpenOption) *Connection {
	c, err := openFile(location, opts)
	if err == nil {
		return c
	}

	fallback := OpenMemory(location, opts...)
	fallback.openErr = err
	fallback.logger.Warn("persistent store unavailable, using in-memory store",
		"location", location,
		"error", err,
	)
	if fallback.observer != nil {
		fallback.observer.PersistenceLost(location, err)
	}
	return fallback
}

// openFile performs the persistent open path of OpenFile.
func openFile(location string, opts []OpenOption) (*Connection, error) {
	if strings.TrimSpace(location) == "" {
		return nil, newError(ErrOpen, "open", "empty location")
	}

	if err := os.MkdirAll(filepath.Dir(location), dirPermissions); err != nil {
		return nil, &Error{Kind: ErrOpen, Op: "open", Message: err.Error(), Err: err}
	}

	c, err := open(fileURI(location), location, true, opts)
	if err != nil {
		return nil, err
	}

	// Owner read/write only
	_ = os.Chmod(location, filePermissions) //nolint:errcheck // Best effort, the store is already open

	return c, nil
}

// OpenMemory opens a named, shared in-memory store.
//
// Connections opened with the same name observe the same data for as long
// as at least one of them stays open. OpenMemory panics if the engine cannot
// create the store, which only happens when SQLite itself is unusable.
func OpenMemory(name string, opts ...OpenOption) *Connection {
	c, err := open(memoryURI(name), name, false, opts)
	if err != nil {
		panic(fmt.Sprintf("database: could not open in-memory store %q: %v", name, err))
	}
	return c
}

// fileURI builds the URI for a persistent store: read-write, create if
// missing, no per-handle mutex.
func fileURI(location string) string {
	return "file:" + uriPath(location) + "?mode=rwc&_mutex=no"
}

// memoryURI builds the URI for a named shared-cache in-memory store.
func memoryURI(name string) string {
	return "file:" + uriPath(name) + "?mode=memory&cache=shared&_mutex=no"
}

// uriPath percent-encodes a location for the path part of a file: URI, so
// '?', '#' and '%' in a file name stay part of the name.
func uriPath(location string) string {
	return (&url.URL{Path: location}).EscapedPath()
}

// open creates the native handle and wraps it.
func open(uri, location string, persistent bool, opts []OpenOption) (*Connection, error) {
	drv := &sqlite3.SQLiteDriver{}
	dc, err := drv.Open(uri)
	if err != nil {
		return nil, engineError(ErrOpen, "open", err)
	}

	raw, ok := dc.(*sqlite3.SQLiteConn)
	if !ok {
		dc.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, newError(ErrOpen, "open", "unexpected driver connection %T", dc)
	}

	c := &Connection{
		raw:        raw,
		location:   location,
		persistent: persistent,
		stmts:      make(map[*Statement]struct{}),
		logger:     nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Persistent reports whether the connection is backed by a file.
func (c *Connection) Persistent() bool {
	return c.persistent
}

// Location returns the path or in-memory name the connection was opened with.
func (c *Connection) Location() string {
	return c.location
}

// OpenError returns the error swallowed by OpenFile when it fell back to an
// in-memory store, or nil.
func (c *Connection) OpenError() error {
	return c.openErr
}

// Exec executes one or more semicolon-separated statements without
// parameters, discarding any rows.
func (c *Connection) Exec(query string) error {
	_, err := c.exec(query)
	return err
}

func (c *Connection) exec(query string) (driver.Result, error) {
	if c.closed {
		return nil, ErrClosed
	}
	res, err := c.raw.Exec(query, nil)
	if err != nil {
		return nil, engineError(ErrExec, "exec", err)
	}
	return res, nil
}

// Insert executes query and returns the connection's last inserted row id.
//
// The id is connection state, so it is only meaningful when query inserted
// exactly one row.
func (c *Connection) Insert(query string) (int64, error) {
	if _, err := c.exec(query); err != nil {
		return 0, err
	}
	return c.LastInsertID()
}

// LastInsertID returns the row id of the most recent successful insert on
// this connection.
func (c *Connection) LastInsertID() (int64, error) {
	if c.closed {
		return 0, ErrClosed
	}

	rows, err := c.raw.Query("SELECT last_insert_rowid()", nil)
	if err != nil {
		return 0, engineError(ErrExec, "last insert id", err)
	}
	defer rows.Close() //nolint:errcheck // Reset only

	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil {
		if err == io.EOF {
			return 0, newError(ErrExec, "last insert id", "no result")
		}
		return 0, engineError(ErrExec, "last insert id", err)
	}

	id, ok := dest[0].(int64)
	if !ok {
		return 0, newError(ErrDecode, "last insert id", "unexpected value %T", dest[0])
	}
	return id, nil
}

// Prepare compiles query into a reusable statement owned by this connection.
// query must hold exactly one SQL statement.
func (c *Connection) Prepare(query string) (*Statement, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if strings.TrimSpace(query) == "" {
		return nil, newError(ErrExec, "prepare", "empty statement")
	}

	ds, err := c.raw.Prepare(query)
	if err != nil {
		return nil, engineError(ErrExec, "prepare", err)
	}

	raw, ok := ds.(*sqlite3.SQLiteStmt)
	if !ok {
		ds.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, newError(ErrExec, "prepare", "unexpected driver statement %T", ds)
	}

	s := newStatement(c, raw, query)
	c.stmts[s] = struct{}{}
	return s, nil
}

// BackupMain copies this connection's primary store into destination's,
// replacing whatever destination held.
func (c *Connection) BackupMain(destination *Connection) error {
	if c.closed || destination == nil || destination.closed {
		return ErrClosed
	}
	if destination == c {
		return newError(ErrExec, "backup", "source and destination are the same connection")
	}

	start := time.Now()

	backup, err := destination.raw.Backup(mainSchema, c.raw, mainSchema)
	if err != nil {
		return engineError(ErrExec, "backup", err)
	}

	_, stepErr := backup.Step(-1)
	finishErr := backup.Finish()
	if stepErr != nil {
		return engineError(ErrExec, "backup", stepErr)
	}
	if finishErr != nil {
		return engineError(ErrExec, "backup", finishErr)
	}

	elapsed := time.Since(start)
	c.logger.Debug("backup completed",
		"source", c.location,
		"destination", destination.location,
		"elapsed", elapsed,
	)
	if c.observer != nil {
		c.observer.BackupCompleted(c.location, destination.location, elapsed)
	}
	return nil
}

// Close finalizes any statements still open on this connection and closes
// the native handle. It is safe to call more than once.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if n := len(c.stmts); n > 0 {
		c.logger.Warn("closing connection with open statements", "location", c.location, "statements", n)
	}
	for s := range c.stmts {
		s.finalize() //nolint:errcheck // Handle is closed next regardless
	}
	c.stmts = nil

	err := c.raw.Close()
	c.raw = nil
	if err != nil {
		return engineError(ErrExec, "close", err)
	}
	return nil
}

// release forgets a statement that has been finalized.
func (c *Connection) release(s *Statement) {
	if c.stmts != nil {
		delete(c.stmts, s)
	}
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
