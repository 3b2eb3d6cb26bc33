package database

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// openTestConn opens an in-memory connection whose name is unique to the test.
func openTestConn(t *testing.T) *Connection {
	t.Helper()
	conn := OpenMemory("test_" + strings.ReplaceAll(t.Name(), "/", "_"))
	t.Cleanup(func() {
		conn.Close() //nolint:errcheck // Test cleanup
	})
	return conn
}

// mustExec executes sql or fails the test.
func mustExec(t *testing.T, conn *Connection, sql string) {
	t.Helper()
	if err := conn.Exec(sql); err != nil {
		t.Fatalf("Exec(%q) error = %v", sql, err)
	}
}

// mustPrepare prepares sql or fails the test.
func mustPrepare(t *testing.T, conn *Connection, sql string) *Statement {
	t.Helper()
	stmt, err := conn.Prepare(sql)
	if err != nil {
		t.Fatalf("Prepare(%q) error = %v", sql, err)
	}
	t.Cleanup(func() {
		stmt.Close() //nolint:errcheck // Test cleanup
	})
	return stmt
}

// countRows returns the number of rows in table.
func countRows(t *testing.T, conn *Connection, table string) int {
	t.Helper()
	stmt := mustPrepare(t, conn, "SELECT count(*) FROM "+table)
	n, err := Row[int](stmt)
	if err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}

// tableExists reports whether conn has a table called name.
func tableExists(t *testing.T, conn *Connection, name string) bool {
	t.Helper()
	stmt := mustPrepare(t, conn, "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?")
	if _, err := stmt.WithBindings(name); err != nil {
		t.Fatalf("WithBindings() error = %v", err)
	}
	n, err := Row[int](stmt)
	if err != nil {
		t.Fatalf("checking table %s: %v", name, err)
	}
	return n > 0
}

// recordingObserver captures lifecycle notifications.
type recordingObserver struct {
	mu        sync.Mutex
	lost      []string
	lostErrs  []error
	steps     []string
	backups   []string
	durations []time.Duration
}

func (o *recordingObserver) PersistenceLost(location string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lost = append(o.lost, location)
	o.lostErrs = append(o.lostErrs, err)
}

func (o *recordingObserver) MigrationStepApplied(domain string, step int, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, domain+":"+strconv.Itoa(step))
	o.durations = append(o.durations, elapsed)
}

func (o *recordingObserver) BackupCompleted(source, destination string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backups = append(o.backups, source+"->"+destination)
	o.durations = append(o.durations, elapsed)
}
