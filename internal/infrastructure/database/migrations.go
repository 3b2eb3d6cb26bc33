package database

import (
	"fmt"
	"time"
)

// migrationsTable records every applied step, keyed by domain and step index.
const migrationsTable = `
	CREATE TABLE IF NOT EXISTS migrations (
		domain TEXT NOT NULL,
		step INTEGER NOT NULL,
		migration TEXT NOT NULL,
		applied_at TEXT NOT NULL,
		PRIMARY KEY (domain, step)
	)
`

// stepSavepoint wraps one step and its bookkeeping row.
const stepSavepoint = "migration_step"

// Migration is an ordered list of SQL steps for one domain.
//
// Steps are identified by their 0-based position. A step may hold several
// semicolon-separated statements but must not begin or commit transactions
// itself.
type Migration struct {
	domain string
	steps  []string
}

// MigrationRecord is a row of the migrations table.
type MigrationRecord struct {
	Domain    string
	Step      int
	SQL       string
	AppliedAt time.Time
}

// MigrationStatus reports the progress of one domain on a connection.
type MigrationStatus struct {
	Domain  string
	Applied []MigrationRecord
	Pending []int
}

// NewMigration creates a migration for domain with the given ordered steps.
func NewMigration(domain string, steps []string) *Migration {
	return &Migration{
		domain: domain,
		steps:  append([]string(nil), steps...),
	}
}

// Domain returns the migration stream name.
func (m *Migration) Domain() string { return m.domain }

// Steps returns a copy of the ordered steps.
func (m *Migration) Steps() []string { return append([]string(nil), m.steps...) }

// Run applies every step of m that has not been applied to conn yet.
//
// # Atomicity
//
// Each step runs together with its bookkeeping row inside a savepoint. If
// step N fails:
//   - Steps applied earlier in this run remain committed
//   - Step N leaves no changes and is not recorded
//   - Steps after N are not attempted
//
// There is no transaction around the whole run. Re-running after fixing the
// problem continues from step N.
//
// A recorded step whose SQL differs from the current text is reported as
// ErrMigration rather than silently skipped.
func (m *Migration) Run(conn *Connection) error {
	if err := conn.Exec(migrationsTable); err != nil {
		return m.fail(-1, "creating migrations table", err)
	}

	applied, err := m.applied(conn)
	if err != nil {
		return m.fail(-1, "reading applied steps", err)
	}

	for i, step := range m.steps {
		if rec, ok := applied[i]; ok {
			if rec.SQL != step {
				return &Error{
					Kind:    ErrMigration,
					Op:      "migrate",
					Message: fmt.Sprintf("step %d of domain %q changed since it was applied", i, m.domain),
				}
			}
			conn.logger.Debug("migration step already applied", "domain", m.domain, "step", i)
			continue
		}

		start := time.Now()
		if err := m.applyStep(conn, i, step); err != nil {
			return m.fail(i, "applying step", err)
		}
		elapsed := time.Since(start)

		conn.logger.Info("migration step applied", "domain", m.domain, "step", i, "elapsed", elapsed)
		if conn.observer != nil {
			conn.observer.MigrationStepApplied(m.domain, i, elapsed)
		}
	}

	return nil
}

// Status reports which steps of m are applied on conn and which are pending.
func (m *Migration) Status(conn *Connection) (MigrationStatus, error) {
	status := MigrationStatus{Domain: m.domain}

	exists, err := migrationsTableExists(conn)
	if err != nil {
		return status, m.fail(-1, "checking migrations table", err)
	}

	applied := map[int]MigrationRecord{}
	if exists {
		if applied, err = m.applied(conn); err != nil {
			return status, m.fail(-1, "reading applied steps", err)
		}
	}

	for i := range m.steps {
		if rec, ok := applied[i]; ok {
			status.Applied = append(status.Applied, rec)
		} else {
			status.Pending = append(status.Pending, i)
		}
	}
	return status, nil
}

// RunAll runs each migration in order, stopping at the first failure.
func RunAll(conn *Connection, migrations ...*Migration) error {
	for _, m := range migrations {
		if err := m.Run(conn); err != nil {
			return err
		}
	}
	return nil
}

// applied returns the recorded steps of m's domain keyed by step index.
func (m *Migration) applied(conn *Connection) (map[int]MigrationRecord, error) {
	stmt, err := conn.Prepare("SELECT step, migration, applied_at FROM migrations WHERE domain = ? ORDER BY step")
	if err != nil {
		return nil, err
	}
	defer stmt.Close() //nolint:errcheck // Read-only statement

	if _, err := stmt.WithBindings(m.domain); err != nil {
		return nil, err
	}

	rows, err := Rows[Tuple3[int, string, string]](stmt)
	if err != nil {
		return nil, err
	}

	records := make(map[int]MigrationRecord, len(rows))
	for _, r := range rows {
		// Format is controlled by recordStep
		appliedAt, _ := time.Parse(time.RFC3339, r.Third) //nolint:errcheck // Format is controlled
		records[r.First] = MigrationRecord{
			Domain:    m.domain,
			Step:      r.First,
			SQL:       r.Second,
			AppliedAt: appliedAt,
		}
	}
	return records, nil
}

// applyStep executes one step and records it inside a savepoint.
func (m *Migration) applyStep(conn *Connection, index int, step string) error {
	if err := conn.Exec("SAVEPOINT " + stepSavepoint); err != nil {
		return err
	}

	if err := conn.Exec(step); err != nil {
		rollbackStep(conn)
		return err
	}

	if err := m.recordStep(conn, index, step); err != nil {
		rollbackStep(conn)
		return err
	}

	return conn.Exec("RELEASE " + stepSavepoint)
}

// recordStep inserts the bookkeeping row for a completed step.
func (m *Migration) recordStep(conn *Connection, index int, step string) error {
	stmt, err := conn.Prepare("INSERT INTO migrations (domain, step, migration, applied_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck // Exec reports the relevant error

	if _, err := stmt.WithBindings(Args{m.domain, index, step, time.Now().UTC().Format(time.RFC3339)}); err != nil {
		return err
	}
	return stmt.Exec()
}

// rollbackStep undoes a partially applied step.
func rollbackStep(conn *Connection) {
	conn.Exec("ROLLBACK TO " + stepSavepoint) //nolint:errcheck // Best effort, the step error is returned
	conn.Exec("RELEASE " + stepSavepoint)     //nolint:errcheck // Best effort, the step error is returned
}

// migrationsTableExists reports whether the bookkeeping table has been created.
func migrationsTableExists(conn *Connection) (bool, error) {
	stmt, err := conn.Prepare("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'migrations'")
	if err != nil {
		return false, err
	}
	defer stmt.Close() //nolint:errcheck // Read-only statement

	n, err := Row[int](stmt)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// fail wraps err as a migration failure of m at step (or -1 for bookkeeping).
func (m *Migration) fail(step int, doing string, err error) error {
	msg := fmt.Sprintf("domain %q: %s: %v", m.domain, doing, err)
	if step >= 0 {
		msg = fmt.Sprintf("domain %q step %d: %s: %v", m.domain, step, doing, err)
	}
	e := &Error{Kind: ErrMigration, Op: "migrate", Message: msg, Err: err}
	e.Code = Code(err)
	return e
}
