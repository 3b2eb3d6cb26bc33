package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sqlez/internal/events"
	"github.com/nerrad567/sqlez/internal/infrastructure/config"
	"github.com/nerrad567/sqlez/internal/infrastructure/database"
	"github.com/nerrad567/sqlez/internal/infrastructure/influxdb"
	"github.com/nerrad567/sqlez/internal/infrastructure/logging"
	"github.com/nerrad567/sqlez/internal/infrastructure/mqtt"
	"github.com/nerrad567/sqlez/migrations"
)

// app holds state shared by every command of one invocation.
type app struct {
	configFlag string

	cfg *config.Config
	log *logging.Logger

	mqtt     *mqtt.Client
	influx   *influxdb.Client
	recorder *events.Recorder
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sqlez",
		Short: "Safe SQLite store with domain migrations",
		Long: `sqlez manages a SQLite store through a small safe layer: typed bindings,
per-domain migrations with drift detection and online backups.

Lifecycle events (migrations, backups, lost persistence) are optionally
published to MQTT and recorded in InfluxDB.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configFlag, "config", "c", "",
		"config file (default $SQLEZ_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		newMigrateCmd(a),
		newStatusCmd(a),
		newExecCmd(a),
		newQueryCmd(a),
		newBackupCmd(a),
		newKVCmd(a),
		newEventsCmd(a),
	)
	return root
}

// setup loads configuration, builds the logger and connects the event sinks.
func (a *app) setup(cmd *cobra.Command) error {
	path, explicit := getConfigPath(a.configFlag)

	var err error
	if explicit {
		a.cfg, err = config.Load(path)
	} else {
		a.cfg, err = config.LoadOptional(path)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var logOut io.Writer = cmd.ErrOrStderr()
	if strings.EqualFold(a.cfg.Logging.Output, "stdout") {
		logOut = cmd.OutOrStdout()
	}
	a.log = logging.NewWithWriter(a.cfg.Logging, version, logOut)
	a.log.Debug("configuration loaded", "path", path, "explicit", explicit)

	a.connectSinks(cmd.Context())
	return nil
}

// connectSinks connects the enabled event sinks. A sink that cannot be
// reached is logged and skipped; store commands still run without it.
func (a *app) connectSinks(ctx context.Context) {
	var opts []events.Option
	opts = append(opts, events.WithLogger(a.log.With("component", "events")))

	if a.cfg.MQTT.Enabled {
		client, err := mqtt.Connect(a.cfg.MQTT, mqtt.WithLogger(a.log.With("component", "mqtt")))
		if err != nil {
			a.log.Warn("mqtt unavailable, events will not be published", "error", err)
		} else {
			a.mqtt = client
			opts = append(opts, events.WithPublisher(client, client.Topics()))
		}
	}

	if a.cfg.InfluxDB.Enabled {
		influxLog := a.log.With("component", "influxdb")
		client, err := influxdb.Connect(ctx, a.cfg.InfluxDB, influxdb.OnWriteError(func(err error) {
			influxLog.Error("influxdb write failed", "error", err)
		}))
		if err != nil {
			a.log.Warn("influxdb unavailable, events will not be recorded", "error", err)
		} else {
			a.influx = client
			opts = append(opts, events.WithPointWriter(client))
		}
	}

	a.recorder = events.NewRecorder(opts...)
}

// teardown flushes and closes the event sinks. It runs after every command,
// including failed ones.
func (a *app) teardown() {
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.log.Error("error closing influxdb", "error", err)
		}
		a.influx = nil
	}
	if a.mqtt != nil {
		if err := a.mqtt.Close(); err != nil {
			a.log.Error("error closing mqtt", "error", err)
		}
		a.mqtt = nil
	}
}

// openConn opens the configured store with logging and event recording.
// A configured path that could only be opened in memory is an error: the
// command's changes would be lost when it exits.
func (a *app) openConn() (*database.Connection, error) {
	opts := []database.OpenOption{
		database.WithLogger(a.log.With("component", "database")),
		database.WithObserver(a.recorder),
	}
	if name := a.cfg.Database.MemoryName; name != "" {
		return database.OpenMemory(name, opts...), nil
	}

	conn := database.OpenFile(a.cfg.Database.Path, opts...)
	if !conn.Persistent() {
		a.closeConn(conn)
		return nil, fmt.Errorf("opening store %s: %w", a.cfg.Database.Path, conn.OpenError())
	}
	return conn, nil
}

// closeConn closes conn, logging any failure.
func (a *app) closeConn(conn *database.Connection) {
	if err := conn.Close(); err != nil {
		a.log.Error("error closing database", "error", err)
	}
}

// loadMigrations returns the built-in domains followed by those found in
// the configured migrations directory.
func (a *app) loadMigrations() ([]*database.Migration, error) {
	ms, err := migrations.Load()
	if err != nil {
		return nil, fmt.Errorf("loading built-in migrations: %w", err)
	}

	dir := a.cfg.Database.MigrationsDir
	if dir == "" {
		return ms, nil
	}

	extra, err := database.LoadMigrations(os.DirFS(dir), ".")
	if err != nil {
		return nil, fmt.Errorf("loading migrations from %s: %w", dir, err)
	}
	for _, m := range extra {
		for _, builtin := range ms {
			if builtin.Domain() == m.Domain() {
				return nil, fmt.Errorf("migration domain %q in %s shadows a built-in domain", m.Domain(), dir)
			}
		}
	}
	return append(ms, extra...), nil
}
