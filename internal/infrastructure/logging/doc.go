// Package logging provides structured logging for sqlez.
//
// This package wraps Go's standard log/slog package so the CLI, the store
// and the event sinks log with the same fields and format.
//
// # Features
//
//   - JSON output (machine-parsable) or text output (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	conn := database.OpenFile(cfg.Database.Path, database.WithLogger(logger))
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
