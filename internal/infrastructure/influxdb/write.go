package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// EventMeasurement is the measurement every lifecycle event is written to.
const EventMeasurement = "sqlez_events"

// Event kinds, stored in the "kind" tag.
const (
	KindFallback  = "fallback"
	KindMigration = "migration"
	KindBackup    = "backup"
)

// MigrationStepPoint builds the point for an applied migration step.
func MigrationStepPoint(domain string, step int, elapsed time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		EventMeasurement,
		map[string]string{
			"kind":   KindMigration,
			"domain": domain,
		},
		map[string]any{
			"step":       step,
			"elapsed_ms": durationMillis(elapsed),
		},
		at,
	)
}

// BackupPoint builds the point for a completed backup.
func BackupPoint(source, destination string, elapsed time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		EventMeasurement,
		map[string]string{
			"kind": KindBackup,
		},
		map[string]any{
			"source":      source,
			"destination": destination,
			"elapsed_ms":  durationMillis(elapsed),
		},
		at,
	)
}

// FallbackPoint builds the point for a store that lost persistence.
func FallbackPoint(location, reason string, at time.Time) *write.Point {
	return write.NewPoint(
		EventMeasurement,
		map[string]string{
			"kind": KindFallback,
		},
		map[string]any{
			"location": location,
			"reason":   reason,
		},
		at,
	)
}

// WritePoint queues p for the next batch. It is a no-op when disconnected.
func (c *Client) WritePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

// durationMillis converts d to fractional milliseconds.
func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
