// Package events fans out store lifecycle notifications to MQTT and InfluxDB.
//
// A Recorder implements database.Observer. Each notification becomes an
// Event published as JSON on {prefix}/events/{kind} and a point in the
// sqlez_events measurement. Either sink may be absent. Sink failures are
// logged and never reach the database operation that raised the event.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/sqlez/internal/infrastructure/database"
	"github.com/nerrad567/sqlez/internal/infrastructure/influxdb"
	"github.com/nerrad567/sqlez/internal/infrastructure/mqtt"
)

// Event kinds, shared with the influxdb "kind" tag.
const (
	KindFallback  = influxdb.KindFallback
	KindMigration = influxdb.KindMigration
	KindBackup    = influxdb.KindBackup
)

// Event is the JSON payload published for every notification.
type Event struct {
	Kind        string    `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
	Location    string    `json:"location,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	Step        *int      `json:"step,omitempty"`
	Source      string    `json:"source,omitempty"`
	Destination string    `json:"destination,omitempty"`
	ElapsedMS   float64   `json:"elapsed_ms,omitempty"`
}

// Decode parses a payload published by a Recorder.
func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	if ev.Kind == "" {
		return Event{}, fmt.Errorf("decoding event: missing kind")
	}
	return ev, nil
}

// String renders ev as a single human-readable line.
func (ev Event) String() string {
	ts := ev.Timestamp.Format(time.RFC3339)
	switch ev.Kind {
	case KindFallback:
		return fmt.Sprintf("%s fallback location=%s reason=%q", ts, ev.Location, ev.Reason)
	case KindMigration:
		step := -1
		if ev.Step != nil {
			step = *ev.Step
		}
		return fmt.Sprintf("%s migration domain=%s step=%d elapsed=%.3fms", ts, ev.Domain, step, ev.ElapsedMS)
	case KindBackup:
		return fmt.Sprintf("%s backup source=%s destination=%s elapsed=%.3fms", ts, ev.Source, ev.Destination, ev.ElapsedMS)
	default:
		return fmt.Sprintf("%s %s", ts, ev.Kind)
	}
}

// Publisher sends JSON payloads to a topic. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// PointWriter queues time-series points. *influxdb.Client satisfies it.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Logger receives sink failures. Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// Recorder turns database lifecycle notifications into events.
type Recorder struct {
	publisher Publisher
	topics    mqtt.Topics
	writer    PointWriter
	logger    Logger
	now       func() time.Time
}

var _ database.Observer = (*Recorder)(nil)

// Option configures a Recorder.
type Option func(*Recorder)

// WithPublisher publishes events under the topics of t.
func WithPublisher(p Publisher, t mqtt.Topics) Option {
	return func(r *Recorder) {
		r.publisher = p
		r.topics = t
	}
}

// WithPointWriter writes events as points.
func WithPointWriter(w PointWriter) Option {
	return func(r *Recorder) {
		r.writer = w
	}
}

// WithLogger sets the logger for sink failures.
func WithLogger(l Logger) Option {
	return func(r *Recorder) {
		r.logger = l
	}
}

// withClock overrides time.Now in tests.
func withClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates a Recorder. With no options it discards everything.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PersistenceLost records a file store that fell back to memory.
func (r *Recorder) PersistenceLost(location string, err error) {
	at := r.now()
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	r.emit(Event{
		Kind:      KindFallback,
		Timestamp: at,
		Location:  location,
		Reason:    reason,
	}, influxdb.FallbackPoint(location, reason, at))
}

// MigrationStepApplied records one applied migration step.
func (r *Recorder) MigrationStepApplied(domain string, step int, elapsed time.Duration) {
	at := r.now()
	r.emit(Event{
		Kind:      KindMigration,
		Timestamp: at,
		Domain:    domain,
		Step:      &step,
		ElapsedMS: millis(elapsed),
	}, influxdb.MigrationStepPoint(domain, step, elapsed, at))
}

// BackupCompleted records a finished backup.
func (r *Recorder) BackupCompleted(source, destination string, elapsed time.Duration) {
	at := r.now()
	r.emit(Event{
		Kind:        KindBackup,
		Timestamp:   at,
		Source:      source,
		Destination: destination,
		ElapsedMS:   millis(elapsed),
	}, influxdb.BackupPoint(source, destination, elapsed, at))
}

func (r *Recorder) emit(ev Event, p *write.Point) {
	if r.publisher != nil {
		if err := r.publisher.PublishJSON(r.topics.Event(ev.Kind), ev); err != nil && r.logger != nil {
			r.logger.Warn("publishing event failed", "kind", ev.Kind, "error", err)
		}
	}
	if r.writer != nil {
		r.writer.WritePoint(p)
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
