// Package influxdb records sqlez lifecycle timings in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Every event lands in
// the sqlez_events measurement, tagged by kind:
//
//   - migration: one point per applied step, with its duration
//   - backup: one point per completed backup
//   - fallback: one point when a file store could not be opened
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint(influxdb.BackupPoint(src, dst, elapsed, time.Now()))
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Async write failures go to the OnWriteError callback.
package influxdb
