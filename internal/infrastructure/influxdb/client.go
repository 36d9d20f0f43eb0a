package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

// pointWriter is the part of the non-blocking write API the client uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// pinger is the part of influxdb2.Client used for health checks.
type pinger interface {
	Ping(ctx context.Context) (bool, error)
}

// Client records scanner activity points into one bucket.
//
// Writes never block the poll loop: points are batched by the library and
// write failures arrive on the SetOnError callback. Points without fields
// are dropped before they reach the server, which would reject them.
type Client struct {
	server pinger
	writer pointWriter
	close  func()
	now    func() time.Time

	closed  atomic.Bool
	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	mu      sync.RWMutex
	onError func(err error)
}

// WriteStats counts points since Connect.
type WriteStats struct {
	Written uint64 // queued for the server
	Dropped uint64 // discarded before queueing
	Failed  uint64 // rejected by the server
}

// Connect pings the server and opens a batched write API on cfg.Bucket.
// Timestamps are written at millisecond precision.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	raw := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, raw); err != nil {
		raw.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	writeAPI := raw.WriteAPI(cfg.Org, cfg.Bucket)
	c := newClient(raw, writeAPI)
	c.close = raw.Close
	go c.watchErrors(writeAPI.Errors())
	return c, nil
}

func newClient(server pinger, writer pointWriter) *Client {
	return &Client{
		server: server,
		writer: writer,
		close:  func() {},
		now:    time.Now,
	}
}

// writeOptions applies batch settings, falling back to defaults for
// non-positive values.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := uint(defaultFlushInterval)
	if cfg.FlushInterval > 0 {
		flush = uint(cfg.FlushInterval)
	}

	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(flush * 1000).
		SetPrecision(time.Millisecond)
}

func ping(ctx context.Context, server pinger) error {
	healthy, err := server.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return ErrUnhealthy
	}
	return nil
}

func (c *Client) watchErrors(errs <-chan error) {
	for err := range errs {
		c.failed.Add(1)

		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// WritePoint queues one point stamped with the current time. Empty tag
// values and nil fields are left out. It satisfies the bridge's activity
// recorder.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if c.closed.Load() {
		c.dropped.Add(1)
		return
	}

	point := buildPoint(measurement, tags, fields, c.now())
	if point == nil {
		c.dropped.Add(1)
		return
	}
	c.writer.WritePoint(point)
	c.written.Add(1)
}

func buildPoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) *write.Point {
	if measurement == "" {
		return nil
	}

	kept := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != "" && v != nil {
			kept[k] = v
		}
	}
	if len(kept) == 0 {
		return nil
	}

	point := write.NewPointWithMeasurement(measurement).SetTime(ts)
	for k, v := range tags {
		if k != "" && v != "" {
			point.AddTag(k, v)
		}
	}
	for k, v := range kept {
		point.AddField(k, v)
	}
	return point
}

// SetOnError sets the callback for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	c.onError = callback
	c.mu.Unlock()
}

// Stats returns the point counters.
func (c *Client) Stats() WriteStats {
	return WriteStats{
		Written: c.written.Load(),
		Dropped: c.dropped.Load(),
		Failed:  c.failed.Load(),
	}
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.server); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Close flushes queued points and releases the client. Later writes are
// counted as dropped. Close on a nil Client is a no-op.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writer.Flush()
	c.close()
	return nil
}
