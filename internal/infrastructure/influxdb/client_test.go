package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/influxdb"
)

// localConfig points at a development InfluxDB on 127.0.0.1:8086.
func localConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "graylogic-dev-token",
		Org:           "graylogic",
		Bucket:        "scanner",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// connectLocal connects to the development server or skips the test.
func connectLocal(t *testing.T) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(localConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := localConfig()
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := localConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestLocal_RecordActivity(t *testing.T) {
	client := connectLocal(t)

	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	client.WritePoint("scanner_status",
		map[string]string{"scanner_id": "it-scanner"},
		map[string]any{"line1": "SCAN", "squelch": true})
	client.WritePoint("talkgroup_activity",
		map[string]string{"scanner_id": "it-scanner", "sys_type": "MOT", "tgid": "1234"},
		map[string]any{"name1": "FIRE", "name2": "DISPATCH"})

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := client.Stats(); got.Written != 2 {
		t.Errorf("Stats() = %+v, want 2 written", got)
	}

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}
