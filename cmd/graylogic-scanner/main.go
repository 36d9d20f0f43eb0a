// Gray Logic Scanner - Uniden BC246T bridge
//
// This is the main entry point for the scanner bridge. It opens the
// scanner's serial port, publishes display state and health over MQTT,
// executes MQTT commands, optionally records activity to InfluxDB and
// serves a REST/WebSocket API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-scanner/internal/api"
	"github.com/nerrad567/gray-logic-scanner/internal/bridges/uniden"
	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Scanner",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "closing log output: %v\n", closeErr)
		}
	}()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	scanner, err := openScanner(cfg.Scanner, log)
	if err != nil {
		return fmt.Errorf("opening scanner: %w", err)
	}
	defer func() {
		log.Info("closing scanner session")
		if closeErr := scanner.Close(); closeErr != nil {
			log.Error("error closing scanner", "error", closeErr)
		}
	}()

	will, err := scannerWill(cfg.Scanner.ID)
	if err != nil {
		return fmt.Errorf("building MQTT will: %w", err)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(will), mqtt.WithLogger(log))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
			stats := influxClient.Stats()
			log.Info("activity points recorded",
				"written", stats.Written,
				"dropped", stats.Dropped,
				"failed", stats.Failed,
			)
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	bridge, err := startBridge(ctx, cfg.Scanner, scanner, mqttClient, influxClient, log)
	if err != nil {
		return fmt.Errorf("starting scanner bridge: %w", err)
	}
	defer func() {
		log.Info("stopping scanner bridge")
		bridge.Stop()
	}()

	// The broker may have published the offline will while we were away.
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		if pubErr := bridge.Health().PublishNow(); pubErr != nil {
			log.Warn("republishing health after reconnect failed", "error", pubErr)
		}
	})

	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log,
			Scanner: scanner,
			MQTT:    mqttClient,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API server, bridge, InfluxDB, MQTT, scanner, log output.

	log.Info("Gray Logic Scanner stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openScanner opens the serial session. When the port cannot be opened the
// ports present on the host are logged.
func openScanner(cfg config.ScannerConfig, log *logging.Logger) (*uniden.Device, error) {
	dev, err := uniden.Open(uniden.DeviceConfig{
		Port:         cfg.Port,
		BaudRate:     cfg.Baud,
		ReadTimeout:  cfg.ReadTimeout,
		ClearTimeout: cfg.ClearTimeout,
	})
	if err != nil {
		if ports, listErr := uniden.ListPorts(); listErr == nil {
			log.Error("scanner port unavailable", "port", cfg.Port, "available", ports)
		}
		return nil, err
	}
	dev.SetLogger(log)

	log.Info("scanner port open",
		"port", cfg.Port,
		"baud", cfg.Baud,
		"read_timeout", cfg.ReadTimeout,
	)
	return dev, nil
}

// scannerWill builds the retained offline health message the broker
// publishes if the bridge drops off without a clean disconnect.
func scannerWill(scannerID string) (*mqtt.Will, error) {
	payload, err := json.Marshal(uniden.NewLWTMessage(scannerID))
	if err != nil {
		return nil, err
	}
	return &mqtt.Will{
		Topic:    uniden.HealthTopic(),
		Payload:  payload,
		QoS:      1,
		Retained: true,
	}, nil
}

// startBridge creates and starts the scanner bridge.
//
// Parameters:
//   - ctx: Context for the poll and health loops
//   - cfg: Scanner configuration
//   - scanner: Open scanner session
//   - mqttClient: MQTT client for publishing/subscribing
//   - influxClient: InfluxDB client (may be nil if disabled)
//   - log: Logger instance
//
// Returns:
//   - *uniden.Bridge: Running bridge
//   - error: If the bridge fails to start
func startBridge(
	ctx context.Context,
	cfg config.ScannerConfig,
	scanner *uniden.Device,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
	log *logging.Logger,
) (*uniden.Bridge, error) {
	// A nil *influxdb.Client must not become a non-nil interface.
	var recorder uniden.ActivityRecorder
	if influxClient != nil {
		recorder = influxClient
	}

	bridge, err := uniden.NewBridge(uniden.BridgeOptions{
		ScannerID:      cfg.ID,
		Version:        version,
		Port:           cfg.Port,
		PollInterval:   cfg.PollInterval,
		HealthInterval: cfg.HealthInterval,
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient},
		Scanner:        scanner,
		Recorder:       recorder,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting bridge: %w", err)
	}
	log.Info("scanner bridge started",
		"scanner_id", cfg.ID,
		"state_topic", uniden.StateTopic(cfg.ID),
		"command_topic", uniden.CommandTopic(cfg.ID),
	)

	return bridge, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Scanner health is published by the bridge's health reporter.

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. Bridge handlers return nothing; mqtt handlers
// return an error that the client logs.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements uniden.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements uniden.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements uniden.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
