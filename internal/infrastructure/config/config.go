package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the scanner bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Scanner   ScannerConfig   `yaml:"scanner"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ScannerConfig contains the serial session and bridge timing settings.
type ScannerConfig struct {
	// ID identifies the scanner in MQTT topics and messages.
	ID string `yaml:"id"`

	// Port is the serial device path, or a bare index N meaning /dev/ttyUSBN.
	Port string `yaml:"port"`

	// Baud is the remote port speed: 9600, 19200, 38400 or 57600.
	Baud int `yaml:"baud"`

	// ReadTimeout bounds a single reply.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// ClearTimeout bounds the memory clear reply.
	ClearTimeout time.Duration `yaml:"clear_timeout"`

	// PollInterval is how often the display is read.
	PollInterval time.Duration `yaml:"poll_interval"`

	// HealthInterval is how often bridge health is published.
	HealthInterval time.Duration `yaml:"health_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// supportedBauds mirrors the speeds the scanner's remote port accepts.
var supportedBauds = map[int]bool{9600: true, 19200: true, 38400: true, 57600: true}

// Load builds the configuration from defaults, the YAML file at path and
// GRAYLOGIC_* environment variables, in that order of precedence, then
// resolves the serial port and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	cfg.Scanner.Port = ResolvePort(cfg.Scanner.Port)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Scanner: ScannerConfig{
			ID:             "scanner-1",
			Port:           "/dev/ttyUSB0",
			Baud:           57600,
			ReadTimeout:    100 * time.Millisecond,
			ClearTimeout:   10 * time.Second,
			PollInterval:   time.Second,
			HealthInterval: 30 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-scanner",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				MaxSize:    50,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

// envOverride binds one environment variable to a config field.
type envOverride struct {
	name string
	set  func(*Config, string) error
}

// envOverrides lists the supported variables. Secrets belong here rather
// than in the YAML file.
var envOverrides = []envOverride{
	{"GRAYLOGIC_SCANNER_ID", stringField(func(c *Config) *string { return &c.Scanner.ID })},
	{"GRAYLOGIC_SCANNER_PORT", stringField(func(c *Config) *string { return &c.Scanner.Port })},
	{"GRAYLOGIC_SCANNER_BAUD", intField(func(c *Config) *int { return &c.Scanner.Baud })},
	{"GRAYLOGIC_SCANNER_POLL_INTERVAL", durationField(func(c *Config) *time.Duration { return &c.Scanner.PollInterval })},
	{"GRAYLOGIC_MQTT_HOST", stringField(func(c *Config) *string { return &c.MQTT.Broker.Host })},
	{"GRAYLOGIC_MQTT_PORT", intField(func(c *Config) *int { return &c.MQTT.Broker.Port })},
	{"GRAYLOGIC_MQTT_USERNAME", stringField(func(c *Config) *string { return &c.MQTT.Auth.Username })},
	{"GRAYLOGIC_MQTT_PASSWORD", stringField(func(c *Config) *string { return &c.MQTT.Auth.Password })},
	{"GRAYLOGIC_API_HOST", stringField(func(c *Config) *string { return &c.API.Host })},
	{"GRAYLOGIC_API_PORT", intField(func(c *Config) *int { return &c.API.Port })},
	{"GRAYLOGIC_INFLUXDB_URL", stringField(func(c *Config) *string { return &c.InfluxDB.URL })},
	{"GRAYLOGIC_INFLUXDB_TOKEN", stringField(func(c *Config) *string { return &c.InfluxDB.Token })},
	{"GRAYLOGIC_LOG_LEVEL", stringField(func(c *Config) *string { return &c.Logging.Level })},
}

// applyEnvOverrides copies every set variable in envOverrides into cfg.
// Unset or empty variables leave the field alone. Values that do not parse
// are reported together.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	for _, o := range envOverrides {
		v := os.Getenv(o.name)
		if v == "" {
			continue
		}
		if err := o.set(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.name, err))
		}
	}
	return errors.Join(errs...)
}

func stringField(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intField(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not an integer", v)
		}
		*field(c) = n
		return nil
	}
}

func durationField(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%q is not a duration", v)
		}
		*field(c) = d
		return nil
	}
}

// ResolvePort maps a bare port index to its USB serial device path.
// "3" becomes "/dev/ttyUSB3"; any other value is returned unchanged.
func ResolvePort(port string) string {
	if port == "" {
		return port
	}
	if n, err := strconv.Atoi(port); err == nil && n >= 0 {
		return fmt.Sprintf("/dev/ttyUSB%d", n)
	}
	return port
}

// Validate reports every invalid field at once, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	require(c.Scanner.ID != "", "scanner.id is required")
	require(c.Scanner.Port != "", "scanner.port is required")
	require(supportedBauds[c.Scanner.Baud], "scanner.baud must be 9600, 19200, 38400 or 57600")
	require(c.Scanner.ReadTimeout > 0, "scanner.read_timeout must be positive")
	require(c.Scanner.ClearTimeout >= c.Scanner.ReadTimeout, "scanner.clear_timeout must not be shorter than scanner.read_timeout")
	require(c.Scanner.PollInterval > 0, "scanner.poll_interval must be positive")

	require(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")

	if c.API.Enabled {
		require(c.API.Port >= 1 && c.API.Port <= 65535, "api.port must be between 1 and 65535")
	}
	if c.InfluxDB.Enabled {
		require(c.InfluxDB.URL != "", "influxdb.url is required when influxdb is enabled")
	}
	if c.Logging.Output == "file" {
		require(c.Logging.File.Path != "", "logging.file.path is required when logging.output is file")
	}

	return errors.Join(errs...)
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
