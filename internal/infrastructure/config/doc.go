// Package config loads the scanner bridge configuration.
//
// Values come from built-in defaults, then the YAML file, then GRAYLOGIC_*
// environment variables (see envOverrides). A bare numeric scanner.port
// such as "0" is expanded to /dev/ttyUSB0. Validate reports every problem
// in one joined error.
//
// Keep the MQTT password and InfluxDB token in the environment:
//
//	GRAYLOGIC_MQTT_PASSWORD=... GRAYLOGIC_INFLUXDB_TOKEN=... graylogic-scanner
//
// Loading:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	port := cfg.Scanner.Port
package config
