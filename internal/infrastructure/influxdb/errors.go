package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when activity recording is off.
	ErrDisabled = errors.New("influxdb: activity recording disabled")

	// ErrConnectionFailed means the server did not answer the startup ping.
	ErrConnectionFailed = errors.New("influxdb: server unreachable")

	// ErrUnhealthy means the server answered but reported itself unhealthy.
	ErrUnhealthy = errors.New("influxdb: server unhealthy")

	// ErrClosed is returned by HealthCheck after Close.
	ErrClosed = errors.New("influxdb: client closed")
)
