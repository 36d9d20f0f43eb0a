// Package api implements the HTTP REST API and WebSocket server for the
// scanner bridge.
//
// This package provides:
//   - REST endpoints for scanner identity, display status, program mode,
//     key presses, quick search and power off
//   - Settings and stored system management, including lockout masks
//   - WebSocket hub relaying published scanner state
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - TLS support
//
// # Architecture
//
// Handlers talk to the scanner through a *uniden.Device, which serialises
// every exchange on the serial port. The bridge publishes polled state to
// MQTT; when an MQTT subscriber is supplied, the server relays those
// messages to WebSocket clients on the "scanner.state" channel.
//
// # Errors
//
// Scanner failures map to HTTP statuses by cause: a refused (NG) command is
// 409, no reply is 504, a powered-off or closed session is 503 and any other
// device failure is 502.
//
// # Graceful Degradation
//
// The server operates without MQTT. REST endpoints work and WebSocket
// clients connect, but no state events are delivered.
package api
