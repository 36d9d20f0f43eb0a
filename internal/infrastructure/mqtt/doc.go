// Package mqtt is the broker session used by the scanner bridge.
//
// The bridge publishes retained display state and health, publishes command
// acks and subscribes to its command topic. The API subscribes to the state
// wildcard and relays it to WebSocket clients:
//
//	BC246T <-serial-> bridge <-MQTT-> broker <-MQTT-> API relay, Gray Logic Core
//
// The broker connection reconnects on its own. Sessions are clean, so the
// client replays its subscriptions after each reconnect. The bridge's
// offline health message is registered as the will with WithWill; Close
// disconnects cleanly and the broker discards it.
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(will), mqtt.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package mqtt
