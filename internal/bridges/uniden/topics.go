package uniden

import "fmt"

// TopicPrefix is the base topic for all Gray Logic messages.
const TopicPrefix = "graylogic"

// CommandTopic returns the MQTT topic for commands to a scanner.
// Example: graylogic/command/uniden/scanner-1
func CommandTopic(scannerID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, Protocol, scannerID)
}

// AckTopic returns the MQTT topic for command acknowledgments.
// Example: graylogic/ack/uniden/scanner-1
func AckTopic(scannerID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, Protocol, scannerID)
}

// StateTopic returns the MQTT topic for scanner state.
// Example: graylogic/state/uniden/scanner-1
func StateTopic(scannerID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, Protocol, scannerID)
}

// StateSubscribeTopic returns the subscription pattern for all scanner state.
// Example: graylogic/state/uniden/+
func StateSubscribeTopic() string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, Protocol)
}

// AckSubscribeTopic returns the subscription pattern for all scanner acks.
// Example: graylogic/ack/uniden/+
func AckSubscribeTopic() string {
	return fmt.Sprintf("%s/ack/%s/+", TopicPrefix, Protocol)
}

// HealthTopic returns the MQTT topic for bridge health.
// Example: graylogic/health/uniden
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Protocol)
}
