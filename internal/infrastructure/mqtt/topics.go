package mqtt

import "fmt"

// Topic prefixes for the watering engine.
const (
	// TopicPrefixEvent is the base for all event topics.
	TopicPrefixEvent = "waterd/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "waterd/system"
)

// Topics provides builders for the watering engine MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.DecisionEvent("zone-garden")
//	// Returns: "waterd/event/decision/zone-garden"
type Topics struct{}

// DecisionEvent returns the topic for watering decision events for a zone.
// One message is published per evaluation cycle, whatever the outcome.
func (Topics) DecisionEvent(zoneID string) string {
	return fmt.Sprintf("%s/decision/%s", TopicPrefixEvent, zoneID)
}

// SessionEvent returns the topic for session lifecycle events for a zone
// (started, stopped, reconciled).
func (Topics) SessionEvent(zoneID string) string {
	return fmt.Sprintf("%s/session/%s", TopicPrefixEvent, zoneID)
}

// SystemStatus returns the retained online/offline status topic.
// The broker publishes the LWT here if the engine dies unexpectedly.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
