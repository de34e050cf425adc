package mqtt

import "fmt"

// Topic prefixes for the HomeHub MQTT hierarchy.
//
// Bridge topics use the flat scheme: homehub/{protocol}/{category}/{id}
// This matches the Matter bridge's messages.go and all runtime subscribers.
const (
	// TopicPrefix is the base for all HomeHub topics.
	TopicPrefix = "homehub"

	// TopicPrefixCore is the base for all core topics.
	TopicPrefixCore = "homehub/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "homehub/system"
)

// Topics provides builders for HomeHub MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	reqTopic := topics.BridgeRequest("matter", "req-abc123")
//	// Returns: "homehub/matter/request/req-abc123"
type Topics struct{}

// BridgeRequest returns the topic for requests to a bridge.
//
// Example: homehub/matter/request/req-abc123
func (Topics) BridgeRequest(protocol, requestID string) string {
	return fmt.Sprintf("%s/%s/request/%s", TopicPrefix, protocol, requestID)
}

// BridgeResponse returns the topic for request responses from a bridge.
//
// Example: homehub/matter/response/req-abc123
func (Topics) BridgeResponse(protocol, requestID string) string {
	return fmt.Sprintf("%s/%s/response/%s", TopicPrefix, protocol, requestID)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: homehub/matter/health
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/%s/health", TopicPrefix, protocol)
}

// CoreDeviceState returns the canonical device state topic.
// This is the authoritative state published after a command or query.
//
// Example: homehub/core/device/42/state
func (Topics) CoreDeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefixCore, deviceID)
}

// CoreEvent returns the topic for system events.
//
// Example: homehub/core/event/device_created
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// SystemStatus returns the system status topic.
//
// Example: homehub/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: homehub/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// AllBridgeResponses returns a pattern matching all bridge response topics.
//
// Pattern: homehub/+/response/+
func (Topics) AllBridgeResponses() string {
	return fmt.Sprintf("%s/+/response/+", TopicPrefix)
}

// AllBridgeHealth returns a pattern matching all bridge health updates.
//
// Pattern: homehub/+/health
func (Topics) AllBridgeHealth() string {
	return fmt.Sprintf("%s/+/health", TopicPrefix)
}

// AllCoreDeviceStates returns a pattern matching all canonical device states.
//
// Pattern: homehub/core/device/+/state
func (Topics) AllCoreDeviceStates() string {
	return fmt.Sprintf("%s/device/+/state", TopicPrefixCore)
}

// AllCoreEvents returns a pattern matching all core events.
//
// Pattern: homehub/core/event/+
func (Topics) AllCoreEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefixCore)
}

// AllTopics returns a pattern matching all HomeHub topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: homehub/#
func (Topics) AllTopics() string {
	return "homehub/#"
}
