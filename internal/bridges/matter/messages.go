package matter

import (
	"fmt"
	"time"
)

// MQTT message types for communication between HomeHub and the Matter
// controller bridge.

// Request actions understood by the controller bridge.
const (
	ActionCommission   = "commission"
	ActionDecommission = "decommission"
	ActionPowerGet     = "power_get"
	ActionPowerSet     = "power_set"
)

// RequestMessage is sent from HomeHub to the controller bridge.
// Topic: homehub/matter/request/{request_id}
type RequestMessage struct {
	// RequestID uniquely identifies this request for correlation.
	RequestID string `json:"request_id"`

	// Timestamp is when the request was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Action is the requested operation.
	Action string `json:"action"`

	// NodeID is the target mesh node (for node-specific actions).
	NodeID string `json:"node_id,omitempty"`

	// Parameters contains action-specific values.
	// Examples:
	//   {"pairing_code": "34970112332"} for commission
	//   {"on": true} for power_set
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ResponseMessage is sent from the controller bridge in response to a request.
// Topic: homehub/matter/response/{request_id}
type ResponseMessage struct {
	// RequestID is the ID from the original request.
	RequestID string `json:"request_id"`

	// Timestamp is when the response was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Success indicates whether the request succeeded.
	Success bool `json:"success"`

	// Data contains the response payload (if successful).
	// Examples:
	//   {"node_id": "113"} for commission
	//   {"on": false} for power_get
	Data map[string]any `json:"data,omitempty"`

	// Error contains error details (if failed).
	Error *ResponseError `json:"error,omitempty"`
}

// ResponseError contains error details for failed requests.
type ResponseError struct {
	// Code is the error code (e.g., "NODE_UNREACHABLE", "PAIRING_FAILED").
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`
}

// Error codes reported by the controller bridge.
const (
	ErrCodeNodeUnreachable = "NODE_UNREACHABLE"
	ErrCodePairingFailed   = "PAIRING_FAILED"
	ErrCodeInvalidAction   = "INVALID_ACTION"
	ErrCodeBridgeError     = "BRIDGE_ERROR"
)

// HealthMessage is published by the controller bridge to report its status.
// Topic: homehub/matter/health
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Bridge is the bridge identifier ("matter").
	Bridge string `json:"bridge"`

	// Timestamp is when the status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Status is "healthy", "degraded" or "offline".
	Status string `json:"status"`

	// NodesManaged is the number of commissioned nodes.
	NodesManaged int `json:"nodes_managed"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// Topic helpers

const (
	// TopicPrefix is the base topic for all HomeHub messages.
	TopicPrefix = "homehub"
)

// RequestTopic returns the MQTT topic for a request.
// Example: homehub/matter/request/req-123
func RequestTopic(requestID string) string {
	return fmt.Sprintf("%s/matter/request/%s", TopicPrefix, requestID)
}

// ResponseTopic returns the MQTT topic for the matching response.
// Example: homehub/matter/response/req-123
func ResponseTopic(requestID string) string {
	return fmt.Sprintf("%s/matter/response/%s", TopicPrefix, requestID)
}

// HealthTopic returns the MQTT topic for bridge health status.
// Example: homehub/matter/health
func HealthTopic() string {
	return fmt.Sprintf("%s/matter/health", TopicPrefix)
}
