package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePowerState records a power observation for a device.
//
// This is the primary method for recording power history. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Device identifier (the registry row ID as a string)
//   - power: Observed power state ("on", "off", or "unknown")
//   - online: Whether the device was visible on the local network
//
// Example:
//
//	client.WritePowerState("42", "on", true)
func (c *Client) WritePowerState(deviceID string, power string, online bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"power_state",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"power":  power,
			"on":     power == "on",
			"online": online,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeHealth records the reported health of a protocol bridge.
//
// Parameters:
//   - bridge: Bridge identifier (e.g., "matter")
//   - healthy: Whether the bridge reported a healthy status
func (c *Client) WriteBridgeHealth(bridge string, healthy bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bridge_health",
		map[string]string{
			"bridge": bridge,
		},
		map[string]interface{}{
			"healthy": healthy,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "hub-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
