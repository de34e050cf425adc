// Package matter talks to the Matter controller bridge over MQTT.
//
// The controller bridge owns the Thread/Wi-Fi mesh fabric and exposes a
// request/response interface: HomeHub publishes a request on a
// per-request topic and the bridge answers on the matching response
// topic. Correlation is by request id (UUID), with one subscription per
// in-flight request.
//
//	homehub/matter/request/{request_id}   Core → bridge
//	homehub/matter/response/{request_id}  bridge → Core
//	homehub/matter/health                 bridge → Core (retained)
//
// Operations: commission a device onto the mesh with a pairing code,
// decommission a node, read a node's OnOff cluster and set it. All
// calls are bounded by the configured timeout and the caller's context.
package matter
