// Package mqtt provides MQTT client connectivity for HomeHub.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// HomeHub uses MQTT as the internal message bus connecting the core
// service to protocol bridges (Matter, and any future protocols). The
// broker (Mosquitto) decouples the core from protocol-specific
// implementations.
//
//	HomeHub Core ↔ MQTT Broker ↔ Protocol Bridges
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all bridge responses
//	err = client.Subscribe(mqtt.Topics{}.AllBridgeResponses(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a bridge request
//	topic := mqtt.Topics{}.BridgeRequest("matter", "req-123")
//	client.Publish(topic, []byte(`{"command":"power_set"}`), 1, false)
package mqtt
