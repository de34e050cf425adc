package matter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MQTTClient is the MQTT interface the client needs.
// Defined here so the client can be tested without a real broker.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error
}

// Logger is the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

const (
	defaultRequestTimeout = 10 * time.Second

	// Commissioning involves fabric key exchange and can take much
	// longer than a cluster read.
	defaultCommissionTimeout = 60 * time.Second

	qosAtLeastOnce byte = 1
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// MQTT is the broker connection. Required.
	MQTT MQTTClient

	// RequestTimeout bounds ordinary requests. Defaults to 10s.
	RequestTimeout time.Duration

	// CommissionTimeout bounds commissioning requests. Defaults to 60s.
	CommissionTimeout time.Duration

	// Logger receives client events. Optional.
	Logger Logger
}

// Client issues requests to the Matter controller bridge and waits for the
// correlated response. Safe for concurrent use; each in-flight request has
// its own response subscription.
type Client struct {
	mqtt              MQTTClient
	requestTimeout    time.Duration
	commissionTimeout time.Duration

	loggerMu sync.RWMutex
	logger   Logger
}

// NewClient creates a Matter controller client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("matter: MQTT client is required")
	}

	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	commissionTimeout := opts.CommissionTimeout
	if commissionTimeout <= 0 {
		commissionTimeout = defaultCommissionTimeout
	}

	return &Client{
		mqtt:              opts.MQTT,
		requestTimeout:    requestTimeout,
		commissionTimeout: commissionTimeout,
		logger:            opts.Logger,
	}, nil
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// Commission pairs a device onto the mesh using its pairing code and
// returns the node id the controller assigned.
func (c *Client) Commission(ctx context.Context, pairingCode string) (string, error) {
	data, err := c.request(ctx, c.commissionTimeout, RequestMessage{
		Action:     ActionCommission,
		Parameters: map[string]any{"pairing_code": pairingCode},
	})
	if err != nil {
		return "", err
	}

	nodeID, ok := data["node_id"].(string)
	if !ok || nodeID == "" {
		return "", fmt.Errorf("%w: commission response missing node_id", ErrBadResponse)
	}
	return nodeID, nil
}

// Decommission removes a node from the mesh fabric.
func (c *Client) Decommission(ctx context.Context, nodeID string) error {
	_, err := c.request(ctx, c.requestTimeout, RequestMessage{
		Action: ActionDecommission,
		NodeID: nodeID,
	})
	return err
}

// PowerState reads the node's OnOff cluster.
func (c *Client) PowerState(ctx context.Context, nodeID string) (bool, error) {
	data, err := c.request(ctx, c.requestTimeout, RequestMessage{
		Action: ActionPowerGet,
		NodeID: nodeID,
	})
	if err != nil {
		return false, err
	}

	on, ok := data["on"].(bool)
	if !ok {
		return false, fmt.Errorf("%w: power response missing on", ErrBadResponse)
	}
	return on, nil
}

// SetPower writes the node's OnOff cluster.
func (c *Client) SetPower(ctx context.Context, nodeID string, on bool) error {
	_, err := c.request(ctx, c.requestTimeout, RequestMessage{
		Action:     ActionPowerSet,
		NodeID:     nodeID,
		Parameters: map[string]any{"on": on},
	})
	return err
}

// OnHealth subscribes to controller bridge health updates.
func (c *Client) OnHealth(handler func(HealthMessage)) error {
	return c.mqtt.Subscribe(HealthTopic(), qosAtLeastOnce, func(_ string, payload []byte) {
		var msg HealthMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.logWarn("discarding malformed health message", "error", err)
			return
		}
		handler(msg)
	})
}

// request publishes a request and waits for the correlated response.
func (c *Client) request(ctx context.Context, timeout time.Duration, req RequestMessage) (map[string]any, error) {
	req.RequestID = uuid.New().String()
	req.Timestamp = time.Now().UTC()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	respCh := make(chan ResponseMessage, 1)
	respTopic := ResponseTopic(req.RequestID)

	err = c.mqtt.Subscribe(respTopic, qosAtLeastOnce, func(_ string, payload []byte) {
		var resp ResponseMessage
		if err := json.Unmarshal(payload, &resp); err != nil {
			c.logWarn("discarding malformed response", "topic", respTopic, "error", err)
			return
		}
		select {
		case respCh <- resp:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing for response: %w", err)
	}
	defer func() {
		if err := c.mqtt.Unsubscribe(respTopic); err != nil {
			c.logWarn("unsubscribe failed", "topic", respTopic, "error", err)
		}
	}()

	if err := c.mqtt.Publish(RequestTopic(req.RequestID), payload, qosAtLeastOnce, false); err != nil {
		return nil, fmt.Errorf("publishing request: %w", err)
	}

	c.logDebug("matter request sent", "action", req.Action, "request_id", req.RequestID, "node_id", req.NodeID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if !resp.Success {
			if resp.Error != nil {
				return nil, fmt.Errorf("%w: %s (%s)", ErrCommandFailed, resp.Error.Message, resp.Error.Code)
			}
			return nil, ErrCommandFailed
		}
		return resp.Data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for response: %w", ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: action %s after %s", ErrTimeout, req.Action, timeout)
	}
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
