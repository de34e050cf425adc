package yeelight

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	// DefaultPort is the LAN control port Yeelight bulbs listen on.
	DefaultPort = 55443

	defaultTimeout = 3 * time.Second

	// smoothDuration is the transition time passed to set_power.
	smoothDuration = 500

	maxReplyLines = 16
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// Port overrides the LAN control port. Defaults to 55443.
	Port int

	// Timeout bounds each call, dial included. Defaults to 3s.
	Timeout time.Duration
}

// Client sends commands to Yeelight bulbs over the LAN protocol.
// It is stateless and safe for concurrent use.
type Client struct {
	port    int
	timeout time.Duration
	nextID  atomic.Int64

	// dial is swapped in tests.
	dial func(ctx context.Context, address string) (net.Conn, error)
}

// NewClient creates a Yeelight LAN client.
func NewClient(opts ClientOptions) *Client {
	port := opts.Port
	if port <= 0 {
		port = DefaultPort
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{port: port, timeout: timeout}
	c.dial = func(ctx context.Context, address string) (net.Conn, error) {
		dialer := net.Dialer{Timeout: c.timeout}
		return dialer.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(c.port)))
	}
	return c
}

// command is a single JSON-RPC request line.
type command struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// reply is a single JSON-RPC response line.
type reply struct {
	ID     int64     `json:"id"`
	Result []any     `json:"result"`
	Error  *rpcError `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Power reads the bulb's power property. Returns true when the bulb
// reports "on".
func (c *Client) Power(ctx context.Context, address string) (bool, error) {
	result, err := c.call(ctx, address, "get_prop", []any{"power"})
	if err != nil {
		return false, err
	}
	if len(result) == 0 {
		return false, fmt.Errorf("%w: empty get_prop result", ErrBadReply)
	}

	state, ok := result[0].(string)
	if !ok {
		return false, fmt.Errorf("%w: non-string power value", ErrBadReply)
	}
	return state == "on", nil
}

// SetPower switches the bulb on or off with a smooth transition.
func (c *Client) SetPower(ctx context.Context, address string, on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	_, err := c.call(ctx, address, "set_power", []any{state, "smooth", smoothDuration})
	return err
}

// Toggle flips the bulb's power state.
func (c *Client) Toggle(ctx context.Context, address string) error {
	_, err := c.call(ctx, address, "toggle", []any{})
	return err
}

// call dials the bulb, sends one command and reads the matching reply.
func (c *Client) call(ctx context.Context, address, method string, params []any) ([]any, error) {
	conn, err := c.dial(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	cmd := command{ID: c.nextID.Add(1), Method: method, Params: params}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshalling command: %w", err)
	}

	if _, err := conn.Write(append(payload, '\r', '\n')); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	// The bulb pushes notification lines on the same connection; skip
	// until the line carrying our request id arrives.
	scanner := bufio.NewScanner(conn)
	for lines := 0; lines < maxReplyLines && scanner.Scan(); lines++ {
		var resp reply
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadReply, err)
		}
		if resp.ID != cmd.ID {
			continue
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%w: %s (code %d)", ErrCommandRejected, resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil, fmt.Errorf("%w: no reply for id %d", ErrBadReply, cmd.ID)
}
