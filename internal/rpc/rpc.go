// Package rpc implements the MQRPC request/response protocol carried
// over the MQTT RPC topics: a JSON envelope with a version tag, a
// correlation UID, and a reserved "__RETURN__" function name for
// replies.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/rtlserr"
)

// Version is the MQRPC envelope version this package speaks. A message
// with any other VER is a hard error for that message.
const Version = "MQRPC/1.0"

// ReturnFunc is the reserved FUNC value used for replies.
const ReturnFunc = "__RETURN__"

// Broadcast is the special DST value meaning "every peer".
const Broadcast = "BROADCAST"

// Envelope is the wire JSON structure of every MQRPC message.
type Envelope struct {
	Ver  string          `json:"VER"`
	Src  string          `json:"SRC"`
	Dst  string          `json:"DST"`
	UID  string          `json:"UID,omitempty"`
	Func string          `json:"FUNC"`
	Args json.RawMessage `json:"ARGS"`
}

// HandlerFunc answers a registered RPC function call with a reply value
// (marshaled into the return envelope's ARGS) or an error.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Client is a single peer's MQRPC endpoint: it owns this peer's RPC id,
// publishes calls, and dispatches both inbound calls (via registered
// handlers) and inbound replies (via pending waiters keyed by UID).
type Client struct {
	bus    mqttbus.Bus
	peerID string

	mu      sync.Mutex
	pending map[string]chan json.RawMessage
	handler map[string]HandlerFunc
}

// NewClient creates an MQRPC client for peerID and subscribes to its
// point-to-point and broadcast topics on bus.
func NewClient(bus mqttbus.Bus, peerID string) (*Client, error) {
	c := &Client{
		bus:     bus,
		peerID:  peerID,
		pending: make(map[string]chan json.RawMessage),
		handler: make(map[string]HandlerFunc),
	}
	c.Register("PING", func(ctx context.Context, args json.RawMessage) (any, error) {
		return map[string]any{}, nil
	})

	if err := bus.Subscribe(mqttbus.RPCTopic(peerID), c.onMessage); err != nil {
		return nil, err
	}
	if err := bus.Subscribe(mqttbus.RPCBroadcastTopic, c.onMessage); err != nil {
		return nil, err
	}
	return c, nil
}

// Close unsubscribes this client's RPC topics.
func (c *Client) Close() {
	c.bus.Unsubscribe(mqttbus.RPCTopic(c.peerID))
	c.bus.Unsubscribe(mqttbus.RPCBroadcastTopic)
}

// Register installs a handler for an inbound FUNC name, replacing any
// existing registration.
func (c *Client) Register(name string, h HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler[name] = h
}

// Unregister removes a handler previously installed with Register.
func (c *Client) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handler, name)
}

func (c *Client) send(env Envelope) error {
	env.Ver = Version
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.bus.Publish(mqttbus.RPCTopic(env.Dst), data)
}

// Call invokes func on remote with args, blocking until a reply arrives
// or ctx is done. A context deadline that expires first surfaces as
// ErrRPCTimeout.
func (c *Client) Call(ctx context.Context, remote, fn string, args any) (json.RawMessage, error) {
	argData, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	uid := uuid.NewString()
	ch := make(chan json.RawMessage, 1)
	c.mu.Lock()
	c.pending[uid] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, uid)
		c.mu.Unlock()
	}()

	if err := c.send(Envelope{Src: c.peerID, Dst: remote, UID: uid, Func: fn, Args: argData}); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("rpc: call %s.%s: %w", remote, fn, rtlserr.ErrRPCTimeout)
	}
}

// CallTimeout is Call with a fixed timeout, matching the anchor ping
// loop's 5-second RPC deadline.
func (c *Client) CallTimeout(remote, fn string, args any, timeout time.Duration) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Call(ctx, remote, fn, args)
}

// Post sends a fire-and-forget call with no correlation UID: the remote
// will not reply.
func (c *Client) Post(remote, fn string, args any) error {
	argData, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return c.send(Envelope{Src: c.peerID, Dst: remote, Func: fn, Args: argData})
}

// BroadcastCall posts a fire-and-forget call to every subscribed peer.
func (c *Client) BroadcastCall(fn string, args any) error {
	argData, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return c.send(Envelope{Src: c.peerID, Dst: Broadcast, Func: fn, Args: argData})
}

func (c *Client) onMessage(topic string, payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}
	if env.Ver != Version {
		return
	}

	if env.Func == ReturnFunc {
		c.mu.Lock()
		ch, ok := c.pending[env.UID]
		c.mu.Unlock()
		if ok {
			ch <- env.Args
		}
		return
	}

	c.mu.Lock()
	h, ok := c.handler[env.Func]
	c.mu.Unlock()
	if !ok {
		return
	}

	result, err := h(context.Background(), env.Args)
	if err != nil || env.UID == "" {
		return
	}
	resultData, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.send(Envelope{Src: c.peerID, Dst: env.Src, UID: env.UID, Func: ReturnFunc, Args: resultData})
}
