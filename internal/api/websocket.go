package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/tuya-ce-core/internal/bridge"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/config"
	"github.com/nerrad567/tuya-ce-core/internal/infrastructure/logging"
)

// FrameType identifies a WebSocket frame.
type FrameType string

// Frame types. Clients send subscribe, unsubscribe and ping; the server sends
// the rest.
const (
	FrameSubscribe   FrameType = "subscribe"
	FrameUnsubscribe FrameType = "unsubscribe"
	FramePing        FrameType = "ping"
	FramePong        FrameType = "pong"
	FrameEvent       FrameType = "event"
	FrameAck         FrameType = "ack"
	FrameError       FrameType = "error"
)

// clientQueueSize is the number of frames buffered per client before
// further events to it are dropped.
const clientQueueSize = 256

// liveChannels are the bridge event channels a client can follow.
var liveChannels = map[string]bool{
	bridge.ChannelState:     true,
	bridge.ChannelDiscovery: true,
	bridge.ChannelService:   true,
}

// Frame is one message on the live-update socket.
//
//	{"type": "event", "channel": "state", "time": "...", "data": {"device_id": "bf01", ...}}
type Frame struct {
	Type    FrameType `json:"type"`
	ID      string    `json:"id,omitempty"`
	Channel string    `json:"channel,omitempty"`
	Time    string    `json:"time,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// Subscription selects events by channel and, optionally, by device. An
// empty device list follows every device; events without a device id, such
// as service results, always pass the device filter.
type Subscription struct {
	Channels []string `json:"channels"`
	Devices  []string `json:"devices,omitempty"`
}

func (sub Subscription) validate() error {
	for _, ch := range sub.Channels {
		if !liveChannels[ch] {
			return fmt.Errorf("unknown channel %q", ch)
		}
	}
	return nil
}

// HubStats counts live-update delivery.
type HubStats struct {
	Clients   int    `json:"clients"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

// Hub fans bridge events out to WebSocket clients.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

type wsClient struct {
	hub   *Hub
	conn  *websocket.Conn
	queue chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
	devices  map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The CORS middleware has already vetted the origin.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.queue)
		c.conn.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// remove drops c and closes its queue. Only the caller that finds c in the
// map closes the queue, so Run and a read error never both close it.
func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		close(c.queue)
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// Broadcast sends payload on channel to every client following it. Clients
// with a device filter only receive payloads whose device_id they follow.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(Frame{
		Type:    FrameEvent,
		Channel: channel,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Data:    payload,
	})
	if err != nil {
		h.logger.Error("encoding websocket event failed", "channel", channel, "error", err)
		return
	}
	deviceID := eventDevice(payload)

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.follows(channel, deviceID) {
			c.push(data)
		}
	}
}

// eventDevice returns the device_id of a bridge event payload, if any.
func eventDevice(payload any) string {
	switch p := payload.(type) {
	case bridge.State:
		return p.DeviceID
	case *bridge.State:
		return p.DeviceID
	case map[string]any:
		id, _ := p["device_id"].(string) //nolint:errcheck // absent id means no device filter
		return id
	default:
		return ""
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the client count and delivery counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Clients:   h.ClientCount(),
		Delivered: h.delivered.Load(),
		Dropped:   h.dropped.Load(),
	}
}

// handleWebSocket upgrades to a live-update socket. The initial subscription
// comes from ?channels=state,discovery and ?devices=bf01,bf02; clients can
// change it later with subscribe and unsubscribe frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	initial := Subscription{
		Channels: splitList(r.URL.Query().Get("channels")),
		Devices:  splitList(r.URL.Query().Get("devices")),
	}
	if err := initial.validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	hub := s.Hub()
	c := &wsClient{
		hub:      hub,
		conn:     conn,
		queue:    make(chan []byte, clientQueueSize),
		channels: make(map[string]struct{}),
		devices:  make(map[string]struct{}),
	}
	c.subscribe(initial)
	hub.add(c)

	go c.writeLoop(s.wsCfg)
	go c.readLoop(s.wsCfg)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *wsClient) readLoop(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	idle := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(idle)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		// Application frames count as liveness too.
		extend() //nolint:errcheck // a failed deadline surfaces as a read error
		c.handle(data)
	}
}

func (c *wsClient) writeLoop(cfg config.WebSocketConfig) {
	ping := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.queue:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write error follows
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write error follows
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handle(data []byte) {
	var in struct {
		Type FrameType       `json:"type"`
		ID   string          `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		c.reply(FrameError, "", map[string]string{"message": "invalid JSON frame"})
		return
	}

	switch in.Type {
	case FramePing:
		c.reply(FramePong, in.ID, nil)
	case FrameSubscribe, FrameUnsubscribe:
		var sub Subscription
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &sub); err != nil {
				c.reply(FrameError, in.ID, map[string]string{"message": "invalid subscription"})
				return
			}
		}
		if err := sub.validate(); err != nil {
			c.reply(FrameError, in.ID, map[string]string{"message": err.Error()})
			return
		}
		if in.Type == FrameSubscribe {
			c.subscribe(sub)
		} else {
			c.unsubscribe(sub)
		}
		c.reply(FrameAck, in.ID, c.current())
	default:
		c.reply(FrameError, in.ID, map[string]string{"message": "unknown frame type: " + string(in.Type)})
	}
}

func (c *wsClient) subscribe(sub Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range sub.Channels {
		c.channels[ch] = struct{}{}
	}
	for _, id := range sub.Devices {
		c.devices[id] = struct{}{}
	}
}

func (c *wsClient) unsubscribe(sub Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range sub.Channels {
		delete(c.channels, ch)
	}
	for _, id := range sub.Devices {
		delete(c.devices, id)
	}
}

// current returns the client's subscription in lexical order.
func (c *wsClient) current() Subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sub := Subscription{Channels: []string{}, Devices: []string{}}
	for ch := range c.channels {
		sub.Channels = append(sub.Channels, ch)
	}
	for id := range c.devices {
		sub.Devices = append(sub.Devices, id)
	}
	slices.Sort(sub.Channels)
	slices.Sort(sub.Devices)
	return sub
}

func (c *wsClient) follows(channel, deviceID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.channels[channel]; !ok {
		return false
	}
	if deviceID == "" || len(c.devices) == 0 {
		return true
	}
	_, ok := c.devices[deviceID]
	return ok
}

// push queues data without blocking. A full queue drops the frame; a queue
// closed by a concurrent disconnect is absorbed.
func (c *wsClient) push(data []byte) {
	defer func() {
		if recover() != nil {
			c.hub.dropped.Add(1)
		}
	}()

	select {
	case c.queue <- data:
		c.hub.delivered.Add(1)
	default:
		c.hub.dropped.Add(1)
	}
}

func (c *wsClient) reply(t FrameType, id string, data any) {
	frame, err := json.Marshal(Frame{
		Type: t,
		ID:   id,
		Time: time.Now().UTC().Format(time.RFC3339),
		Data: data,
	})
	if err != nil {
		return
	}
	c.push(frame)
}
