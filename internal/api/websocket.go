package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-scanner/internal/bridges/uniden"
	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/logging"
)

// Channels a WebSocket client can subscribe to.
const (
	// ChannelScannerState carries every StateMessage the bridge publishes.
	ChannelScannerState = "scanner.state"

	// ChannelScannerAck carries every AckMessage the bridge publishes.
	ChannelScannerAck = "scanner.ack"
)

var channels = []string{ChannelScannerState, ChannelScannerAck}

// Frame types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// clientQueueSize bounds frames waiting for a slow client. Further frames
// for that client are dropped.
const clientQueueSize = 64

// WSMessage is one frame in either direction. Inbound payloads stay raw
// until the frame type is known.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe frames.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// encodeFrame builds an outbound frame.
func encodeFrame(msgType, id, eventType string, payload any) ([]byte, error) {
	msg := WSMessage{
		Type:      msgType,
		ID:        id,
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}

// Hub fans scanner events out to WebSocket clients.
//
// It keeps the last state event per scanner so a client subscribing to
// scanner.state sees current display content without waiting for the next
// change.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu        sync.RWMutex
	clients   map[*wsClient]struct{}
	lastState map[string][]byte
}

// NewHub creates a hub. Run must be called to close clients on shutdown.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:       cfg,
		logger:    logger,
		clients:   make(map[*wsClient]struct{}),
		lastState: make(map[string][]byte),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends payload as an event to clients subscribed to channel.
func (h *Hub) Broadcast(channel string, payload any) {
	frame, err := encodeFrame(WSTypeEvent, "", channel, payload)
	if err != nil {
		h.logger.Error("encoding websocket event", "channel", channel, "error", err)
		return
	}
	h.fanout(channel, frame)
}

// PublishState broadcasts state and remembers it for late subscribers.
func (h *Hub) PublishState(state uniden.StateMessage) {
	frame, err := encodeFrame(WSTypeEvent, "", ChannelScannerState, state)
	if err != nil {
		h.logger.Error("encoding scanner state event", "device_id", state.DeviceID, "error", err)
		return
	}

	h.mu.Lock()
	h.lastState[state.DeviceID] = frame
	h.mu.Unlock()

	h.fanout(ChannelScannerState, frame)
}

func (h *Hub) fanout(channel string, frame []byte) {
	h.mu.RLock()
	recipients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		if c.subscribed(channel) {
			recipients = append(recipients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		c.enqueue(frame)
	}
}

// replay returns the cached frames for channel.
func (h *Hub) replay(channel string) [][]byte {
	if channel != ChannelScannerState {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	frames := make([][]byte, 0, len(h.lastState))
	for _, f := range h.lastState {
		frames = append(frames, f)
	}
	return frames
}

// subscribeRelay subscribes to scanner state and acks on MQTT.
func (s *Server) subscribeRelay() error {
	if s.mqtt == nil {
		return nil
	}

	if err := s.mqtt.Subscribe(uniden.StateSubscribeTopic(), 1, s.relayState); err != nil {
		return fmt.Errorf("subscribing to scanner state: %w", err)
	}
	if err := s.mqtt.Subscribe(uniden.AckSubscribeTopic(), 1, s.relayAck); err != nil {
		return fmt.Errorf("subscribing to scanner acks: %w", err)
	}
	s.logger.Info("relaying scanner events to WebSocket clients",
		"state_topic", uniden.StateSubscribeTopic(),
		"ack_topic", uniden.AckSubscribeTopic(),
	)
	return nil
}

func (s *Server) relayState(topic string, payload []byte) error {
	if s.hub == nil {
		return nil
	}

	var state uniden.StateMessage
	if err := json.Unmarshal(payload, &state); err != nil {
		return fmt.Errorf("parsing state message on %s: %w", topic, err)
	}
	s.hub.PublishState(state)
	return nil
}

func (s *Server) relayAck(topic string, payload []byte) error {
	if s.hub == nil {
		return nil
	}

	var ack uniden.AckMessage
	if err := json.Unmarshal(payload, &ack); err != nil {
		return fmt.Errorf("parsing ack message on %s: %w", topic, err)
	}
	s.hub.Broadcast(ChannelScannerAck, ack)
	return nil
}

// handleWebSocket upgrades the request and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "websocket hub not running")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &wsClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, clientQueueSize),
		channels: make(map[string]struct{}),
	}
	s.hub.register(c)

	go c.writePump()
	go c.readPump()
}

// wsClient is one WebSocket connection.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn

	mu       sync.Mutex
	send     chan []byte
	closed   bool
	channels map[string]struct{}
}

// enqueue queues frame unless the client is closed or its queue is full.
func (c *wsClient) enqueue(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.hub.logger.Debug("websocket client queue full, dropping frame")
	}
}

// close ends the write pump. It is safe to call more than once.
func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *wsClient) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.channels[channel]
	return ok
}

func (c *wsClient) timings() (ping, pong time.Duration) {
	return time.Duration(c.hub.cfg.PingInterval) * time.Second,
		time.Duration(c.hub.cfg.PongTimeout) * time.Second
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	ping, pong := c.timings()
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(ping + pong)) }

	c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers may not answer protocol pings; any frame counts.
		extend() //nolint:errcheck // a failed deadline surfaces as a read error
		c.handleFrame(data)
	}
}

func (c *wsClient) writePump() {
	ping, pong := c.timings()
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(pong)) //nolint:errcheck // write fails instead
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(pong)) //nolint:errcheck // write fails instead
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handleFrame(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(WSTypeError, "", map[string]string{"message": "invalid JSON frame"})
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.handleSubscription(msg)
	case WSTypePing:
		c.reply(WSTypePong, msg.ID, nil)
	default:
		c.reply(WSTypeError, msg.ID, map[string]string{"message": "unknown frame type: " + msg.Type})
	}
}

// handleSubscription applies a subscribe or unsubscribe frame. Unknown
// channels reject the whole frame.
func (c *wsClient) handleSubscription(msg WSMessage) {
	var sub WSSubscribePayload
	if err := json.Unmarshal(msg.Payload, &sub); err != nil || len(sub.Channels) == 0 {
		c.reply(WSTypeError, msg.ID, map[string]string{"message": "payload must list channels"})
		return
	}
	for _, ch := range sub.Channels {
		if !slices.Contains(channels, ch) {
			c.reply(WSTypeError, msg.ID, map[string]any{
				"message":  "unknown channel: " + ch,
				"channels": channels,
			})
			return
		}
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		if msg.Type == WSTypeSubscribe {
			c.channels[ch] = struct{}{}
		} else {
			delete(c.channels, ch)
		}
	}
	c.mu.Unlock()

	key := "subscribed"
	if msg.Type == WSTypeUnsubscribe {
		key = "unsubscribed"
	}
	c.reply(WSTypeResponse, msg.ID, map[string]any{key: sub.Channels})

	if msg.Type == WSTypeSubscribe {
		for _, ch := range sub.Channels {
			for _, frame := range c.hub.replay(ch) {
				c.enqueue(frame)
			}
		}
	}
}

func (c *wsClient) reply(msgType, id string, payload any) {
	frame, err := encodeFrame(msgType, id, "", payload)
	if err != nil {
		return
	}
	c.enqueue(frame)
}
