// Package transport exposes the engine over HTTP and WebSocket. The
// WebSocket half is adapted from the reference service's Hub/Client
// broadcast pattern (internal/api/websocket.go): a central Hub owns the
// client set and a Client owns one connection's read/write pumps, each
// pump running on its own goroutine and communicating back to the Hub
// only through channels.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/atlas-desktop/agente/internal/economy/engine"
	"github.com/atlas-desktop/agente/internal/economy/metricstore"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"github.com/atlas-desktop/agente/internal/economy/validate"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MiB, matching the HTTP body limit
)

// MessageType enumerates the inbound/outbound WebSocket message kinds.
type MessageType string

const (
	MsgTick            MessageType = "tick"
	MsgEvent           MessageType = "event"
	MsgHealth          MessageType = "health"
	MsgDiagnose        MessageType = "diagnose"
	MsgTickResult      MessageType = "tick_result"
	MsgValidationError MessageType = "validation_error"
	MsgValidationWarn  MessageType = "validation_warning"
	MsgHealthResult    MessageType = "health_result"
	MsgError           MessageType = "error"
)

// WSMessage is the single JSON envelope every WebSocket message uses,
// discriminated on Type; unused fields are omitted by the caller.
type WSMessage struct {
	Type        MessageType           `json:"type"`
	State       *types.EconomyState   `json:"state,omitempty"`
	Events      []types.EconomicEvent `json:"events,omitempty"`
	Event       *types.EconomicEvent  `json:"event,omitempty"`
	Adjustments []Adjustment          `json:"adjustments,omitempty"`
	Alerts      []Alert               `json:"alerts,omitempty"`
	Health      float64               `json:"health,omitempty"`
	Tick        int                   `json:"tick,omitempty"`
	Mode        string                `json:"mode,omitempty"`
	ActivePlans int                   `json:"activePlans,omitempty"`
	Uptime      float64               `json:"uptime,omitempty"`
	Diagnoses   []types.Diagnosis     `json:"diagnoses,omitempty"`
	Validation  []validate.Issue      `json:"validation,omitempty"`
	Warning     []validate.Issue      `json:"warning,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// upgrader allows cross-origin WebSocket upgrades, matching the rest of
// the transport's CORS-open posture (the engine trusts its caller, not the
// browser origin, for authorization).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks every connected Client and serializes pushes to them.
type Hub struct {
	logger *zap.Logger
	eng    *engine.Engine
	sink   StateSink
	start  time.Time

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub builds a Hub bound to the engine it serves. sink may be nil.
func NewHub(logger *zap.Logger, eng *engine.Engine, sink StateSink) *Hub {
	return &Hub{
		logger:  logger.Named("ws"),
		eng:     eng,
		sink:    sink,
		start:   time.Now(),
		clients: make(map[*Client]bool),
	}
}

// ServeHTTP upgrades the connection and starts the client's read/write
// pumps. It returns once the upgrade itself fails; pump lifetimes are
// independent goroutines from here on.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 32),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount reports how many WebSocket clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client wraps one upgraded connection and its outbound queue.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump reads inbound messages and dispatches them by Type. It owns the
// connection's only reader, per gorilla/websocket's concurrency contract.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		c.handleMessage(raw)
	}
}

// writePump drains the client's send queue to the connection, interleaving
// a periodic ping so dead connections are detected within pongWait.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(raw []byte) {
	var in WSMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		c.sendJSON(WSMessage{Type: MsgError, Error: "malformed message: " + err.Error()})
		return
	}

	switch in.Type {
	case MsgTick:
		c.handleTick(in)
	case MsgEvent:
		// Events arriving outside a tick submission are accepted but have no
		// effect until the next tick message supplies the full state; the
		// engine has no standing event queue of its own (§5 suspension-point
		// note: the host owns time).
		c.handleHealth()
	case MsgHealth:
		c.handleHealth()
	case MsgDiagnose:
		c.handleDiagnose(in)
	default:
		c.sendJSON(WSMessage{Type: MsgError, Error: "unknown message type"})
	}
}

func (c *Client) handleTick(in WSMessage) {
	if in.State == nil {
		c.sendJSON(WSMessage{Type: MsgError, Error: "tick message requires state"})
		return
	}

	if issues := validate.State(*in.State, in.Events); len(issues) > 0 {
		c.sendJSON(WSMessage{Type: MsgValidationError, Validation: issues})
		return
	}
	if warnings := validate.Warnings(*in.State); len(warnings) > 0 {
		c.sendJSON(WSMessage{Type: MsgValidationWarn, Warning: warnings})
	}

	if c.hub.sink != nil {
		c.hub.sink.SetState(*in.State, in.Events)
	}

	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	result, err := c.hub.eng.ProcessTick(ctx, *in.State, in.Events, in.State.PersonaDistribution)
	if err != nil {
		c.sendJSON(WSMessage{Type: MsgError, Error: err.Error()})
		return
	}

	c.sendJSON(WSMessage{
		Type:        MsgTickResult,
		Adjustments: adjustmentsFor(result),
		Alerts:      alertsFor(result.Diagnoses),
		Health:      result.HealthScore,
		Tick:        result.Tick,
	})
}

func (c *Client) handleHealth() {
	latest, _ := c.hub.eng.MetricStore().Latest(metricstore.Fine)
	c.sendJSON(WSMessage{
		Type:        MsgHealthResult,
		Health:      metricstore.HealthScore(latest),
		Tick:        latest.Tick,
		ActivePlans: len(c.hub.eng.ActivePlans()),
		Uptime:      time.Since(c.hub.start).Seconds(),
	})
}

func (c *Client) handleDiagnose(in WSMessage) {
	if in.State == nil {
		c.sendJSON(WSMessage{Type: MsgError, Error: "diagnose message requires state"})
		return
	}
	health, diagnoses := c.hub.eng.Diagnose(*in.State, in.Events)
	c.sendJSON(WSMessage{Type: MsgHealthResult, Health: health, Diagnoses: diagnoses})
}

func (c *Client) sendJSON(msg WSMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("failed to marshal outbound ws message", zap.Error(err))
		return
	}
	select {
	case c.send <- b:
	default:
		c.hub.logger.Warn("client send buffer full, dropping message")
	}
}
