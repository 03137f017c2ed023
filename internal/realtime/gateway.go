package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClientDisconnected = fmt.Errorf("client disconnected")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Compression is deliberately not negotiated for client compatibility.
	EnableCompression: false,
	CheckOrigin:       checkOrigin,
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients (native apps, tests) send no Origin.
		return true
	}

	allowedOrigins := []string{
		"http://localhost:3000",
		"https://localhost:3000",
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1:3000",
		"http://127.0.0.1",
	}
	if customOrigins := os.Getenv("ALLOWED_ORIGINS"); customOrigins != "" {
		for _, customOrigin := range strings.Split(customOrigins, ",") {
			allowedOrigins = append(allowedOrigins, strings.TrimSpace(customOrigin))
		}
	}

	for _, allowedOrigin := range allowedOrigins {
		if origin == allowedOrigin {
			return true
		}
	}
	return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
}

// Gateway accepts inbound transport connections, runs the authenticate
// handshake, dispatches validated frames to the router and tears connections
// down exactly once on close.
type Gateway struct {
	registry *Registry
	presence *Presence
	router   *Router
}

func NewGateway(registry *Registry, presence *Presence, router *Router) *Gateway {
	return &Gateway{
		registry: registry,
		presence: presence,
		router:   router,
	}
}

// ServeWS upgrades an HTTP request and runs the connection's pumps.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := newClient(g, conn)
	slog.Info("New WebSocket connection established", "clientID", client.id)

	go client.writePump()
	go client.readPump()
}

// Shutdown closes every registered connection; each close runs the normal
// cleanup path.
func (g *Gateway) Shutdown() {
	for _, c := range g.registry.Snapshot() {
		c.Close()
	}
}

// handleFrame processes one inbound frame to completion. Malformed frames and
// frames that require authentication before the handshake are logged and
// dropped; the connection stays open.
func (g *Gateway) handleFrame(c *Client, raw []byte) {
	frame, err := DecodeFrame(raw)
	if err != nil {
		slog.Debug("Dropping malformed frame", "clientID", c.id, "error", err)
		return
	}

	if frame.Type == FrameTypeAuthenticate {
		g.handleAuthenticate(c, frame.Data)
		return
	}

	if !c.Authenticated() {
		// No rejection frame is sent; the handshake simply has not happened.
		slog.Debug("Dropping frame from unauthenticated connection", "clientID", c.id, "type", frame.Type)
		return
	}

	ctx := context.Background()

	switch frame.Type {
	case FrameTypeNewMessage:
		var data NewMessageData
		if err := json.Unmarshal(frame.Data, &data); err != nil || data.ConversationID == 0 {
			slog.Debug("Dropping invalid new_message frame", "clientID", c.id, "error", err)
			return
		}
		g.router.RouteConversationMessage(ctx, data.ConversationID, c.UserID(), data.Message)

	case FrameTypeUserTyping:
		var data TypingData
		if err := json.Unmarshal(frame.Data, &data); err != nil || data.ConversationID == 0 {
			slog.Debug("Dropping invalid user_typing frame", "clientID", c.id, "error", err)
			return
		}
		g.router.RouteTyping(ctx, data.ConversationID, c.UserID(), data.IsTyping)

	case FrameTypeCallSignal, FrameTypeCallEnded:
		var data CallSignalData
		if err := json.Unmarshal(frame.Data, &data); err != nil || data.Target == 0 {
			slog.Debug("Dropping invalid call frame", "clientID", c.id, "type", frame.Type, "error", err)
			return
		}
		if frame.Type == FrameTypeCallSignal {
			g.router.RouteCallSignal(data.Target, frame.Data)
		} else {
			g.router.RouteCallEnded(data.Target, frame.Data)
		}

	default:
		// user_status and courrier_message are outbound-only.
		slog.Debug("Dropping unexpected inbound frame", "clientID", c.id, "type", frame.Type)
	}
}

// handleAuthenticate binds a user to the connection and registers it. A
// repeated authenticate on an already-bound connection is ignored.
func (g *Gateway) handleAuthenticate(c *Client, data json.RawMessage) {
	if c.Authenticated() {
		slog.Debug("Ignoring repeated authenticate frame", "clientID", c.id, "userID", c.UserID())
		return
	}

	var auth AuthenticateData
	if err := json.Unmarshal(data, &auth); err != nil || auth.UserID == 0 {
		slog.Debug("Dropping invalid authenticate frame", "clientID", c.id, "error", err)
		return
	}

	c.bindUser(auth.UserID)
	first := g.registry.Register(auth.UserID, c)
	slog.Info("Client authenticated", "clientID", c.id, "userID", auth.UserID, "firstConnection", first)

	if status, changed := g.presence.ConnectionRegistered(context.Background(), auth.UserID, first); changed {
		g.router.BroadcastStatus(auth.UserID, status)
	}
}

// dropClient runs the closed-state cleanup exactly once per connection,
// whether the close was graceful, an I/O error, or a server-side kick racing
// with a read error.
func (g *Gateway) dropClient(c *Client) {
	c.cleanupOnce.Do(func() {
		userID, last, ok := g.registry.Unregister(c)
		if !ok {
			// Disconnected before authenticating; nothing was registered.
			slog.Debug("Unauthenticated connection closed", "clientID", c.id)
			return
		}

		slog.Info("Client disconnected", "clientID", c.id, "userID", userID,
			"lastConnection", last, "sessionDuration", time.Since(c.ConnectedAt()))

		if status, changed := g.presence.ConnectionUnregistered(context.Background(), userID, last); changed {
			g.router.BroadcastStatus(userID, status)
		}
	})
}
