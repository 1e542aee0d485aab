package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dag-explorer/logger"
)

const (
	writeTimeout      = 3 * time.Second
	clientChannelSize = 64
)

// Frame is one message on the explorer feed
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// navigationEvent is the inbound cross-view focus signal
type navigationEvent struct {
	Type string `json:"type"`
	Hash string `json:"hash"`
}

// a websocket client with a channel for downstream messages
type wsclient struct {
	channel chan Frame
	exit    chan struct{}
}

// Hub fans refreshed snapshots and scenes out to connected consoles and
// forwards inbound focus-navigation events to the resolver. Slow clients
// drop frames rather than block the refresh cycle.
type Hub struct {
	upgrader websocket.Upgrader
	onFocus  func(hash string)

	mux     sync.Mutex
	clients map[string]*wsclient
}

// NewHub creates a hub; onFocus receives every inbound navigation hash
func NewHub(onFocus func(hash string)) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: writeTimeout,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		onFocus: onFocus,
		clients: make(map[string]*wsclient),
	}
}

// Handle upgrades an HTTP request to a websocket feed connection
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	clientID := uuid.NewString()
	client := &wsclient{
		channel: make(chan Frame, clientChannelSize),
		exit:    make(chan struct{}),
	}
	h.mux.Lock()
	h.clients[clientID] = client
	h.mux.Unlock()

	logger.Logger.Info("Websocket client connected", zap.String("client_id", clientID))

	go h.writeLoop(conn, client)
	h.readLoop(conn, clientID, client)
}

// writeLoop drains the client's frame channel onto the wire
func (h *Hub) writeLoop(conn *websocket.Conn, client *wsclient) {
	for {
		select {
		case <-client.exit:
			return
		case frame := <-client.channel:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

// readLoop consumes inbound navigation events until the connection drops
func (h *Hub) readLoop(conn *websocket.Conn, clientID string, client *wsclient) {
	defer func() {
		h.mux.Lock()
		delete(h.clients, clientID)
		h.mux.Unlock()
		close(client.exit)
		conn.Close()
		logger.Logger.Info("Websocket client disconnected", zap.String("client_id", clientID))
	}()

	for {
		var ev navigationEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		if ev.Type == "focus" && ev.Hash != "" && h.onFocus != nil {
			h.onFocus(ev.Hash)
		}
	}
}

// Broadcast queues a frame for every connected client, dropping it for
// clients whose channel is full
func (h *Hub) Broadcast(frameType string, data interface{}) {
	frame := Frame{Type: frameType, Data: data}

	h.mux.Lock()
	defer h.mux.Unlock()
	for _, client := range h.clients {
		select {
		case client.channel <- frame:
		default:
			// slow consumer, frame dropped
		}
	}
}
