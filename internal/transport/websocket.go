// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"audiostream/internal/log"
)

// WebSocketTransport broadcasts every message as JSON to all clients
// connected on /ws. Messages are dropped when the broadcast queue is full.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	listener  net.Listener
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

// NewWebSocketTransport listens on addr and starts serving. Use port 0 to
// pick a free port; Addr reports the bound address.
func NewWebSocketTransport(addr string) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Visualisers are served from other origins.
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		listener:  ln,
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	wst.server = &http.Server{Handler: mux}

	go func() {
		log.Infof("WebSocketTransport: Serving on ws://%s/ws", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()
	return wst, nil
}

// Addr returns the address the server listens on.
func (wst *WebSocketTransport) Addr() string { return wst.listener.Addr().String() }

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Dropped returns how many messages were discarded because the queue was full.
func (wst *WebSocketTransport) Dropped() int64 { return wst.dropped.Load() }

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	log.Infof("WebSocketTransport: Client connected, total: %d", total)

	// Clients never send; a read error means the peer went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	if ok {
		conn.Close()
		log.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(data); err != nil {
					log.Warnf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		case <-wst.done:
			return
		}
	}
}

// Send queues data for broadcast without blocking.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return errors.New("websocket transport closed")
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
		wst.dropped.Add(1)
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		log.Info("WebSocketTransport: Closing server")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		err = wst.server.Close()
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
