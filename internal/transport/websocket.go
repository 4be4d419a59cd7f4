// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"breakfast/internal/analysis"
	applog "breakfast/internal/log"

	"github.com/gorilla/websocket"
)

var wsLog = applog.With("websocket")

// WebSocketTransport serves JSON snapshots to every connected renderer on
// /ws. Frames are queued for a broadcast goroutine; when the queue is full
// the frame is dropped rather than stalling the frame loop.
type WebSocketTransport struct {
	addr           string
	includeHistory bool
	upgrader       websocket.Upgrader
	clients        map[*websocket.Conn]bool
	clientsMu      sync.Mutex
	clientCount    atomic.Int32
	broadcast      chan []byte
	server         *http.Server
	listener       net.Listener
	snapshot       Snapshot
	dropped        atomic.Uint64
	closeOnce      sync.Once
	done           chan struct{}
}

// NewWebSocketTransport creates a transport for addr. Call Start to listen,
// or mount Handler on an existing server.
func NewWebSocketTransport(addr string, includeHistory bool) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr:           addr,
		includeHistory: includeHistory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // renderers are served from anywhere
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 8),
		done:      make(chan struct{}),
	}
	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving /ws.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", wst.addr, err)
	}
	wst.listener = ln
	wst.server = &http.Server{Handler: wst.Handler()}

	go func() {
		wsLog.Infof("serving snapshots on ws://%s/ws", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wsLog.Errorf("server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener == nil {
		return wst.addr
	}
	return wst.listener.Addr().String()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsLog.Warnf("upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	wst.clientCount.Store(int32(len(wst.clients)))
	wst.clientsMu.Unlock()
	wsLog.Infof("client %s connected, total: %d", conn.RemoteAddr(), wst.clientCount.Load())

	// Renderers never send; reading only detects the disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	if wst.clients[conn] {
		delete(wst.clients, conn)
		conn.Close()
	}
	wst.clientCount.Store(int32(len(wst.clients)))
	wst.clientsMu.Unlock()
	wsLog.Infof("client disconnected, total: %d", wst.clientCount.Load())
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case msg := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
					wsLog.Warnf("error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientCount.Store(int32(len(wst.clients)))
			wst.clientsMu.Unlock()
		case <-wst.done:
			return
		}
	}
}

// Publish serializes f when at least one renderer is connected.
func (wst *WebSocketTransport) Publish(f *analysis.Frame) error {
	if wst.clientCount.Load() == 0 {
		return nil
	}
	wst.snapshot.Fill(f, wst.includeHistory)
	msg, err := json.Marshal(&wst.snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", f.Index, err)
	}
	select {
	case wst.broadcast <- msg:
	default:
		wst.dropped.Add(1)
	}
	return nil
}

// Clients returns the number of connected renderers.
func (wst *WebSocketTransport) Clients() int { return int(wst.clientCount.Load()) }

// Dropped returns how many frames were skipped because the queue was full.
func (wst *WebSocketTransport) Dropped() uint64 { return wst.dropped.Load() }

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		wsLog.Infof("closing server")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientCount.Store(0)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

var _ Sink = (*WebSocketTransport)(nil)
