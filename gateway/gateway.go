package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/targodan/UberSpatchBoard/data"
	"github.com/targodan/UberSpatchBoard/errors"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// Deps holds runtime dependencies for the Gateway.
type Deps struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr        string
	CaseManager *data.CaseManager
	Logger      *slog.Logger
}

// Gateway serves the board state over HTTP and WebSocket.
//
//	GET /api/cases        open cases as JSON
//	GET /api/cases/closed closed cases as JSON
//	GET /ws               case change event stream
type Gateway struct {
	addr   string
	cm     *data.CaseManager
	logger *slog.Logger

	upgrader websocket.Upgrader

	clients   map[string]*wsClient
	clientsMu sync.RWMutex

	mu             sync.Mutex
	running        bool
	server         *http.Server
	listener       net.Listener
	subscriptionID string
	shutdown       chan struct{}
	wg             *sync.WaitGroup
}

// wsClient is one connected WebSocket consumer. Writes are serialized
// per connection; gorilla/websocket does not allow concurrent writers.
type wsClient struct {
	id        string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a Gateway.
func New(deps Deps) *Gateway {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "gateway")
	}

	return &Gateway{
		addr:   deps.Addr,
		cm:     deps.CaseManager,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// The board is read-only; any origin may watch.
				return true
			},
		},
		clients: make(map[string]*wsClient),
	}
}

// Initialize validates the gateway's dependencies.
func (g *Gateway) Initialize() error {
	if g.addr == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Gateway", "Initialize", "listen address validation")
	}
	if g.cm == nil {
		return errors.WrapInvalid(errors.ErrNoCaseManager,
			"Gateway", "Initialize", "case manager validation")
	}
	return nil
}

// Start binds the listen address, subscribes to case events and serves
// until Stop. Idempotent.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "Gateway", "Start", "context check")
	}

	listener, err := net.Listen("tcp", g.addr)
	if err != nil {
		return errors.WrapFatal(err, "Gateway", "Start",
			fmt.Sprintf("failed to bind %s", g.addr))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cases", g.handleOpenCases)
	mux.HandleFunc("GET /api/cases/closed", g.handleClosedCases)
	mux.HandleFunc("GET /ws", g.handleWebSocket)

	g.listener = listener
	g.server = &http.Server{Handler: mux}
	g.shutdown = make(chan struct{})
	g.wg = &sync.WaitGroup{}
	g.subscriptionID = g.cm.Subscribe(g.broadcastEvent)
	g.running = true

	g.wg.Add(2)
	go g.runServer()
	go g.pingLoop()

	return nil
}

// Stop unsubscribes from case events, closes every client and shuts
// the HTTP server down.
func (g *Gateway) Stop(timeout time.Duration) error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	g.running = false

	g.cm.Unsubscribe(g.subscriptionID)
	close(g.shutdown)
	server := g.server
	wg := g.wg
	g.server = nil
	g.listener = nil
	g.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		g.logger.Warn("HTTP server shutdown error.", "error", err)
	}

	g.closeAllClients()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("stop timeout after %v", timeout),
			"Gateway", "Stop", "goroutine shutdown")
	}

	return nil
}

// Address returns the bound address, useful when Addr was ":0".
func (g *Gateway) Address() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.listener == nil {
		return g.addr
	}
	return g.listener.Addr().String()
}

func (g *Gateway) runServer() {
	defer g.wg.Done()

	g.mu.Lock()
	server := g.server
	listener := g.listener
	g.mu.Unlock()

	if server == nil || listener == nil {
		return
	}

	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		g.logger.Error("HTTP server failed.", "error", err)
	}
}

func (g *Gateway) handleOpenCases(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, newCaseViews(g.cm.OpenCases()))
}

func (g *Gateway) handleClosedCases(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, newCaseViews(g.cm.ClosedCases()))
}

func (g *Gateway) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		g.logger.Error("Could not encode response.", "error", err)
	}
}

// snapshotEnvelope is the first frame a new WebSocket client receives:
// the full open-case state, so updates can be applied incrementally.
type snapshotEnvelope struct {
	Kind  string     `json:"kind"`
	Cases []caseView `json:"cases"`
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("WebSocket upgrade failed.", "error", err)
		return
	}

	// Join the lifecycle group before anything else: an Add racing the
	// Wait in Stop is WaitGroup misuse, so it happens under the lock
	// and only while running.
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		_ = conn.Close()
		return
	}
	wg := g.wg
	wg.Add(1)
	g.mu.Unlock()

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
	}

	g.clientsMu.Lock()
	g.clients[client.id] = client
	clientCount := len(g.clients)
	g.clientsMu.Unlock()

	g.logger.Info("Board connected.", "client", client.id, "clients", clientCount)

	snapshot := snapshotEnvelope{
		Kind:  "snapshot",
		Cases: newCaseViews(g.cm.OpenCases()),
	}
	if err := g.send(client, snapshot); err != nil {
		g.removeClient(client)
		wg.Done()
		return
	}

	go func() {
		defer wg.Done()
		g.readLoop(client)
	}()
}

// readLoop consumes inbound frames so close and pong frames are
// processed; the gateway has no inbound protocol beyond that.
func (g *Gateway) readLoop(client *wsClient) {
	defer g.removeClient(client)

	client.conn.SetPongHandler(func(string) error {
		_ = client.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		select {
		case <-g.shutdown:
			return
		default:
		}

		_ = client.conn.SetReadDeadline(time.Now().Add(readTimeout))
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) pingLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.shutdown:
			return
		case <-ticker.C:
			for _, client := range g.clientSnapshot() {
				client.writeMu.Lock()
				_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				err := client.conn.WriteMessage(websocket.PingMessage, nil)
				client.writeMu.Unlock()
				if err != nil {
					g.removeClient(client)
				}
			}
		}
	}
}

// broadcastEvent runs on the dispatcher goroutine for every case
// mutation; it must not block indefinitely, so writes carry deadlines
// and failing clients are dropped.
func (g *Gateway) broadcastEvent(event data.Event) {
	view := newEventView(event)
	for _, client := range g.clientSnapshot() {
		if err := g.send(client, view); err != nil {
			g.removeClient(client)
		}
	}
}

func (g *Gateway) send(client *wsClient, payload any) error {
	if client.closed.Load() {
		return nil
	}

	client.writeMu.Lock()
	defer client.writeMu.Unlock()

	_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return client.conn.WriteJSON(payload)
}

func (g *Gateway) clientSnapshot() []*wsClient {
	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()

	clients := make([]*wsClient, 0, len(g.clients))
	for _, client := range g.clients {
		if !client.closed.Load() {
			clients = append(clients, client)
		}
	}
	return clients
}

func (g *Gateway) removeClient(client *wsClient) {
	client.closeOnce.Do(func() {
		client.closed.Store(true)

		g.clientsMu.Lock()
		delete(g.clients, client.id)
		clientCount := len(g.clients)
		g.clientsMu.Unlock()

		_ = client.conn.Close()
		g.logger.Info("Board disconnected.", "client", client.id, "clients", clientCount)
	})
}

func (g *Gateway) closeAllClients() {
	for _, client := range g.clientSnapshot() {
		g.removeClient(client)
	}
}
