package ws

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quizroom-service/internal/app"
)

// Registry tracks live clients by connection id and is the engine's
// Transport: the engine addresses connections, the registry resolves them.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{clients: make(map[string]*Client), logger: logger}
}

// Send implements app.Transport. An unknown connection id means the client
// already went away; the event is dropped quietly.
func (r *Registry) Send(connID, event string, payload any) {
	r.mu.RLock()
	client, ok := r.clients[connID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	client.Send(event, payload)
}

func (r *Registry) add(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.id] = client
}

func (r *Registry) remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, connID)
}

// Handler upgrades HTTP requests into engine-connected websocket clients.
type Handler struct {
	engine   *app.RoomEngine
	registry *Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHandler(engine *app.RoomEngine, registry *Registry, logger *slog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.NewString()
	client := newClient(connID, conn, h.engine, h.registry, h.logger)
	h.registry.add(client)
	h.logger.Debug("websocket connected", "connId", connID)

	client.run()
}
