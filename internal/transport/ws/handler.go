package ws

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"fleet-monitor/alerting/internal/domain"
	"fleet-monitor/alerting/internal/registry"
)

// Handler upgrades subscriber requests on /ws/{role}/{id} (or /ws/dispatcher)
// and keeps each connection registered until it ends.
type Handler struct {
	upgrader websocket.Upgrader
	reg      Registrar
	opts     Options
	logger   *slog.Logger
}

func NewHandler(reg Registrar, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Subscribers are mobile apps and the dispatch console; no origin
			// policy applies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		reg:    reg,
		opts:   opts.withDefaults(),
		logger: logger.With("component", "ws"),
	}
}

// routingKey reads the subscriber's role and id from the request path.
func routingKey(r *http.Request) (registry.Key, error) {
	role, err := domain.ParseRole(r.PathValue("role"))
	if err != nil {
		return registry.Key{}, err
	}
	if !role.HasIdentity() {
		return registry.KeyFor(role, 0), nil
	}

	raw := r.PathValue("id")
	if raw == "" {
		return registry.Key{}, errIdentityRequired(role)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return registry.Key{}, errInvalidIdentity(raw)
	}
	return registry.KeyFor(role, id), nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, err := routingKey(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Warn("upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := newClient(conn, h.opts, h.logger)
	h.logger.Info("subscriber connected", "conn", c.ID(), "key", key, "remote", r.RemoteAddr)
	c.serve(h.reg, key)
	h.logger.Info("subscriber disconnected", "conn", c.ID(), "key", key)
}
