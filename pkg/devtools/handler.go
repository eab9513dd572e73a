package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HandlerConfig configures the inspector HTTP handler.
type HandlerConfig struct {
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	// Logger receives websocket and encoding failures.
	// Default: slog.Default()
	Logger *slog.Logger

	// CheckOrigin validates websocket origins.
	// Default: same-origin check of gorilla/websocket.
	CheckOrigin func(r *http.Request) bool

	// WriteTimeout bounds each websocket write (default: 10s).
	WriteTimeout time.Duration
}

// HandlerOption configures the inspector HTTP handler.
type HandlerOption func(*HandlerConfig)

// WithGatherer exposes the given gatherer on /metrics.
func WithGatherer(g prometheus.Gatherer) HandlerOption {
	return func(c *HandlerConfig) {
		c.Gatherer = g
	}
}

// WithLogger sets the handler's logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(c *HandlerConfig) {
		c.Logger = logger
	}
}

// WithCheckOrigin sets the websocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.CheckOrigin = fn
	}
}

// WithWriteTimeout sets the websocket write timeout.
func WithWriteTimeout(d time.Duration) HandlerOption {
	return func(c *HandlerConfig) {
		c.WriteTimeout = d
	}
}

type handler struct {
	hub      *Hub
	config   HandlerConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// Handler returns the inspector routes:
//
//	GET /graph    latest published snapshot (404 before the first Publish)
//	GET /events   buffered events, oldest first; ?limit=N keeps the last N
//	GET /ws       websocket stream of events as JSON text messages
//	GET /metrics  Prometheus exposition, when WithGatherer is given
func Handler(hub *Hub, opts ...HandlerOption) http.Handler {
	config := HandlerConfig{WriteTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&config)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{
		hub:    hub,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger.With("component", "devtools"),
	}

	r := chi.NewRouter()
	r.Get("/graph", h.graph)
	r.Get("/events", h.events)
	r.Get("/ws", h.stream)
	if config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *handler) graph(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.hub.Latest()
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot published"})
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	events := h.hub.Events(limit)
	if events == nil {
		events = []Record{}
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *handler) stream(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the upgrade completes so no event published after
	// the client's handshake is missed.
	ch, cancel := h.hub.Subscribe()
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Reader: the only inbound traffic is control frames and close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for rec := range ch {
		conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
		if err := conn.WriteJSON(rec); err != nil {
			h.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("devtools encode failed", "error", err)
	}
}
