// Package server exposes overlay state over a unix socket for inspection
// by overlayctl and tests.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/overlay/internal/daemon/engine"
	"github.com/grovetools/overlay/internal/daemon/store"
	"github.com/grovetools/overlay/pkg/overlay"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunningConfig is the configuration in effect, served by /api/config so
// clients can check what a running host uses.
type RunningConfig struct {
	Display       time.Duration `json:"display"`
	Fade          time.Duration `json:"fade"`
	PollInterval  time.Duration `json:"poll_interval"`
	SweepInterval time.Duration `json:"sweep_interval"`
	MuteStateFile string        `json:"mute_state_file"`
	CommandFile   string        `json:"command_file"`
	IconDir       string        `json:"icon_dir"`
	ConfigFile    string        `json:"config_file,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
}

// OverlaysResponse is the /api/overlays answer for a single address.
type OverlaysResponse struct {
	Address  string               `json:"address"`
	Overlays []overlay.Descriptor `json:"overlays"`
}

// ListenersResponse is the /api/listeners answer.
type ListenersResponse struct {
	Listeners     int    `json:"listeners"`
	StreamClients int    `json:"stream_clients"`
	Wakes         uint64 `json:"wakes"`
}

// StreamUpdate is one message on /api/stream and /api/ws.
type StreamUpdate struct {
	UpdateType string         `json:"update_type"` // "initial" or "damage"
	Snapshot   store.Snapshot `json:"snapshot"`
}

// Server serves the debug API over a unix socket.
type Server struct {
	logger    *logrus.Entry
	mu        sync.Mutex
	server    *http.Server
	engine    *engine.Engine
	hub       *hub
	startedAt time.Time
	upgrader  websocket.Upgrader
}

// New creates a new Server instance.
func New(logger *logrus.Entry) *Server {
	return &Server{
		logger:    logger,
		hub:       newHub(),
		startedAt: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// SetEngine connects the server to an engine and registers for its wakes.
func (s *Server) SetEngine(eng *engine.Engine) {
	if s.engine != nil {
		s.engine.Store().UnregisterListener(s.hub)
	}
	s.engine = eng
	if eng != nil {
		eng.Store().RegisterListener(s.hub)
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/overlays", s.handleGetOverlays)
	mux.HandleFunc("/api/listeners", s.handleGetListeners)
	mux.HandleFunc("/api/config", s.handleGetConfig)
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/ws", s.handleWebsocket)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe starts the server on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	listener, err := Listen(socketPath)
	if err != nil {
		return err
	}

	s.logger.WithField("socket", socketPath).Info("Debug server listening")
	return s.Serve(listener)
}

// Listen opens a unix socket at socketPath readable only by the current
// user, replacing a stale socket file.
func Listen(socketPath string) (net.Listener, error) {
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return listener, nil
}

// Serve serves the API on an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{Handler: s.Handler()}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	return srv.Serve(listener)
}

// Shutdown gracefully stops the server and stops receiving wakes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down debug server...")
	if s.engine != nil {
		s.engine.Store().UnregisterListener(s.hub)
	}
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleGetOverlays returns descriptors for ?address=, or a snapshot of
// every address when no address is given.
func (s *Server) handleGetOverlays(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	addr := r.URL.Query().Get("address")
	if addr == "" {
		writeJSON(w, s.engine.Store().Snapshot())
		return
	}

	descs := s.engine.Store().OverlayInfo(addr)
	if descs == nil {
		descs = []overlay.Descriptor{}
	}
	writeJSON(w, OverlaysResponse{Address: addr, Overlays: descs})
}

func (s *Server) handleGetListeners(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	clients, wakes := s.hub.stats()
	// The hub itself is registered; report host listeners only.
	listeners := s.engine.Store().ListenerCount() - 1
	if listeners < 0 {
		listeners = 0
	}
	writeJSON(w, ListenersResponse{
		Listeners:     listeners,
		StreamClients: clients,
		Wakes:         wakes,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}

	cfg := s.engine.Config()
	timing := cfg.OverlayTiming()
	writeJSON(w, RunningConfig{
		Display:       timing.Display,
		Fade:          timing.Fade,
		PollInterval:  cfg.PollInterval(),
		SweepInterval: cfg.SweepInterval(),
		MuteStateFile: cfg.Files.MuteState,
		CommandFile:   cfg.Files.Command,
		IconDir:       cfg.Icons.Dir,
		ConfigFile:    cfg.Source,
		StartedAt:     s.startedAt,
	})
}

// handleStream sends a snapshot as a Server-Sent Event on connect and after
// every wake.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	send := func(kind string) {
		data, err := json.Marshal(StreamUpdate{UpdateType: kind, Snapshot: s.engine.Store().Snapshot()})
		if err != nil {
			s.logger.WithError(err).Error("Failed to marshal update")
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send("initial")
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case <-ch:
			send("damage")
		}
	}
}

// handleWebsocket streams the same updates as handleStream over a
// websocket. Incoming messages are ignored.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("Websocket client connected")
	send := func(kind string) error {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(StreamUpdate{UpdateType: kind, Snapshot: s.engine.Store().Snapshot()})
	}

	if err := send("initial"); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			s.logger.Debug("Websocket client disconnected")
			return
		case <-r.Context().Done():
			return
		case <-ch:
			if err := send("damage"); err != nil {
				s.logger.WithError(err).Debug("Websocket write failed")
				return
			}
		}
	}
}
