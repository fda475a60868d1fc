// Package server exposes the Voxgate HTTP surface: the /ws/voice streaming
// endpoint plus health probes, Prometheus metrics, and session introspection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxhaven/voxgate/internal/auth"
	"github.com/voxhaven/voxgate/internal/health"
	"github.com/voxhaven/voxgate/internal/observe"
	"github.com/voxhaven/voxgate/internal/registry"
	"github.com/voxhaven/voxgate/internal/session"
	"github.com/voxhaven/voxgate/pkg/provider/stt"
	"github.com/voxhaven/voxgate/pkg/provider/tts"
)

// shutdownTimeout bounds how long Run waits for in-flight requests after the
// context is cancelled.
const shutdownTimeout = 10 * time.Second

// Config holds the server's network settings and the per-session defaults
// applied to every accepted connection.
type Config struct {
	// ListenAddr is the TCP address to listen on (e.g., ":8080").
	ListenAddr string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// Stream configures the recognizer streams sessions open.
	Stream stt.StreamConfig

	// Voice parameters applied to every synthesis request.
	VoiceID      string
	Engine       string
	OutputFormat string

	// QueueCapacity and DrainTimeout tune the per-session ingestion queue.
	QueueCapacity int
	DrainTimeout  time.Duration
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Verifier *auth.Verifier
	Registry *registry.Registry
	Metrics  *observe.Metrics
	STT      stt.Provider
	TTS      tts.Provider
	Logger   *slog.Logger
}

// Server serves the Voxgate HTTP API.
type Server struct {
	cfg      Config
	verifier *auth.Verifier
	reg      *registry.Registry
	metrics  *observe.Metrics
	sttp     stt.Provider
	ttsp     tts.Provider
	log      *slog.Logger
}

// New creates a Server. Registry and Logger fall back to sensible defaults
// when nil; Verifier and both providers are required.
func New(cfg Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := deps.Registry
	if reg == nil {
		reg = registry.New()
	}
	return &Server{
		cfg:      cfg,
		verifier: deps.Verifier,
		reg:      reg,
		metrics:  deps.Metrics,
		sttp:     deps.STT,
		ttsp:     deps.TTS,
		log:      log,
	}
}

// Handler builds the full route table. The streaming endpoint bypasses the
// observability middleware: wrapping the ResponseWriter would break the
// WebSocket upgrade.
func (s *Server) Handler() http.Handler {
	plain := http.NewServeMux()

	h := health.New(
		health.Checker{Name: "stt", Check: func(context.Context) error {
			if s.sttp == nil {
				return errors.New("no recognizer configured")
			}
			return nil
		}},
		health.Checker{Name: "tts", Check: func(context.Context) error {
			if s.ttsp == nil {
				return errors.New("no synthesizer configured")
			}
			return nil
		}},
	)
	h.Register(plain)
	plain.Handle("GET /metrics", promhttp.Handler())
	plain.HandleFunc("GET /sessions", s.handleSessions)
	plain.HandleFunc("POST /notify", s.handleNotify)

	root := http.NewServeMux()
	if s.metrics != nil {
		root.Handle("/", observe.Middleware(s.metrics)(plain))
	} else {
		root.Handle("/", plain)
	}
	root.HandleFunc("GET /ws/voice", s.handleVoice)
	return root
}

// Run serves until ctx is cancelled, then shuts down gracefully. Request
// contexts derive from ctx, so live streaming sessions end when it does.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
			errc <- srv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
			return
		}
		errc <- srv.ListenAndServe()
	}()
	s.log.Info("server listening", "addr", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// sessionInfo is one entry in the /sessions response.
type sessionInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// handleNotify fans a message out to every live session of one user.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Message == "" {
		http.Error(w, `{"error":"user_id and message are required"}`, http.StatusBadRequest)
		return
	}

	delivered := s.reg.Notify(r.Context(), req.UserID, req.Message)
	s.log.Info("notification fan-out", "user_id", req.UserID, "delivered", delivered)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(map[string]int{"delivered": delivered}); err != nil {
		s.log.Warn("encode notify response", "err", err)
	}
}

// handleSessions reports all live sessions.
func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	members := s.reg.Snapshot()
	infos := make([]sessionInfo, 0, len(members))
	for _, m := range members {
		info := sessionInfo{
			ID:        m.ID(),
			UserID:    m.UserID(),
			CreatedAt: m.CreatedAt(),
		}
		if st, ok := m.(interface{ State() session.State }); ok {
			info.State = st.State().String()
		}
		infos = append(infos, info)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		s.log.Warn("encode sessions response", "err", err)
	}
}
