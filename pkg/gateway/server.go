package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/echogatelabs/echogate/pkg/adapters/stt"
	"github.com/echogatelabs/echogate/pkg/logging"
	"github.com/echogatelabs/echogate/pkg/metrics"
	"github.com/echogatelabs/echogate/pkg/session"
)

// Config holds the HTTP/websocket surface settings.
type Config struct {
	Addr           string   `mapstructure:"addr"`
	TranscribePath string   `mapstructure:"transcribe_path"`
	ChatPath       string   `mapstructure:"chat_path"`
	AllowAnyOrigin bool     `mapstructure:"allow_any_origin"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// IdleTimeoutMS bounds how long a session may sit without inbound
	// frames. Zero disables the bound.
	IdleTimeoutMS int `mapstructure:"idle_timeout_ms"`
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.TranscribePath == "" {
		c.TranscribePath = "/ws/transcribe"
	}
	if c.ChatPath == "" {
		c.ChatPath = "/api/chat"
	}
	if !c.AllowAnyOrigin && len(c.AllowedOrigins) == 0 {
		c.AllowAnyOrigin = true
	}
	return c
}

// Server exposes the transcription websocket, the chat endpoint, and a
// liveness probe. One sessionOrchestrator is created per websocket
// connection; the server only tracks connections so Stop can cut live
// sessions loose during drain.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	streams  stt.Factory
	chat     http.Handler
	obs      metrics.Observer
	logger   *slog.Logger
	server   *http.Server

	mu       sync.Mutex
	active   map[string]clientConn
	draining atomic.Bool
}

// NewServer wires the gateway surface. chat may be nil when no chat
// provider is configured; obs may be nil.
func NewServer(cfg Config, streams stt.Factory, chat http.Handler, obs metrics.Observer) *Server {
	cfg = cfg.withDefaults()
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	s := &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		streams: streams,
		chat:    chat,
		obs:     obs,
		logger:  logging.NewComponentLogger(slog.Default(), "gateway"),
		active:  make(map[string]clientConn),
	}
	s.upgrader.CheckOrigin = s.checkOrigin
	return s
}

func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.TranscribePath, s.handleTranscribe)
	if s.chat != nil {
		mux.Handle(s.cfg.ChatPath, s.chat)
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = s.server.Close()
	}()
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway_server_error", slog.String("error", err.Error()))
		}
	}()
	s.logger.Info("gateway_listening",
		slog.String("addr", s.cfg.Addr),
		slog.String("transcribe_path", s.cfg.TranscribePath))
	return nil
}

// Stop refuses new connections and closes the live ones. Sessions see
// the closed connection as a client disconnect and unwind benignly.
func (s *Server) Stop() error {
	s.draining.Store(true)
	if s.server != nil {
		_ = s.server.Close()
	}
	s.mu.Lock()
	for _, conn := range s.active {
		_ = conn.Close()
	}
	s.active = make(map[string]clientConn)
	s.mu.Unlock()
	return nil
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	query := r.URL.Query()
	cfg := session.Normalize(query.Get("lang"), query.Get("sample_rate"), query.Get("encoding"))
	sessionID := uuid.NewString()

	s.logger.Info("ws_connected",
		slog.String("session_id", sessionID),
		slog.String("remote", r.RemoteAddr),
		slog.String("language", cfg.LanguageCode),
		slog.Int("sample_rate", cfg.SampleRateHz),
		slog.String("encoding", cfg.Encoding))

	stream := s.streams(stt.Config{
		SessionID:  sessionID,
		Language:   cfg.LanguageCode,
		SampleRate: cfg.SampleRateHz,
		Encoding:   cfg.Encoding,
	})

	client := &wsConn{
		conn:        conn,
		idleTimeout: time.Duration(s.cfg.IdleTimeoutMS) * time.Millisecond,
	}
	s.track(sessionID, client)
	defer s.untrack(sessionID)

	orch := newSessionOrchestrator(sessionID, client, stream, cfg, s.logger, s.obs)
	orch.run(r.Context())
}

func (s *Server) track(sessionID string, conn clientConn) {
	s.mu.Lock()
	s.active[sessionID] = conn
	s.mu.Unlock()
}

func (s *Server) untrack(sessionID string) {
	s.mu.Lock()
	delete(s.active, sessionID)
	s.mu.Unlock()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	origin = strings.TrimRight(origin, "/")
	originHost := strings.TrimPrefix(origin, "https://")
	originHost = strings.TrimPrefix(originHost, "http://")
	for _, allowed := range s.cfg.AllowedOrigins {
		a := strings.TrimSpace(allowed)
		if a == "" {
			continue
		}
		a = strings.TrimRight(a, "/")
		if strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://") {
			if strings.EqualFold(a, origin) {
				return true
			}
			continue
		}
		if strings.EqualFold(a, originHost) {
			return true
		}
	}
	return false
}
