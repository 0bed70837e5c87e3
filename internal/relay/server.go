package relay

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcavoj/voxbridge/internal/config"
	"github.com/mcavoj/voxbridge/internal/journal"
	"github.com/mcavoj/voxbridge/internal/observability"
)

const upstreamDialTimeout = 10 * time.Second

// Upstream establishes the outbound connections a session needs. Ownership of
// the returned sockets passes to the session.
type Upstream interface {
	ConnectAgent(ctx context.Context, agentID string) (*websocket.Conn, error)
	ConnectTTS(ctx context.Context, voiceID, modelID string) (*websocket.Conn, error)
}

// Server accepts downstream websocket connections on the root path and hands
// them to session construction.
type Server struct {
	cfg      config.Config
	upstream Upstream
	registry *Registry
	metrics  *observability.Metrics
	store    journal.Store
	upgrader websocket.Upgrader
}

func New(cfg config.Config, upstream Upstream, metrics *observability.Metrics, store journal.Store) *Server {
	return &Server{
		cfg:      cfg,
		upstream: upstream,
		registry: NewRegistry(),
		metrics:  metrics,
		store:    store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			Subprotocols:    []string{"realtime"},
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. Non-browser clients
				// often omit Origin; allow them.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleRelay)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.NotFound(s.handleInvalidPath)
	return r
}

// ActiveSessions reports the number of live sessions.
func (s *Server) ActiveSessions() int {
	return s.registry.Len()
}

// Shutdown force-closes all live sessions. Each one closes its socket group
// with a normal-closure frame and removes itself from the registry.
func (s *Server) Shutdown() {
	s.registry.StopAll()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// handleInvalidPath rejects websocket upgrades on any path other than the
// root with a policy-violation close, before any upstream dial is attempted.
func (s *Server) handleInvalidPath(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.NotFound(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("rejecting websocket connection on invalid path %q", r.URL.Path)
	closeConn(conn, websocket.ClosePolicyViolation, "Invalid path")
}

// handleRelay is the accept path: upgrade the downstream socket, establish
// the upstream leg(s), register the session, and run its pump to completion.
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	clientConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("client connected from %s", r.RemoteAddr)

	dialCtx, cancel := context.WithTimeout(context.Background(), upstreamDialTimeout)
	agentConn, err := s.upstream.ConnectAgent(dialCtx, s.cfg.ElevenLabsAgentID)
	cancel()
	if err != nil {
		log.Printf("agent connect failed: %v", err)
		s.metrics.UpstreamConnectErrors.WithLabelValues("agent").Inc()
		closeConn(clientConn, websocket.CloseInternalServerErr, "upstream connect failed")
		return
	}

	var ttsConn *websocket.Conn
	if s.cfg.Hybrid() {
		dialCtx, cancel := context.WithTimeout(context.Background(), upstreamDialTimeout)
		ttsConn, err = s.upstream.ConnectTTS(dialCtx, s.cfg.ElevenLabsVoiceID, s.cfg.ElevenLabsTTSModel)
		cancel()
		if err != nil {
			log.Printf("tts connect failed: %v", err)
			s.metrics.UpstreamConnectErrors.WithLabelValues("tts").Inc()
			// Close the agent leg too, so no upstream connection is orphaned.
			closeConn(agentConn, websocket.CloseNormalClosure, "")
			closeConn(clientConn, websocket.CloseInternalServerErr, "upstream connect failed")
			return
		}
	}

	sess := NewSession(SessionParams{
		ID:                uuid.NewString(),
		Hybrid:            s.cfg.Hybrid(),
		Client:            clientConn,
		Agent:             agentConn,
		TTS:               ttsConn,
		KeepaliveInterval: s.cfg.KeepaliveInterval,
		KeepaliveTimeout:  s.cfg.KeepaliveTimeout,
		Metrics:           s.metrics,
		Journal:           s.store,
		OnClose: func(closed *Session) {
			if s.registry.Remove(closed.ID) {
				s.metrics.ActiveSessions.Set(float64(s.registry.Len()))
			}
		},
	})

	s.registry.Add(sess)
	s.metrics.ActiveSessions.Set(float64(s.registry.Len()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()
	appendStarted(s.store, sess)

	sess.Run(context.Background())
}

func appendStarted(store journal.Store, sess *Session) {
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	mode := "agent"
	if sess.hybrid {
		mode = "hybrid"
	}
	if err := store.Append(ctx, journal.Record{SessionID: sess.ID, Mode: mode, Event: "started"}); err != nil {
		log.Printf("session %s: journal append failed: %v", sess.ID, err)
	}
}

func closeConn(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	_ = conn.Close()
}
