// Package relay implements the per-client relay session: the downstream
// websocket endpoint, the session lifecycle, and the concurrent message pump
// that routes events between the client and the upstream voice services.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/mcavoj/voxbridge/internal/journal"
	"github.com/mcavoj/voxbridge/internal/observability"
	"github.com/mcavoj/voxbridge/internal/protocol"
	"github.com/mcavoj/voxbridge/internal/translate"
)

// State is the session lifecycle phase. Transitions are monotonic: a session
// only ever moves forward.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	writeTimeout   = 10 * time.Second
	journalTimeout = 2 * time.Second
)

// socket wraps one owned websocket connection. Writes are serialized because
// several pump loops may address the same leg; close is idempotent.
type socket struct {
	conn *websocket.Conn
	mu   sync.Mutex
	once sync.Once
}

func newSocket(conn *websocket.Conn) *socket {
	return &socket{conn: conn}
}

func (s *socket) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *socket) close(code int, reason string) {
	s.once.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		_ = s.conn.Close()
	})
}

// Session ties one downstream socket to its upstream socket(s) and owns them
// exclusively for its whole lifetime.
type Session struct {
	ID     string
	hybrid bool
	desc   protocol.SessionDescriptor

	client *socket
	agent  *socket
	tts    *socket // nil in agent-only mode

	keepaliveInterval time.Duration
	keepaliveTimeout  time.Duration

	state   atomic.Int32
	metrics *observability.Metrics
	store   journal.Store
	onClose func(*Session)
}

// SessionParams collects everything a session needs at construction time.
// All sockets must already be connected and handshaken.
type SessionParams struct {
	ID                string
	Hybrid            bool
	Client            *websocket.Conn
	Agent             *websocket.Conn
	TTS               *websocket.Conn
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
	Metrics           *observability.Metrics
	Journal           journal.Store
	OnClose           func(*Session)
}

func NewSession(p SessionParams) *Session {
	s := &Session{
		ID:                p.ID,
		hybrid:            p.Hybrid,
		desc:              protocol.NewSessionDescriptor(p.ID, p.Hybrid),
		client:            newSocket(p.Client),
		agent:             newSocket(p.Agent),
		keepaliveInterval: p.KeepaliveInterval,
		keepaliveTimeout:  p.KeepaliveTimeout,
		metrics:           p.Metrics,
		store:             p.Journal,
		onClose:           p.OnClose,
	}
	if p.TTS != nil {
		s.tts = newSocket(p.TTS)
	}
	return s
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

// advance moves the lifecycle forward. It refuses to move backward and
// reports whether this call performed the transition.
func (s *Session) advance(to State) bool {
	for {
		cur := s.state.Load()
		if State(cur) >= to {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(to)) {
			return true
		}
	}
}

// Run sends the handshake acknowledgement, then drives the message pump until
// the first terminal failure on any leg, then tears the whole group down.
// It blocks for the lifetime of the session.
func (s *Session) Run(ctx context.Context) {
	s.advance(StateActive)
	s.metrics.SessionEvents.WithLabelValues("active").Inc()

	if err := s.client.writeJSON(protocol.NewSessionCreated(s.desc)); err != nil {
		s.teardown(fmt.Errorf("send session.created: %w", err))
		return
	}

	// Handlers must be installed before any read starts. A missed pong lets
	// the read deadline expire, which surfaces as a read error in clientLoop.
	readDeadline := func() time.Time {
		return time.Now().Add(s.keepaliveInterval + s.keepaliveTimeout)
	}
	_ = s.client.conn.SetReadDeadline(readDeadline())
	s.client.conn.SetPongHandler(func(string) error {
		return s.client.conn.SetReadDeadline(readDeadline())
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.clientLoop() })
	g.Go(func() error { return s.agentLoop() })
	if s.tts != nil {
		g.Go(func() error { return s.ttsLoop() })
	}
	g.Go(func() error { return s.keepalive(gctx) })

	// The loops block in socket reads; closing the sockets is what unblocks
	// them once any loop fails or the parent context is cancelled. gctx is
	// cancelled when Wait returns, so this goroutine always terminates.
	go func() {
		<-gctx.Done()
		s.closeAll(websocket.CloseNormalClosure, "")
	}()

	s.teardown(g.Wait())
}

// Stop force-closes the session's sockets, which makes Run unwind through the
// normal teardown path. Used for server shutdown.
func (s *Session) Stop() {
	s.closeAll(websocket.CloseNormalClosure, "server shutdown")
}

func (s *Session) clientLoop() error {
	for {
		_, data, err := s.client.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("client socket: %w", err)
		}
		ev, err := protocol.ParseClientEvent(data)
		if err != nil {
			log.Printf("session %s: dropping malformed client frame: %v", s.ID, err)
			s.metrics.DecodeErrors.WithLabelValues("client").Inc()
			continue
		}
		if u, ok := ev.(protocol.UnrecognizedClient); ok {
			log.Printf("session %s: ignoring client event %q", s.ID, u.Type)
		}
		s.metrics.RelayedEvents.WithLabelValues("client", clientEventName(ev)).Inc()
		if err := s.dispatch(translate.FromClient(ev, s.desc)); err != nil {
			return err
		}
	}
}

func (s *Session) agentLoop() error {
	for {
		_, data, err := s.agent.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("agent socket: %w", err)
		}
		ev, err := protocol.ParseAgentEvent(data)
		if err != nil {
			log.Printf("session %s: dropping malformed agent frame: %v", s.ID, err)
			s.metrics.DecodeErrors.WithLabelValues("agent").Inc()
			continue
		}
		switch e := ev.(type) {
		case protocol.UserTranscript:
			log.Printf("session %s: user transcript: %s", s.ID, e.Text)
		case protocol.UnrecognizedAgent:
			log.Printf("session %s: ignoring agent event %q", s.ID, e.Type)
		}
		s.metrics.RelayedEvents.WithLabelValues("agent", agentEventName(ev)).Inc()
		if err := s.dispatch(translate.FromAgent(ev, s.hybrid)); err != nil {
			return err
		}
	}
}

func (s *Session) ttsLoop() error {
	for {
		_, data, err := s.tts.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("tts socket: %w", err)
		}
		ev, err := protocol.ParseTTSEvent(data)
		if err != nil {
			log.Printf("session %s: dropping malformed tts frame: %v", s.ID, err)
			s.metrics.DecodeErrors.WithLabelValues("tts").Inc()
			continue
		}
		s.metrics.RelayedEvents.WithLabelValues("tts", ttsEventName(ev)).Inc()
		if err := s.dispatch(translate.FromTTS(ev)); err != nil {
			return err
		}
	}
}

// dispatch writes each translated event to its leg, preserving order. A write
// failure is a connection-level error and terminates the pump.
func (s *Session) dispatch(outs []translate.Outbound) error {
	for _, out := range outs {
		var sock *socket
		switch out.To {
		case translate.LegClient:
			sock = s.client
		case translate.LegAgent:
			sock = s.agent
		case translate.LegTTS:
			sock = s.tts
		}
		if sock == nil {
			continue
		}
		if err := sock.writeJSON(out.Payload); err != nil {
			return fmt.Errorf("write %s socket: %w", out.To, err)
		}
	}
	return nil
}

// keepalive pings the downstream socket at the configured interval.
func (s *Session) keepalive(ctx context.Context) error {
	ticker := time.NewTicker(s.keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.keepaliveTimeout)); err != nil {
				return fmt.Errorf("client keepalive: %w", err)
			}
		}
	}
}

// teardown runs exactly once per session, at the end of Run. Remaining open
// sockets get a normal-closure frame; the socket that failed already carries
// its original close code.
func (s *Session) teardown(cause error) {
	s.advance(StateClosing)
	s.closeAll(websocket.CloseNormalClosure, "")
	s.advance(StateClosed)

	detail := ""
	if cause != nil {
		detail = cause.Error()
		log.Printf("session %s: closed: %v", s.ID, cause)
	} else {
		log.Printf("session %s: closed", s.ID)
	}
	s.metrics.SessionEvents.WithLabelValues("closed").Inc()

	if s.onClose != nil {
		s.onClose(s)
	}
	s.appendJournal("ended", detail)
}

func (s *Session) closeAll(code int, reason string) {
	s.client.close(code, reason)
	s.agent.close(code, reason)
	if s.tts != nil {
		s.tts.close(code, reason)
	}
}

func (s *Session) appendJournal(event, detail string) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	mode := "agent"
	if s.hybrid {
		mode = "hybrid"
	}
	if err := s.store.Append(ctx, journal.Record{SessionID: s.ID, Mode: mode, Event: event, Detail: detail}); err != nil {
		log.Printf("session %s: journal append failed: %v", s.ID, err)
	}
}

func clientEventName(ev any) string {
	switch ev.(type) {
	case protocol.SessionUpdate:
		return "session.update"
	case protocol.InputAudioAppend:
		return "input_audio_buffer.append"
	case protocol.InputAudioCommit:
		return "input_audio_buffer.commit"
	case protocol.ResponseCreate:
		return "response.create"
	default:
		return "unrecognized"
	}
}

func agentEventName(ev any) string {
	switch ev.(type) {
	case protocol.AgentResponse:
		return "agent_response"
	case protocol.UserTranscript:
		return "user_transcript"
	case protocol.Interruption:
		return "interruption"
	case protocol.ResponseCorrection:
		return "agent_response_correction"
	case protocol.AgentPing:
		return "ping"
	case protocol.AgentAudio:
		return "audio"
	case protocol.AgentMessage:
		return "message"
	default:
		return "unrecognized"
	}
}

func ttsEventName(ev any) string {
	switch ev.(type) {
	case protocol.TTSAudio:
		return "audio"
	case protocol.TTSFinal:
		return "is_final"
	default:
		return "noop"
	}
}
