// Package upstream establishes the outbound websocket connections to the
// ElevenLabs conversational-AI and text-to-speech endpoints, performing the
// connection-time handshakes each one requires. Ownership of the returned
// sockets passes entirely to the caller.
package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/mcavoj/voxbridge/internal/protocol"
)

// Config carries the credentials and endpoint base shared by both legs.
type Config struct {
	APIKey    string
	WSBaseURL string
}

// Connector dials the ElevenLabs realtime endpoints.
type Connector struct {
	cfg Config
}

func NewConnector(cfg Config) *Connector {
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://api.elevenlabs.io"
	}
	return &Connector{cfg: cfg}
}

// ConnectAgent opens the conversational-AI socket for the given agent,
// authenticating with the xi-api-key request header.
func (c *Connector) ConnectAgent(ctx context.Context, agentID string) (*websocket.Conn, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, fmt.Errorf("agent_id is required")
	}

	u, err := url.Parse(strings.TrimRight(c.cfg.WSBaseURL, "/") + "/v1/convai/conversation")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("agent_id", agentID)
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("xi-api-key", c.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("dial agent websocket: %w", err)
	}
	return conn, nil
}

// ConnectTTS opens the stream-input socket for the given voice and sends the
// one-time init message before returning. The init message must precede any
// forwarded text because the service buffers generation keyed to it.
func (c *Connector) ConnectTTS(ctx context.Context, voiceID, modelID string) (*websocket.Conn, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("voice_id is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "eleven_flash_v2_5"
	}

	u, err := url.Parse(strings.TrimRight(c.cfg.WSBaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(voiceID) + "/stream-input")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("model_id", modelID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial tts websocket: %w", err)
	}

	if err := conn.WriteJSON(protocol.NewTTSInit(c.cfg.APIKey)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init tts stream: %w", err)
	}
	return conn, nil
}
