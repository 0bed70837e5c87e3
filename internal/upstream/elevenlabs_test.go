package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordedDial struct {
	path    string
	query   map[string]string
	header  http.Header
	first   []byte
	hasInit bool
}

// fakeEndpoint accepts one websocket upgrade and records the request plus,
// optionally, the first text frame received on the connection.
func fakeEndpoint(t *testing.T, readFirst bool) (*httptest.Server, chan recordedDial) {
	t.Helper()
	dials := make(chan recordedDial, 4)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedDial{
			path:   r.URL.Path,
			query:  map[string]string{},
			header: r.Header.Clone(),
		}
		for k, v := range r.URL.Query() {
			rec.query[k] = v[0]
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade error = %v", err)
			return
		}
		if readFirst {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, data, err := conn.ReadMessage()
			if err == nil {
				rec.first = data
				rec.hasInit = true
			}
		}
		dials <- rec
		// Hold the connection open until the client side closes.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		_ = conn.Close()
	}))
	return srv, dials
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectAgentSendsAuthHeaderAndAgentID(t *testing.T) {
	srv, dials := fakeEndpoint(t, false)
	defer srv.Close()

	c := NewConnector(Config{APIKey: "key-1", WSBaseURL: wsURL(srv)})
	conn, err := c.ConnectAgent(context.Background(), "agent-7")
	if err != nil {
		t.Fatalf("ConnectAgent() error = %v", err)
	}
	defer conn.Close()

	rec := <-dials
	if rec.path != "/v1/convai/conversation" {
		t.Fatalf("path = %q, want %q", rec.path, "/v1/convai/conversation")
	}
	if rec.query["agent_id"] != "agent-7" {
		t.Fatalf("agent_id = %q, want %q", rec.query["agent_id"], "agent-7")
	}
	if got := rec.header.Get("xi-api-key"); got != "key-1" {
		t.Fatalf("xi-api-key = %q, want %q", got, "key-1")
	}
}

func TestConnectAgentRequiresAgentID(t *testing.T) {
	c := NewConnector(Config{APIKey: "key-1"})
	if _, err := c.ConnectAgent(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank agent id")
	}
}

func TestConnectTTSSendsInitBeforeReturning(t *testing.T) {
	srv, dials := fakeEndpoint(t, true)
	defer srv.Close()

	c := NewConnector(Config{APIKey: "key-2", WSBaseURL: wsURL(srv)})
	conn, err := c.ConnectTTS(context.Background(), "voice-9", "")
	if err != nil {
		t.Fatalf("ConnectTTS() error = %v", err)
	}
	defer conn.Close()

	rec := <-dials
	if rec.path != "/v1/text-to-speech/voice-9/stream-input" {
		t.Fatalf("path = %q, want stream-input for voice-9", rec.path)
	}
	if rec.query["model_id"] != "eleven_flash_v2_5" {
		t.Fatalf("model_id = %q, want default eleven_flash_v2_5", rec.query["model_id"])
	}
	if !rec.hasInit {
		t.Fatalf("no init message observed before ConnectTTS returned")
	}

	var init map[string]any
	if err := json.Unmarshal(rec.first, &init); err != nil {
		t.Fatalf("decode init message: %v", err)
	}
	if init["text"] != " " {
		t.Fatalf("init text = %v, want single space", init["text"])
	}
	if init["xi_api_key"] != "key-2" {
		t.Fatalf("init xi_api_key = %v, want key-2", init["xi_api_key"])
	}
	settings, _ := init["voice_settings"].(map[string]any)
	if settings == nil || settings["stability"] != 0.5 || settings["similarity_boost"] != 0.8 {
		t.Fatalf("unexpected voice_settings: %v", init["voice_settings"])
	}
}

func TestConnectTTSDialFailure(t *testing.T) {
	c := NewConnector(Config{APIKey: "key", WSBaseURL: "ws://127.0.0.1:1"})
	if _, err := c.ConnectTTS(context.Background(), "voice", "model"); err == nil {
		t.Fatalf("expected dial error")
	}
}
