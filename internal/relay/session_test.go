package relay

import (
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcavoj/voxbridge/internal/config"
)

func TestKeepalivePingsClient(t *testing.T) {
	cfg := config.Config{
		RelayMode:         config.ModeAgent,
		ElevenLabsAgentID: "agent-1",
		KeepaliveInterval: 50 * time.Millisecond,
		KeepaliveTimeout:  time.Second,
		AllowAnyOrigin:    true,
	}
	up := &fakeUpstream{agent: newFakeLeg(t), tts: newFakeLeg(t)}
	srv := New(cfg, up, testMetrics(), nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})

	dialer := websocket.Dialer{Subprotocols: []string{"realtime"}}
	client, _, err := dialer.Dial("ws"+ts.URL[len("http"):]+"/", nil)
	if err != nil {
		t.Fatalf("client dial error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	readEvent(t, client)

	var pings atomic.Int32
	client.SetPingHandler(func(appData string) error {
		pings.Add(1)
		return client.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	// Ping handlers only fire while reading.
	go func() {
		_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	waitFor(t, func() bool { return pings.Load() >= 2 }, "keepalive pings")
}

func TestSessionReachesClosedState(t *testing.T) {
	tr := newTestRelay(t, config.ModeAgent)
	client := tr.dial(t, "/")
	readEvent(t, client)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = client.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = client.Close()

	waitFor(t, func() bool { return tr.srv.ActiveSessions() == 0 }, "session teardown")
}
