package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseClientEventAudioAppend(t *testing.T) {
	ev, err := ParseClientEvent([]byte(`{"type":"input_audio_buffer.append","audio":"QUJD"}`))
	if err != nil {
		t.Fatalf("ParseClientEvent() error = %v", err)
	}
	app, ok := ev.(InputAudioAppend)
	if !ok {
		t.Fatalf("event type = %T, want InputAudioAppend", ev)
	}
	if app.Audio != "QUJD" {
		t.Fatalf("Audio = %q, want %q", app.Audio, "QUJD")
	}
}

func TestParseClientEventVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want any
	}{
		{"session_update", `{"type":"session.update","session":{"voice":"x"}}`, SessionUpdate{}},
		{"commit", `{"type":"input_audio_buffer.commit"}`, InputAudioCommit{}},
		{"response_create", `{"type":"response.create"}`, ResponseCreate{}},
		{"unknown", `{"type":"conversation.item.create"}`, UnrecognizedClient{Type: "conversation.item.create"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParseClientEvent([]byte(tc.raw))
			if err != nil {
				t.Fatalf("ParseClientEvent() error = %v", err)
			}
			if ev != tc.want {
				t.Fatalf("event = %#v, want %#v", ev, tc.want)
			}
		})
	}
}

func TestParseClientEventMalformed(t *testing.T) {
	if _, err := ParseClientEvent([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected decode error for malformed frame")
	}
}

func TestSessionCreatedWireShape(t *testing.T) {
	desc := NewSessionDescriptor("sess-1", true)
	raw, err := json.Marshal(NewSessionCreated(desc))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	body := string(raw)
	for _, want := range []string{
		`"type":"session.created"`,
		`"id":"sess-1"`,
		`"object":"realtime.session"`,
		`"model":"elevenlabs-hybrid"`,
		`"input_audio_format":"pcm16"`,
		`"input_audio_transcription":null`,
		`"type":"server_vad"`,
		`"prefix_padding_ms":300`,
		`"silence_duration_ms":200`,
		`"tools":[]`,
		`"max_response_output_tokens":"inf"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("session.created missing %s in %s", want, body)
		}
	}
}

func TestDescriptorAgentOnlyLabels(t *testing.T) {
	desc := NewSessionDescriptor("sess-2", false)
	if desc.Model != "elevenlabs-conversational-ai" {
		t.Fatalf("Model = %q, want %q", desc.Model, "elevenlabs-conversational-ai")
	}
	if desc.Voice != "elevenlabs-agent-voice" {
		t.Fatalf("Voice = %q, want %q", desc.Voice, "elevenlabs-agent-voice")
	}
}

func TestTextDeltaWireShape(t *testing.T) {
	raw, err := json.Marshal(NewResponseTextDelta("hello"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	body := string(raw)
	for _, want := range []string{
		`"type":"response.text.delta"`,
		`"response_id":"elevenlabs_response"`,
		`"item_id":"elevenlabs_text"`,
		`"output_index":0`,
		`"content_index":0`,
		`"delta":"hello"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("text delta missing %s in %s", want, body)
		}
	}
}
