// Package protocol defines the three websocket vocabularies the relay speaks:
// the client-facing realtime events, the conversational-AI events, and the
// text-to-speech stream events. Each vocabulary is a closed set of tagged
// variants plus an explicit unrecognized case, so translation can match
// exhaustively and unknown upstream additions degrade to a logged no-op.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ClientEventType identifies realtime events received from the browser.
type ClientEventType string

const (
	TypeSessionUpdate    ClientEventType = "session.update"
	TypeInputAudioAppend ClientEventType = "input_audio_buffer.append"
	TypeInputAudioCommit ClientEventType = "input_audio_buffer.commit"
	TypeResponseCreate   ClientEventType = "response.create"
)

// SessionUpdate asks for a configuration change. It is acknowledged with the
// original descriptor and never forwarded upstream.
type SessionUpdate struct{}

// InputAudioAppend carries one base64 audio chunk from the client microphone.
type InputAudioAppend struct {
	Audio string `json:"audio"`
}

// InputAudioCommit marks the end of a client audio turn. The upstream agent
// drives turn-taking with its own VAD, so this is a no-op.
type InputAudioCommit struct{}

// ResponseCreate requests response generation. Also a no-op for the same
// reason as InputAudioCommit.
type ResponseCreate struct{}

// UnrecognizedClient is any client event type the relay does not handle.
type UnrecognizedClient struct {
	Type string
}

type clientEnvelope struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// ParseClientEvent decodes one client frame into its vocabulary variant.
// Malformed JSON is an error; an unknown type is not.
func ParseClientEvent(raw []byte) (any, error) {
	var env clientEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid client frame: %w", err)
	}
	switch ClientEventType(env.Type) {
	case TypeSessionUpdate:
		return SessionUpdate{}, nil
	case TypeInputAudioAppend:
		return InputAudioAppend{Audio: env.Audio}, nil
	case TypeInputAudioCommit:
		return InputAudioCommit{}, nil
	case TypeResponseCreate:
		return ResponseCreate{}, nil
	default:
		return UnrecognizedClient{Type: env.Type}, nil
	}
}

// Item and response identifiers baked into outbound realtime events. The
// relay does not track items, so these are fixed labels the browser client
// can key deltas on.
const (
	responseID    = "elevenlabs_response"
	ttsResponseID = "elevenlabs_tts_response"
	textItemID    = "elevenlabs_text"
	audioItemID   = "elevenlabs_audio"
	ttsAudioItem  = "elevenlabs_tts_audio"
)

// SessionCreated is the handshake acknowledgement sent once after connect.
type SessionCreated struct {
	Type    string            `json:"type"`
	Session SessionDescriptor `json:"session"`
}

func NewSessionCreated(desc SessionDescriptor) SessionCreated {
	return SessionCreated{Type: "session.created", Session: desc}
}

// SessionUpdated acknowledges a session.update with the unchanged descriptor.
type SessionUpdated struct {
	Type    string            `json:"type"`
	Session SessionDescriptor `json:"session"`
}

func NewSessionUpdated(desc SessionDescriptor) SessionUpdated {
	return SessionUpdated{Type: "session.updated", Session: desc}
}

// ResponseTextDelta streams one chunk of assistant text to the client.
type ResponseTextDelta struct {
	Type         string `json:"type"`
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

func NewResponseTextDelta(text string) ResponseTextDelta {
	return ResponseTextDelta{
		Type:       "response.text.delta",
		ResponseID: responseID,
		ItemID:     textItemID,
		Delta:      text,
	}
}

// ResponseAudioDelta streams one base64 audio chunk to the client.
type ResponseAudioDelta struct {
	Type         string `json:"type"`
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

// NewAgentAudioDelta wraps audio produced directly by the conversational agent.
func NewAgentAudioDelta(audioBase64 string) ResponseAudioDelta {
	return ResponseAudioDelta{
		Type:       "response.audio.delta",
		ResponseID: responseID,
		ItemID:     audioItemID,
		Delta:      audioBase64,
	}
}

// NewTTSAudioDelta wraps audio produced by the separate TTS stream.
func NewTTSAudioDelta(audioBase64 string) ResponseAudioDelta {
	return ResponseAudioDelta{
		Type:       "response.audio.delta",
		ResponseID: ttsResponseID,
		ItemID:     ttsAudioItem,
		Delta:      audioBase64,
	}
}

// ResponseAudioDone signals that the TTS stream finished a generation.
type ResponseAudioDone struct {
	Type string `json:"type"`
}

func NewResponseAudioDone() ResponseAudioDone {
	return ResponseAudioDone{Type: "response.audio.done"}
}

// ConversationInterrupted tells the client the agent cut the current turn.
type ConversationInterrupted struct {
	Type string `json:"type"`
}

func NewConversationInterrupted() ConversationInterrupted {
	return ConversationInterrupted{Type: "conversation.interrupted"}
}
