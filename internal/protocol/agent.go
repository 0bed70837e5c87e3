package protocol

import (
	"encoding/json"
	"fmt"
)

// AgentEventType identifies events received from the conversational-AI socket.
type AgentEventType string

const (
	TypeAgentResponse           AgentEventType = "agent_response"
	TypeUserTranscript          AgentEventType = "user_transcript"
	TypeInterruption            AgentEventType = "interruption"
	TypeAgentResponseCorrection AgentEventType = "agent_response_correction"
	TypeAgentPing               AgentEventType = "ping"
	TypeAgentAudio              AgentEventType = "audio"
	TypeAgentMessage            AgentEventType = "message"
)

// AgentResponse is one complete assistant utterance.
type AgentResponse struct {
	Text string
}

// UserTranscript reports what the agent heard. Logged only, never forwarded.
type UserTranscript struct {
	Text string
}

// Interruption signals that the agent aborted its current turn.
type Interruption struct{}

// ResponseCorrection signals that the agent revised an utterance mid-turn.
// The relay surfaces it to the client the same way as an interruption.
type ResponseCorrection struct{}

// AgentPing is the agent's application-level keepalive.
type AgentPing struct{}

// AgentAudio carries audio generated by the agent itself (agent-only pairing,
// where no separate TTS leg exists).
type AgentAudio struct {
	AudioBase64 string
}

// AgentMessage is a role-tagged chat message (agent-only pairing).
type AgentMessage struct {
	Role    string
	Content string
}

// UnrecognizedAgent is any agent event type the relay does not handle.
type UnrecognizedAgent struct {
	Type string
}

// Vendor payloads nest the interesting fields one level down and omit them
// freely, so every nested block is optional with an empty-string default.
type agentEnvelope struct {
	Type          string `json:"type"`
	ResponseEvent *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event"`
	TranscriptEvent *struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event"`
	AudioEvent *struct {
		AudioBase64 string `json:"audio_base_64"`
	} `json:"audio_event"`
	Message *struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

// ParseAgentEvent decodes one conversational-AI frame into its variant.
func ParseAgentEvent(raw []byte) (any, error) {
	var env agentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid agent frame: %w", err)
	}
	switch AgentEventType(env.Type) {
	case TypeAgentResponse:
		text := ""
		if env.ResponseEvent != nil {
			text = env.ResponseEvent.AgentResponse
		}
		return AgentResponse{Text: text}, nil
	case TypeUserTranscript:
		text := ""
		if env.TranscriptEvent != nil {
			text = env.TranscriptEvent.UserTranscript
		}
		return UserTranscript{Text: text}, nil
	case TypeInterruption:
		return Interruption{}, nil
	case TypeAgentResponseCorrection:
		return ResponseCorrection{}, nil
	case TypeAgentPing:
		return AgentPing{}, nil
	case TypeAgentAudio:
		audio := ""
		if env.AudioEvent != nil {
			audio = env.AudioEvent.AudioBase64
		}
		return AgentAudio{AudioBase64: audio}, nil
	case TypeAgentMessage:
		msg := AgentMessage{}
		if env.Message != nil {
			msg.Role = env.Message.Role
			msg.Content = env.Message.Content
		}
		return msg, nil
	default:
		return UnrecognizedAgent{Type: env.Type}, nil
	}
}

// UserAudioChunk is the only message the relay sends to the agent socket.
type UserAudioChunk struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

func NewUserAudioChunk(audioBase64 string) UserAudioChunk {
	return UserAudioChunk{UserAudioChunk: audioBase64}
}
