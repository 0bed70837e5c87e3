// Package translate holds the pure event-mapping tables between the three
// relay vocabularies. Translation is synchronous and side-effect free: each
// function takes one decoded event and returns the zero or more outbound
// events it maps to, each addressed to a leg. The mapping is intentionally
// partial; events with no mapping return nothing and the caller decides
// whether to log them.
package translate

import "github.com/mcavoj/voxbridge/internal/protocol"

// Leg addresses one of the sockets a session owns.
type Leg string

const (
	LegClient Leg = "client"
	LegAgent  Leg = "agent"
	LegTTS    Leg = "tts"
)

// Outbound is one translated event bound for a specific leg.
type Outbound struct {
	To      Leg
	Payload any
}

func toClient(payload any) Outbound { return Outbound{To: LegClient, Payload: payload} }
func toAgent(payload any) Outbound  { return Outbound{To: LegAgent, Payload: payload} }
func toTTS(payload any) Outbound    { return Outbound{To: LegTTS, Payload: payload} }

// FromClient maps one client event. Audio chunks forward to the agent
// verbatim; session.update is acknowledged locally with the fixed descriptor;
// commit and response.create are no-ops because the agent's server-side VAD
// drives turn-taking.
func FromClient(ev any, desc protocol.SessionDescriptor) []Outbound {
	switch e := ev.(type) {
	case protocol.InputAudioAppend:
		return []Outbound{toAgent(protocol.NewUserAudioChunk(e.Audio))}
	case protocol.SessionUpdate:
		return []Outbound{toClient(protocol.NewSessionUpdated(desc))}
	case protocol.InputAudioCommit, protocol.ResponseCreate:
		return nil
	case protocol.UnrecognizedClient:
		return nil
	default:
		return nil
	}
}

// FromAgent maps one conversational-AI event. In hybrid mode agent text fans
// out to both the client (as a text delta) and the TTS leg (as a flushed
// utterance); agent-generated audio and chat messages only exist in agent-only
// mode, where no TTS leg is attached.
func FromAgent(ev any, hybrid bool) []Outbound {
	switch e := ev.(type) {
	case protocol.AgentResponse:
		if e.Text == "" {
			return nil
		}
		out := []Outbound{toClient(protocol.NewResponseTextDelta(e.Text))}
		if hybrid {
			out = append(out, toTTS(protocol.NewTTSSpeak(e.Text)))
		}
		return out
	case protocol.Interruption, protocol.ResponseCorrection:
		return []Outbound{toClient(protocol.NewConversationInterrupted())}
	case protocol.AgentAudio:
		if hybrid || e.AudioBase64 == "" {
			return nil
		}
		return []Outbound{toClient(protocol.NewAgentAudioDelta(e.AudioBase64))}
	case protocol.AgentMessage:
		if hybrid || e.Role != "assistant" || e.Content == "" {
			return nil
		}
		return []Outbound{toClient(protocol.NewResponseTextDelta(e.Content))}
	case protocol.UserTranscript, protocol.AgentPing:
		return nil
	case protocol.UnrecognizedAgent:
		return nil
	default:
		return nil
	}
}

// FromTTS maps one TTS stream event to the client leg.
func FromTTS(ev any) []Outbound {
	switch e := ev.(type) {
	case protocol.TTSAudio:
		return []Outbound{toClient(protocol.NewTTSAudioDelta(e.AudioBase64))}
	case protocol.TTSFinal:
		return []Outbound{toClient(protocol.NewResponseAudioDone())}
	default:
		return nil
	}
}
