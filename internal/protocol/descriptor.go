package protocol

// TurnDetection mirrors the server-side VAD block advertised to realtime clients.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

// SessionDescriptor is the realtime session configuration advertised on
// session.created. It is fixed for the lifetime of a session: session.update
// requests are acknowledged with this same descriptor, never applied, because
// the upstream services manage their own configuration.
type SessionDescriptor struct {
	ID                      string        `json:"id"`
	Object                  string        `json:"object"`
	Model                   string        `json:"model"`
	Modalities              []string      `json:"modalities"`
	Instructions            string        `json:"instructions"`
	Voice                   string        `json:"voice"`
	InputAudioFormat        string        `json:"input_audio_format"`
	OutputAudioFormat       string        `json:"output_audio_format"`
	InputAudioTranscription any           `json:"input_audio_transcription"`
	TurnDetection           TurnDetection `json:"turn_detection"`
	Tools                   []string      `json:"tools"`
	ToolChoice              string        `json:"tool_choice"`
	Temperature             float64       `json:"temperature"`
	MaxResponseOutputTokens string        `json:"max_response_output_tokens"`
}

// NewSessionDescriptor builds the descriptor for one relay session. The hybrid
// flag selects the model/voice labels for the AI+TTS pairing versus the
// agent-only pairing.
func NewSessionDescriptor(id string, hybrid bool) SessionDescriptor {
	model := "elevenlabs-conversational-ai"
	instructions := "ElevenLabs Conversational AI Agent"
	voice := "elevenlabs-agent-voice"
	if hybrid {
		model = "elevenlabs-hybrid"
		instructions = "ElevenLabs Hybrid Agent"
		voice = "elevenlabs-tts-voice"
	}
	return SessionDescriptor{
		ID:                      id,
		Object:                  "realtime.session",
		Model:                   model,
		Modalities:              []string{"text", "audio"},
		Instructions:            instructions,
		Voice:                   voice,
		InputAudioFormat:        "pcm16",
		OutputAudioFormat:       "pcm16",
		InputAudioTranscription: nil,
		TurnDetection: TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMS:   300,
			SilenceDurationMS: 200,
		},
		Tools:                   []string{},
		ToolChoice:              "auto",
		Temperature:             0.8,
		MaxResponseOutputTokens: "inf",
	}
}
