package protocol

import (
	"encoding/json"
	"fmt"
)

// TTSAudio carries one base64 audio chunk from the TTS stream.
type TTSAudio struct {
	AudioBase64 string
}

// TTSFinal signals that the TTS stream flushed the current generation.
type TTSFinal struct{}

// TTSNoop is any TTS frame carrying neither audio nor a final flag, such as
// alignment metadata. Dropped without logging.
type TTSNoop struct{}

type ttsEnvelope struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
}

// ParseTTSEvent decodes one TTS frame. Audio wins over the final flag when a
// frame carries both, matching how the stream is consumed one field at a time.
func ParseTTSEvent(raw []byte) (any, error) {
	var env ttsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid tts frame: %w", err)
	}
	if env.Audio != "" {
		return TTSAudio{AudioBase64: env.Audio}, nil
	}
	if env.IsFinal {
		return TTSFinal{}, nil
	}
	return TTSNoop{}, nil
}

// TTSVoiceSettings are the voice-quality parameters sent once at stream init.
type TTSVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// TTSGenerationConfig controls how the stream chunks generated audio.
type TTSGenerationConfig struct {
	ChunkLengthSchedule []int `json:"chunk_length_schedule"`
}

// TTSInit primes the stream-input socket. It must be the first message on the
// connection: the service buffers generation keyed to this configuration.
type TTSInit struct {
	Text             string              `json:"text"`
	VoiceSettings    TTSVoiceSettings    `json:"voice_settings"`
	GenerationConfig TTSGenerationConfig `json:"generation_config"`
	XIAPIKey         string              `json:"xi_api_key"`
}

// NewTTSInit builds the init message with the relay's fixed voice-quality
// parameters and chunking schedule.
func NewTTSInit(apiKey string) TTSInit {
	return TTSInit{
		Text: " ",
		VoiceSettings: TTSVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.8,
			UseSpeakerBoost: false,
		},
		GenerationConfig: TTSGenerationConfig{
			ChunkLengthSchedule: []int{120, 160, 250, 290},
		},
		XIAPIKey: apiKey,
	}
}

// TTSSpeak forwards one utterance for synthesis. Flush makes the stream emit
// any buffered audio immediately instead of waiting for the chunk schedule.
type TTSSpeak struct {
	Text  string `json:"text"`
	Flush bool   `json:"flush"`
}

func NewTTSSpeak(text string) TTSSpeak {
	return TTSSpeak{Text: text, Flush: true}
}
