// Package config provides the configuration schema and loader for the
// Voxgate voice streaming gateway.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the Voxgate server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration wraps time.Duration so YAML values like "5s" or "250ms" decode
// directly.
type Duration time.Duration

// UnmarshalYAML decodes a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for Voxgate.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Providers ProvidersConfig `yaml:"providers"`
	Session   SessionConfig   `yaml:"session"`
}

// ServerConfig holds network and logging settings for the Voxgate server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// AuthConfig configures WebSocket access token verification.
type AuthConfig struct {
	// JWTSecret is the HMAC secret used to verify client tokens.
	JWTSecret string `yaml:"jwt_secret"`
}

// ProvidersConfig declares which speech backend to use for each pipeline
// stage.
type ProvidersConfig struct {
	STT STTConfig `yaml:"stt"`
	TTS TTSConfig `yaml:"tts"`
}

// STTConfig selects and configures the speech-to-text backend.
type STTConfig struct {
	// Name selects the recognizer implementation (e.g., "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the recognizer's API.
	APIKey string `yaml:"api_key"`

	// Model selects a specific recognition model (e.g., "nova-3").
	Model string `yaml:"model"`

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	Language string `yaml:"language"`

	// SampleRate is the inbound audio sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// Encoding names the inbound audio encoding (e.g., "pcm").
	Encoding string `yaml:"encoding"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	// Name selects the synthesizer implementation (e.g., "polly",
	// "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for API-key backends (elevenlabs).
	APIKey string `yaml:"api_key"`

	// Region is the AWS region for the polly backend. When empty the AWS
	// default credential chain decides.
	Region string `yaml:"region"`

	// VoiceID is the backend-specific voice identifier.
	VoiceID string `yaml:"voice_id"`

	// Engine selects the synthesis engine for backends that offer several
	// (e.g., polly "neural" or "standard").
	Engine string `yaml:"engine"`

	// OutputFormat names the synthesized audio format (e.g., "mp3",
	// "pcm_16000").
	OutputFormat string `yaml:"output_format"`

	// Preset names a built-in speaking style ("default", "urgent", "calm",
	// "formal").
	Preset string `yaml:"preset"`
}

// SessionConfig tunes per-connection session behaviour.
type SessionConfig struct {
	// QueueCapacity bounds the audio ingestion queue per transcription cycle.
	QueueCapacity int `yaml:"queue_capacity"`

	// DrainTimeout bounds how long the transcription pipeline waits for the
	// next chunk before re-checking for cancellation.
	DrainTimeout Duration `yaml:"drain_timeout"`
}
