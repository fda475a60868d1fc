// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// ElevenLabs streaming WebSocket API. It implements the tts.Provider interface.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/voxhaven/voxgate/pkg/provider/tts"
)

const (
	wsEndpointFmt    = "wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=%s"
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "pcm_16000"
	defaultVoiceID   = "onwK4e9ZLuTAKqWW03F9"
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithVoiceID sets the default voice used when a request leaves VoiceID empty.
func WithVoiceID(voiceID string) Option {
	return func(p *Provider) {
		p.voiceID = voiceID
	}
}

// WithOutputFormat sets the audio output format (e.g., "pcm_16000", "mp3_44100_128").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// Provider implements tts.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey       string
	model        string
	voiceID      string
	outputFormat string
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		voiceID:      defaultVoiceID,
		outputFormat: defaultOutputFmt,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- WebSocket message types ----

// textMessage is the JSON payload sent to ElevenLabs for a text fragment.
// An empty Text flushes the stream and ends input.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// audioResponse is the JSON message received from ElevenLabs over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded audio
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// Synthesize opens a WebSocket to ElevenLabs, sends the request text followed
// by a flush, and streams back the decoded audio chunks in arrival order.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Stream, error) {
	if req.Text == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = p.voiceID
	}
	format := req.OutputFormat
	if format == "" {
		format = p.outputFormat
	}

	conn, _, err := websocket.Dial(ctx, buildURLForVoice(voiceID, p.model, format), nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}

	// BOI handshake: authenticate and configure the stream. ElevenLabs
	// requires a non-empty first text value.
	boi := textMessage{
		Text:          " ",
		VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
		XiAPIKey:      p.apiKey,
	}
	boiBytes, _ := json.Marshal(boi)
	if err := conn.Write(ctx, websocket.MessageText, boiBytes); err != nil {
		conn.Close(websocket.StatusInternalError, "failed to send BOI")
		return nil, fmt.Errorf("elevenlabs: send BOI: %w", err)
	}

	s := &stream{chunks: make(chan []byte, 64)}
	go s.run(ctx, conn, req.Text)
	return s, nil
}

// stream is a live ElevenLabs synthesis. It implements tts.Stream.
type stream struct {
	chunks chan []byte

	errMu sync.Mutex
	err   error
}

func (s *stream) Chunks() <-chan []byte { return s.chunks }

func (s *stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// run sends the text plus a flush message and forwards decoded audio until
// ElevenLabs signals the final chunk.
func (s *stream) run(ctx context.Context, conn *websocket.Conn, text string) {
	defer close(s.chunks)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	payload, _ := json.Marshal(textMessage{Text: text + " "})
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		s.setErr(fmt.Errorf("elevenlabs: send text: %w", err))
		return
	}
	// Empty text flushes and ends the input stream.
	flush, _ := json.Marshal(textMessage{Text: ""})
	if err := conn.Write(ctx, websocket.MessageText, flush); err != nil {
		s.setErr(fmt.Errorf("elevenlabs: send flush: %w", err))
		return
	}

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			s.setErr(fmt.Errorf("elevenlabs: read: %w", err))
			return
		}
		resp, ok := parseAudioResponse(msg)
		if !ok {
			continue
		}
		if resp.Audio != "" {
			pcm, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err == nil {
				select {
				case s.chunks <- pcm:
				case <-ctx.Done():
					s.setErr(ctx.Err())
					return
				}
			}
		}
		if resp.IsFinal {
			return
		}
	}
}

// ---- helpers ----

// buildURLForVoice constructs the WebSocket URL for a voice, model, and format.
func buildURLForVoice(voiceID, model, format string) string {
	return fmt.Sprintf(wsEndpointFmt, voiceID, model, format)
}

// parseAudioResponse parses a raw ElevenLabs WebSocket message. Returns
// (response, true) on success, or (zero, false) for unparseable messages.
func parseAudioResponse(data []byte) (audioResponse, bool) {
	var resp audioResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return audioResponse{}, false
	}
	return resp, true
}
