// Package polly provides an AWS Polly-backed TTS provider. It implements the
// tts.Provider interface on top of aws-sdk-go-v2.
package polly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspolly "github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/voxhaven/voxgate/pkg/provider/tts"
)

const (
	defaultVoiceID      = "Brian"
	defaultEngine       = "neural"
	defaultOutputFormat = "mp3"
	defaultSampleRate   = "24000"
	defaultRate         = "medium"
	defaultEmphasis     = "moderate"

	// chunkSize is how much of the Polly audio stream is forwarded per
	// transport frame.
	chunkSize = 4096
)

// api is the subset of the Polly client used by this provider. Narrowed to an
// interface so tests can substitute a stub.
type api interface {
	SynthesizeSpeech(ctx context.Context, params *awspolly.SynthesizeSpeechInput, optFns ...func(*awspolly.Options)) (*awspolly.SynthesizeSpeechOutput, error)
}

// Option is a functional option for configuring the Polly Provider.
type Option func(*Provider)

// WithVoiceID sets the default Polly voice (e.g., "Brian", "Joanna").
func WithVoiceID(voiceID string) Option {
	return func(p *Provider) {
		p.voiceID = voiceID
	}
}

// WithEngine sets the default synthesis engine ("standard" or "neural").
func WithEngine(engine string) Option {
	return func(p *Provider) {
		p.engine = engine
	}
}

// WithOutputFormat sets the default output format ("mp3", "ogg_vorbis", "pcm").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithSampleRate sets the sample rate used for PCM output.
func WithSampleRate(rate string) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// WithProsody sets the speaking rate and emphasis level applied when plain
// text is wrapped in SSML. Empty values keep the defaults.
func WithProsody(rate, emphasis string) Option {
	return func(p *Provider) {
		if rate != "" {
			p.rate = rate
		}
		if emphasis != "" {
			p.emphasis = emphasis
		}
	}
}

// Provider implements tts.Provider backed by AWS Polly.
type Provider struct {
	client       api
	voiceID      string
	engine       string
	outputFormat string
	sampleRate   string
	rate         string
	emphasis     string
}

// New creates a Polly Provider from an AWS config. Use functional options to
// override the voice, engine, and output-format defaults.
func New(cfg aws.Config, opts ...Option) *Provider {
	p := &Provider{
		client:       awspolly.NewFromConfig(cfg),
		voiceID:      defaultVoiceID,
		engine:       defaultEngine,
		outputFormat: defaultOutputFormat,
		sampleRate:   defaultSampleRate,
		rate:         defaultRate,
		emphasis:     defaultEmphasis,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize calls Polly SynthesizeSpeech and streams the response body in
// fixed-size chunks. Plain text is wrapped in SSML with the assistant's
// prosody settings; text already starting with <speak> is passed through.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Stream, error) {
	if req.Text == "" {
		return nil, errors.New("polly: text must not be empty")
	}

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = p.voiceID
	}
	engine := req.Engine
	if engine == "" {
		engine = p.engine
	}
	format := req.OutputFormat
	if format == "" {
		format = p.outputFormat
	}

	text := req.Text
	textType := pollytypes.TextTypeText
	if strings.HasPrefix(strings.TrimSpace(text), "<speak>") {
		textType = pollytypes.TextTypeSsml
	} else {
		text = WrapSSML(text, p.emphasis, p.rate)
		textType = pollytypes.TextTypeSsml
	}

	input := &awspolly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		TextType:     textType,
		VoiceId:      pollytypes.VoiceId(voiceID),
		OutputFormat: pollytypes.OutputFormat(format),
		Engine:       pollytypes.Engine(engine),
	}
	if format == "pcm" {
		input.SampleRate = aws.String(p.sampleRate)
	}

	out, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("polly: synthesize speech: %w", err)
	}

	s := &stream{chunks: make(chan []byte, 16)}
	go s.pump(ctx, out.AudioStream)
	return s, nil
}

// stream forwards the Polly audio body chunk by chunk. It implements
// tts.Stream.
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

// pump copies the audio body onto the chunk channel in chunkSize pieces and
// closes the channel when the body is exhausted.
func (s *stream) pump(ctx context.Context, body io.ReadCloser) {
	defer close(s.chunks)
	defer body.Close()

	for {
		buf := make([]byte, chunkSize)
		n, err := body.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- buf[:n]:
			case <-ctx.Done():
				s.setErr(ctx.Err())
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.setErr(fmt.Errorf("polly: read audio stream: %w", err))
			}
			return
		}
	}
}

func (s *stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// ---- SSML helpers ----

// WrapSSML wraps plain text in SSML with the given emphasis level and
// speaking rate, escaping XML-reserved characters first.
func WrapSSML(text, emphasis, rate string) string {
	text = escapeSSML(text)
	return fmt.Sprintf(
		"<speak><prosody rate=%q><emphasis level=%q>%s</emphasis></prosody></speak>",
		rate, emphasis, text,
	)
}

// escapeSSML escapes the five XML-reserved characters for embedding plain
// text in an SSML document.
func escapeSSML(text string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(text)
}

// ---- Voice presets ----

// Preset bundles a voice, engine, and prosody configuration under a short
// name so clients can request a speaking style without knowing Polly details.
type Preset struct {
	VoiceID  string
	Engine   string
	Rate     string
	Emphasis string
}

// Presets are the named speaking styles offered by the gateway.
var Presets = map[string]Preset{
	"default": {VoiceID: "Brian", Engine: "neural", Rate: "medium", Emphasis: "moderate"},
	"urgent":  {VoiceID: "Brian", Engine: "neural", Rate: "fast", Emphasis: "strong"},
	"calm":    {VoiceID: "Brian", Engine: "neural", Rate: "slow", Emphasis: "reduced"},
	"formal":  {VoiceID: "Brian", Engine: "neural", Rate: "medium", Emphasis: "moderate"},
}

// LookupPreset returns the named preset, falling back to "default" when the
// name is unknown or empty.
func LookupPreset(name string) Preset {
	if p, ok := Presets[name]; ok {
		return p
	}
	return Presets["default"]
}
