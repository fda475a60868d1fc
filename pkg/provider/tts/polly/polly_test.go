package polly

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	awspolly "github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/voxhaven/voxgate/pkg/provider/tts"
)

// stubAPI is a canned Polly client for tests.
type stubAPI struct {
	lastInput *awspolly.SynthesizeSpeechInput
	audio     []byte
	err       error
}

func (s *stubAPI) SynthesizeSpeech(_ context.Context, params *awspolly.SynthesizeSpeechInput, _ ...func(*awspolly.Options)) (*awspolly.SynthesizeSpeechOutput, error) {
	s.lastInput = params
	if s.err != nil {
		return nil, s.err
	}
	return &awspolly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(bytes.NewReader(s.audio)),
	}, nil
}

func newTestProvider(stub *stubAPI, opts ...Option) *Provider {
	p := &Provider{
		client:       stub,
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

func collect(t *testing.T, s tts.Stream) []byte {
	t.Helper()
	var out []byte
	for chunk := range s.Chunks() {
		out = append(out, chunk...)
	}
	return out
}

func TestSynthesize_StreamsBodyInChunks(t *testing.T) {
	t.Parallel()

	audio := bytes.Repeat([]byte{0xAB}, chunkSize*2+100)
	stub := &stubAPI{audio: audio}
	p := newTestProvider(stub)

	s, err := p.Synthesize(context.Background(), tts.Request{Text: "Good morning"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	got := collect(t, s)
	if !bytes.Equal(got, audio) {
		t.Errorf("streamed %d bytes, want %d, content mismatch", len(got), len(audio))
	}
	if s.Err() != nil {
		t.Errorf("Err() = %v, want nil", s.Err())
	}
}

func TestSynthesize_WrapsPlainTextInSSML(t *testing.T) {
	t.Parallel()

	stub := &stubAPI{audio: []byte{1}}
	p := newTestProvider(stub)

	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hello"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if stub.lastInput.TextType != pollytypes.TextTypeSsml {
		t.Errorf("TextType = %q, want ssml", stub.lastInput.TextType)
	}
	if !strings.HasPrefix(*stub.lastInput.Text, "<speak>") {
		t.Errorf("Text = %q, want SSML wrapping", *stub.lastInput.Text)
	}
}

func TestSynthesize_AppliesConfiguredProsody(t *testing.T) {
	t.Parallel()

	stub := &stubAPI{audio: []byte{1}}
	urgent := Presets["urgent"]
	p := newTestProvider(stub, WithProsody(urgent.Rate, urgent.Emphasis))

	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "move now"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	ssml := *stub.lastInput.Text
	if !strings.Contains(ssml, `rate="fast"`) {
		t.Errorf("SSML %q missing urgent rate", ssml)
	}
	if !strings.Contains(ssml, `level="strong"`) {
		t.Errorf("SSML %q missing urgent emphasis", ssml)
	}
}

func TestWithProsody_EmptyValuesKeepDefaults(t *testing.T) {
	t.Parallel()

	stub := &stubAPI{audio: []byte{1}}
	p := newTestProvider(stub, WithProsody("", ""))

	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hello"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	ssml := *stub.lastInput.Text
	if !strings.Contains(ssml, `rate="medium"`) || !strings.Contains(ssml, `level="moderate"`) {
		t.Errorf("SSML %q does not carry the default prosody", ssml)
	}
}

func TestSynthesize_PassesThroughSSML(t *testing.T) {
	t.Parallel()

	stub := &stubAPI{audio: []byte{1}}
	p := newTestProvider(stub)

	ssml := "<speak>hi</speak>"
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: ssml}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if *stub.lastInput.Text != ssml {
		t.Errorf("Text = %q, want passthrough %q", *stub.lastInput.Text, ssml)
	}
}

func TestSynthesize_RequestOverridesDefaults(t *testing.T) {
	t.Parallel()

	stub := &stubAPI{audio: []byte{1}}
	p := newTestProvider(stub)

	_, err := p.Synthesize(context.Background(), tts.Request{
		Text:         "hi",
		VoiceID:      "Joanna",
		Engine:       "standard",
		OutputFormat: "pcm",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if stub.lastInput.VoiceId != pollytypes.VoiceId("Joanna") {
		t.Errorf("VoiceId = %q, want Joanna", stub.lastInput.VoiceId)
	}
	if stub.lastInput.Engine != pollytypes.Engine("standard") {
		t.Errorf("Engine = %q, want standard", stub.lastInput.Engine)
	}
	if stub.lastInput.OutputFormat != pollytypes.OutputFormat("pcm") {
		t.Errorf("OutputFormat = %q, want pcm", stub.lastInput.OutputFormat)
	}
	if stub.lastInput.SampleRate == nil || *stub.lastInput.SampleRate != defaultSampleRate {
		t.Error("expected SampleRate to be set for pcm output")
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	t.Parallel()

	p := newTestProvider(&stubAPI{})
	if _, err := p.Synthesize(context.Background(), tts.Request{}); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestSynthesize_BackendError(t *testing.T) {
	t.Parallel()

	stub := &stubAPI{err: errors.New("throttled")}
	p := newTestProvider(stub)

	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hi"}); err == nil {
		t.Error("expected error from failing backend")
	}
}

func TestWrapSSML_EscapesReservedCharacters(t *testing.T) {
	t.Parallel()

	got := WrapSSML(`a < b & c > "d"`, "moderate", "medium")
	if strings.Contains(got, `a < b`) {
		t.Errorf("reserved characters not escaped: %q", got)
	}
	for _, want := range []string{"&lt;", "&amp;", "&gt;", "&quot;"} {
		if !strings.Contains(got, want) {
			t.Errorf("WrapSSML output %q missing %q", got, want)
		}
	}
	if !strings.HasPrefix(got, "<speak>") || !strings.HasSuffix(got, "</speak>") {
		t.Errorf("WrapSSML output %q is not a <speak> document", got)
	}
}

func TestLookupPreset(t *testing.T) {
	t.Parallel()

	if p := LookupPreset("urgent"); p.Rate != "fast" || p.Emphasis != "strong" {
		t.Errorf("urgent preset = %+v", p)
	}
	if p := LookupPreset("nonsense"); p != Presets["default"] {
		t.Errorf("unknown preset should fall back to default, got %+v", p)
	}
	if p := LookupPreset(""); p != Presets["default"] {
		t.Errorf("empty preset should fall back to default, got %+v", p)
	}
}
