package elevenlabs

import (
	"strings"
	"testing"
)

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("model = %q, want %q", p.model, defaultModel)
	}
	if p.outputFormat != defaultOutputFmt {
		t.Errorf("outputFormat = %q, want %q", p.outputFormat, defaultOutputFmt)
	}
}

func TestNew_Options(t *testing.T) {
	p, err := New("key", WithModel("eleven_turbo_v2"), WithVoiceID("v-123"), WithOutputFormat("pcm_24000"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != "eleven_turbo_v2" {
		t.Errorf("model = %q", p.model)
	}
	if p.voiceID != "v-123" {
		t.Errorf("voiceID = %q", p.voiceID)
	}
	if p.outputFormat != "pcm_24000" {
		t.Errorf("outputFormat = %q", p.outputFormat)
	}
}

func TestBuildURLForVoice(t *testing.T) {
	url := buildURLForVoice("voice-1", "model-1", "pcm_16000")
	if !strings.Contains(url, "/text-to-speech/voice-1/") {
		t.Errorf("URL missing voice path segment: %q", url)
	}
	if !strings.Contains(url, "model_id=model-1") {
		t.Errorf("URL missing model_id: %q", url)
	}
	if !strings.Contains(url, "output_format=pcm_16000") {
		t.Errorf("URL missing output_format: %q", url)
	}
}

func TestParseAudioResponse(t *testing.T) {
	resp, ok := parseAudioResponse([]byte(`{"audio":"AAEC","isFinal":false}`))
	if !ok {
		t.Fatal("expected ok=true")
	}
	if resp.Audio != "AAEC" {
		t.Errorf("Audio = %q", resp.Audio)
	}
	if resp.IsFinal {
		t.Error("expected IsFinal=false")
	}

	final, ok := parseAudioResponse([]byte(`{"isFinal":true}`))
	if !ok {
		t.Fatal("expected ok=true for final message")
	}
	if !final.IsFinal {
		t.Error("expected IsFinal=true")
	}

	if _, ok := parseAudioResponse([]byte(`{bad`)); ok {
		t.Error("expected ok=false for invalid JSON")
	}
}
