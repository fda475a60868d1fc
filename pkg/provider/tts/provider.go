// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., AWS Polly or
// ElevenLabs) and presents a uniform streaming interface: Synthesize takes a
// finite piece of text and returns a lazy, finite, non-restartable sequence
// of raw audio byte chunks, delivered in production order.
//
// Implementations must be safe for concurrent use. Multiple synthesis
// requests may run in parallel (one per voice session).
package tts

import "context"

// Request describes a single synthesis call.
type Request struct {
	// Text is the text to speak. Must be non-empty; callers validate this
	// before invoking the backend.
	Text string

	// VoiceID selects the provider-specific voice. Empty selects the
	// provider's configured default.
	VoiceID string

	// Engine selects the synthesis engine where the provider distinguishes
	// several (e.g., Polly "standard" vs "neural"). Empty selects the default.
	Engine string

	// OutputFormat names the audio container/encoding to produce
	// (e.g., "mp3", "pcm"). Empty selects the provider default.
	OutputFormat string
}

// Stream is a live synthesis result. Chunks are delivered in the order the
// backend produced them; the channel is closed when synthesis completes or
// fails. After the channel closes, Err reports whether the stream terminated
// cleanly.
type Stream interface {
	// Chunks returns the channel of raw audio byte chunks. The caller must
	// drain it to avoid blocking the provider's internal goroutine.
	Chunks() <-chan []byte

	// Err reports the backend error that terminated the stream, if any. Only
	// meaningful after Chunks has been closed.
	Err() error
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize starts synthesis of req.Text and returns the resulting audio
	// stream. Returns a non-nil error only if synthesis cannot be started;
	// mid-stream failures surface through Stream.Err after the chunk channel
	// closes.
	Synthesize(ctx context.Context, req Request) (Stream, error)
}
