// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a real-time transcription service (e.g., Deepgram or
// a self-hosted Whisper server) and exposes a uniform streaming interface.
// The central abstraction is StreamHandle: once opened, a stream accepts raw
// PCM audio chunks and emits an ordered sequence of Transcript values:
// low-latency partials interleaved with authoritative finals, in the order
// the backend reports them.
//
// Implementations must be safe for concurrent use. A single Results channel
// is used (rather than separate partial/final channels) so that the relative
// ordering of partials and final segment boundaries is preserved end to end.
package stt

import "context"

// StreamConfig describes the audio format for a new transcription stream.
// All fields must be compatible with what the underlying provider supports.
type StreamConfig struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string lets the provider apply its default.
	Language string

	// SampleRate is the audio sample rate in Hz. The voice gateway feeds
	// 16000 (16-bit PCM mono) as agreed with the client.
	SampleRate int

	// Encoding names the audio encoding (e.g., "pcm", "linear16"). Providers
	// map this onto their own vocabulary.
	Encoding string
}

// StreamHandle represents an open transcription stream. It is an interface so
// that test code can provide mock implementations without a live provider
// connection.
//
// Callers must call Close when no more audio will be fed. Close signals
// end-of-input to the backend; the Results channel stays open until the
// backend has flushed its remaining events and is then closed by the
// implementation. Calling Close more than once is safe.
type StreamHandle interface {
	// Feed delivers a chunk of raw audio bytes to the provider for
	// transcription. The chunk must match the format agreed in StreamConfig.
	// Feeding after Close returns an error.
	Feed(chunk []byte) error

	// Results returns a read-only channel emitting Transcript values in the
	// order the backend produced them. Partials and finals share the channel
	// so their interleaving is preserved. The channel is closed once the
	// stream has ended and all buffered events have been delivered.
	Results() <-chan Transcript

	// Err reports the backend error that terminated the stream, if any. It
	// must only be consulted after Results has been closed; before that the
	// return value is unspecified.
	Err() error

	// Close signals end-of-input, flushes pending audio, and releases the
	// stream's resources once the backend has drained.
	Close() error
}

// Provider is the abstraction over any STT backend.
//
// Implementations must be safe for concurrent use; multiple streams may be
// open simultaneously (one per connected voice session).
type Provider interface {
	// Open starts a new streaming transcription session with the given audio
	// format. The returned StreamHandle is ready to accept audio immediately.
	//
	// Returns an error if the stream cannot be established (authentication
	// failure, unsupported configuration, or ctx already cancelled). The
	// caller owns the handle and must call Close when done.
	Open(ctx context.Context, cfg StreamConfig) (StreamHandle, error)
}
