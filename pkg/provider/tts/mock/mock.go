// Package mock provides test doubles for the tts package interfaces.
//
// Use Provider to verify which synthesis requests the caller issued and to
// serve canned audio chunks. The default Stream yields the chunks configured
// on the Provider and then closes.
package mock

import (
	"context"
	"sync"

	"github.com/voxhaven/voxgate/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Provider.Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Req is the request passed to Synthesize.
	Req tts.Request
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Chunks are the audio chunks each returned Stream will emit, in order.
	Chunks [][]byte

	// StreamErr is reported by the returned Stream's Err after its chunk
	// channel closes.
	StreamErr error

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize
	// (no Stream is produced).
	SynthesizeErr error

	// SynthesizeCalls records every call to Synthesize.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns a Stream emitting the configured
// Chunks, or SynthesizeErr.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Stream, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Req: req})
	chunks := p.Chunks
	streamErr := p.StreamErr
	err := p.SynthesizeErr
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}

	ch := make(chan []byte, len(chunks))
	for _, c := range chunks {
		cp := make([]byte, len(c))
		copy(cp, c)
		ch <- cp
	}
	close(ch)
	return &Stream{ch: ch, err: streamErr}, nil
}

// SynthesizeCallCount returns the number of Synthesize calls. Thread-safe.
func (p *Provider) SynthesizeCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SynthesizeCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)

// Stream is the canned tts.Stream returned by Provider.
type Stream struct {
	ch  chan []byte
	err error
}

// Chunks returns the canned chunk channel.
func (s *Stream) Chunks() <-chan []byte { return s.ch }

// Err returns the configured stream error.
func (s *Stream) Err() error { return s.err }

// Ensure Stream implements tts.Stream at compile time.
var _ tts.Stream = (*Stream)(nil)
