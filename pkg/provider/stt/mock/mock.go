// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to verify that the caller opens streams with the expected
// StreamConfig. Use Stream to feed controlled Transcript values and inspect
// which audio chunks were delivered.
//
// Example:
//
//	st := &mock.Stream{ResultsCh: make(chan stt.Transcript, 4)}
//	p := &mock.Provider{Stream: st}
//	handle, _ := p.Open(ctx, cfg)
package mock

import (
	"context"
	"sync"

	"github.com/voxhaven/voxgate/pkg/provider/stt"
)

// OpenCall records a single invocation of Provider.Open.
type OpenCall struct {
	// Ctx is the context passed to Open.
	Ctx context.Context
	// Cfg is the StreamConfig passed to Open.
	Cfg stt.StreamConfig
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Stream is the StreamHandle returned by Open. If nil, Open returns a
	// new default Stream with a buffered results channel.
	Stream stt.StreamHandle

	// OpenErr, if non-nil, is returned as the error from Open.
	OpenErr error

	// OpenCalls records every call to Open.
	OpenCalls []OpenCall
}

// Open records the call and returns Stream, OpenErr.
func (p *Provider) Open(ctx context.Context, cfg stt.StreamConfig) (stt.StreamHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OpenCalls = append(p.OpenCalls, OpenCall{Ctx: ctx, Cfg: cfg})
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	if p.Stream != nil {
		return p.Stream, nil
	}
	return &Stream{ResultsCh: make(chan stt.Transcript, 16)}, nil
}

// OpenCallCount returns the number of Open calls. Thread-safe.
func (p *Provider) OpenCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.OpenCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OpenCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

// FeedCall records a single invocation of Stream.Feed.
type FeedCall struct {
	// Chunk is a copy of the audio bytes that were passed to Feed.
	Chunk []byte
}

// Stream is a mock implementation of stt.StreamHandle.
// Tests pre-populate ResultsCh with the Transcript values the consumer should
// receive. By default Close closes ResultsCh (matching the contract that
// Results drains after end-of-input); set KeepResultsOpen when the test wants
// to close the channel itself.
type Stream struct {
	mu sync.Mutex

	// ResultsCh is the channel returned by Results. Must be initialised by
	// the test before use.
	ResultsCh chan stt.Transcript

	// KeepResultsOpen prevents Close from closing ResultsCh.
	KeepResultsOpen bool

	// FeedErr, if non-nil, is returned by every Feed call.
	FeedErr error

	// StreamErr is returned by Err.
	StreamErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// FeedCalls records every call to Feed in order.
	FeedCalls []FeedCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	closeOnce sync.Once
}

// Feed records the call and returns FeedErr.
func (s *Stream) Feed(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.FeedCalls = append(s.FeedCalls, FeedCall{Chunk: cp})
	return s.FeedErr
}

// Results returns ResultsCh.
func (s *Stream) Results() <-chan stt.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ResultsCh
}

// Err returns StreamErr.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StreamErr
}

// Close records the call, closes ResultsCh unless KeepResultsOpen is set, and
// returns CloseErr.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.CloseCallCount++
	keepOpen := s.KeepResultsOpen
	err := s.CloseErr
	s.mu.Unlock()

	if !keepOpen {
		s.closeOnce.Do(func() { close(s.ResultsCh) })
	}
	return err
}

// FeedCallCount returns the number of Feed calls. Thread-safe.
func (s *Stream) FeedCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.FeedCalls)
}

// CloseCount returns the number of Close calls. Thread-safe.
func (s *Stream) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCallCount
}

// Ensure Stream implements stt.StreamHandle at compile time.
var _ stt.StreamHandle = (*Stream)(nil)
