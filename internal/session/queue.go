package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// defaultDrainTimeout bounds how long a consumer waits for the next chunk
// before re-checking whether input has been cancelled.
const defaultDrainTimeout = 5 * time.Second

// ErrQueueStopped is returned by Put after Stop has been called.
var ErrQueueStopped = errors.New("ingestion queue stopped")

// AudioChunk is one binary audio frame tagged with its arrival sequence
// number.
type AudioChunk struct {
	Data []byte
	Seq  uint64
}

// ChunkQueue is the FIFO handoff between the transport read loop and the
// transcription pipeline. Single producer, single consumer. Put blocks when
// the queue is full; Next blocks until a chunk arrives, input is cancelled,
// or the context expires.
type ChunkQueue struct {
	ch           chan AudioChunk
	stop         chan struct{}
	stopOnce     sync.Once
	drainTimeout time.Duration
}

// NewChunkQueue creates a queue holding up to capacity chunks. drainTimeout
// bounds Next's wait between cancellation checks; zero means the default.
func NewChunkQueue(capacity int, drainTimeout time.Duration) *ChunkQueue {
	if capacity <= 0 {
		capacity = 256
	}
	if drainTimeout <= 0 {
		drainTimeout = defaultDrainTimeout
	}
	return &ChunkQueue{
		ch:           make(chan AudioChunk, capacity),
		stop:         make(chan struct{}),
		drainTimeout: drainTimeout,
	}
}

// Put appends a chunk. It blocks while the queue is full and fails once the
// queue is stopped or the context expires.
func (q *ChunkQueue) Put(ctx context.Context, chunk AudioChunk) error {
	select {
	case <-q.stop:
		return ErrQueueStopped
	default:
	}
	select {
	case q.ch <- chunk:
		return nil
	case <-q.stop:
		return ErrQueueStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next chunk in arrival order. It reports ok=false once no
// more chunks will be delivered: input was cancelled via Stop or the context
// expired. Buffered chunks present at cancellation time are discarded.
func (q *ChunkQueue) Next(ctx context.Context) (AudioChunk, bool) {
	timer := time.NewTimer(q.drainTimeout)
	defer timer.Stop()
	for {
		select {
		case chunk := <-q.ch:
			return chunk, true
		case <-q.stop:
			return AudioChunk{}, false
		case <-ctx.Done():
			return AudioChunk{}, false
		case <-timer.C:
			if q.Stopped() {
				return AudioChunk{}, false
			}
			timer.Reset(q.drainTimeout)
		}
	}
}

// Stop cancels input. Safe to call more than once.
func (q *ChunkQueue) Stop() {
	q.stopOnce.Do(func() { close(q.stop) })
}

// Stopped reports whether Stop has been called.
func (q *ChunkQueue) Stopped() bool {
	select {
	case <-q.stop:
		return true
	default:
		return false
	}
}
