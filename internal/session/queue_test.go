package session

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestChunkQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := NewChunkQueue(4, 0)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := q.Put(ctx, AudioChunk{Data: []byte{byte(i)}, Seq: uint64(i)}); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	for i := 1; i <= 3; i++ {
		chunk, ok := q.Next(ctx)
		if !ok {
			t.Fatalf("Next %d: ok=false", i)
		}
		if chunk.Seq != uint64(i) {
			t.Errorf("Seq = %d, want %d", chunk.Seq, i)
		}
		if !bytes.Equal(chunk.Data, []byte{byte(i)}) {
			t.Errorf("Data = %v, want %v", chunk.Data, []byte{byte(i)})
		}
	}
}

func TestChunkQueue_NextBlocksUntilPut(t *testing.T) {
	t.Parallel()

	q := NewChunkQueue(1, 0)
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Put(context.Background(), AudioChunk{Data: []byte{9}, Seq: 1})
	}()

	chunk, ok := q.Next(context.Background())
	if !ok {
		t.Fatal("Next: ok=false")
	}
	if chunk.Seq != 1 {
		t.Errorf("Seq = %d, want 1", chunk.Seq)
	}
}

func TestChunkQueue_NextSurvivesPollTimeout(t *testing.T) {
	t.Parallel()

	// The drain timeout only triggers a cancellation re-check. A chunk put
	// after several timeouts must still be delivered.
	q := NewChunkQueue(1, 10*time.Millisecond)
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = q.Put(context.Background(), AudioChunk{Seq: 7})
	}()

	chunk, ok := q.Next(context.Background())
	if !ok {
		t.Fatal("Next: ok=false")
	}
	if chunk.Seq != 7 {
		t.Errorf("Seq = %d, want 7", chunk.Seq)
	}
}

func TestChunkQueue_StopEndsNext(t *testing.T) {
	t.Parallel()

	q := NewChunkQueue(1, 0)
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Stop()
	}()

	if _, ok := q.Next(context.Background()); ok {
		t.Error("Next after Stop: ok=true, want false")
	}
}

func TestChunkQueue_PutAfterStop(t *testing.T) {
	t.Parallel()

	q := NewChunkQueue(1, 0)
	q.Stop()
	q.Stop() // idempotent

	if err := q.Put(context.Background(), AudioChunk{Seq: 1}); !errors.Is(err, ErrQueueStopped) {
		t.Errorf("Put after Stop: err = %v, want ErrQueueStopped", err)
	}
	if !q.Stopped() {
		t.Error("Stopped() = false after Stop")
	}
}

func TestChunkQueue_NextHonorsContext(t *testing.T) {
	t.Parallel()

	q := NewChunkQueue(1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if _, ok := q.Next(ctx); ok {
		t.Error("Next with cancelled context: ok=true, want false")
	}
}
