package session

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeTransport is an in-memory Transport. Tests push inbound frames through
// the in channel and inspect everything the session wrote.
type fakeTransport struct {
	in        chan Frame
	closeOnce sync.Once

	mu       sync.Mutex
	out      []Frame
	writeErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan Frame, 64)}
}

func (ft *fakeTransport) ReadFrame(ctx context.Context) (Frame, error) {
	select {
	case f, ok := <-ft.in:
		if !ok {
			return Frame{}, io.EOF
		}
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (ft *fakeTransport) WriteText(_ context.Context, data []byte) error {
	return ft.record(Frame{Data: append([]byte(nil), data...)})
}

func (ft *fakeTransport) WriteBinary(_ context.Context, data []byte) error {
	return ft.record(Frame{Binary: true, Data: append([]byte(nil), data...)})
}

func (ft *fakeTransport) record(f Frame) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.writeErr != nil {
		return ft.writeErr
	}
	ft.out = append(ft.out, f)
	return nil
}

func (ft *fakeTransport) sendText(s string) {
	ft.in <- Frame{Data: []byte(s)}
}

func (ft *fakeTransport) sendBinary(data []byte) {
	ft.in <- Frame{Binary: true, Data: data}
}

func (ft *fakeTransport) closeIn() {
	ft.closeOnce.Do(func() { close(ft.in) })
}

// frames returns a snapshot of everything written so far.
func (ft *fakeTransport) frames() []Frame {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]Frame(nil), ft.out...)
}

// events decodes all written text frames in order.
func (ft *fakeTransport) events(t *testing.T) []Event {
	t.Helper()
	var evs []Event
	for _, f := range ft.frames() {
		if f.Binary {
			continue
		}
		var ev Event
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			t.Fatalf("invalid event frame %q: %v", f.Data, err)
		}
		evs = append(evs, ev)
	}
	return evs
}

// eventTypes extracts the type tags of all written text frames in order.
func (ft *fakeTransport) eventTypes(t *testing.T) []EventType {
	t.Helper()
	var types []EventType
	for _, ev := range ft.events(t) {
		types = append(types, ev.Type)
	}
	return types
}

// countEvents returns how many written events have the given type.
func (ft *fakeTransport) countEvents(t *testing.T, typ EventType) int {
	t.Helper()
	n := 0
	for _, ev := range ft.events(t) {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}
