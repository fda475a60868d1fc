package session

import "context"

// Frame is one message received from the transport. Binary frames carry
// audio; text frames carry JSON control commands.
type Frame struct {
	Binary bool
	Data   []byte
}

// Transport abstracts the bidirectional connection a session runs over. The
// production implementation wraps a WebSocket; tests use an in-memory pipe.
//
// ReadFrame may be called by one goroutine at a time. WriteText and
// WriteBinary may be called concurrently with each other; Mux serializes
// them.
type Transport interface {
	ReadFrame(ctx context.Context) (Frame, error)
	WriteText(ctx context.Context, data []byte) error
	WriteBinary(ctx context.Context, data []byte) error
}
