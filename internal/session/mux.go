package session

import (
	"context"
	"sync"
)

// Inbound is one demultiplexed frame from the client: either an audio chunk
// or a parsed control command.
type Inbound struct {
	Audio *AudioChunk
	Cmd   *Command
}

// Mux multiplexes a single Transport into the two protocol planes: JSON
// control frames and binary audio frames. It also serializes writes, since
// the transcription pipeline and the command loop emit events concurrently.
type Mux struct {
	t Transport

	writeMu sync.Mutex
	seq     uint64
}

// NewMux wraps a transport.
func NewMux(t Transport) *Mux {
	return &Mux{t: t}
}

// Next reads and demultiplexes one frame. Binary frames become audio chunks
// tagged with a monotonically increasing arrival sequence number; text frames
// are parsed into commands. Parse failures return ErrMalformedCommand or
// ErrUnknownCommand, which the caller reports to the client and survives.
// Any other error means the transport is gone.
func (m *Mux) Next(ctx context.Context) (Inbound, error) {
	frame, err := m.t.ReadFrame(ctx)
	if err != nil {
		return Inbound{}, err
	}
	if frame.Binary {
		m.seq++
		return Inbound{Audio: &AudioChunk{Data: frame.Data, Seq: m.seq}}, nil
	}
	cmd, err := ParseCommand(frame.Data)
	if err != nil {
		return Inbound{}, err
	}
	return Inbound{Cmd: &cmd}, nil
}

// WriteEvent encodes and sends a structured frame.
func (m *Mux) WriteEvent(ctx context.Context, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.t.WriteText(ctx, data)
}

// WriteAudio sends one binary audio frame.
func (m *Mux) WriteAudio(ctx context.Context, data []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.t.WriteBinary(ctx, data)
}
