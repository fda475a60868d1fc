// Package session implements the real-time voice streaming session: the
// protocol multiplexer that splits one WebSocket-style transport into JSON
// control commands and binary audio chunks, the audio ingestion queue between
// the transport reader and the transcription consumer, and the state machine
// that owns the transcription and synthesis pipelines for one connection.
//
// The wire protocol is a fixed contract with the client:
//
//	inbound  text:   {"type":"start"} | {"type":"stop"} |
//	                 {"type":"synthesize","text":"..."} | {"type":"ping"}
//	inbound  binary: one audio chunk, 16-bit PCM, 16 kHz, mono
//	outbound text:   partial | final | transcription_complete |
//	                 synthesis_started | synthesis_complete | error | pong |
//	                 connected | session_started | session_ended | notification
//	outbound binary: synthesized audio, between synthesis_started and
//	                 synthesis_complete
package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CommandType tags an inbound control command.
type CommandType string

const (
	CommandStart      CommandType = "start"
	CommandStop       CommandType = "stop"
	CommandSynthesize CommandType = "synthesize"
	CommandPing       CommandType = "ping"
)

// Command is a parsed inbound control frame.
type Command struct {
	Type CommandType `json:"type"`

	// Text carries the synthesis text for CommandSynthesize; empty otherwise.
	Text string `json:"text,omitempty"`
}

// Protocol errors. Both are non-fatal: the session reports them to the client
// as an error event and keeps running.
var (
	// ErrMalformedCommand marks a text frame that is not valid JSON or has no
	// type tag.
	ErrMalformedCommand = errors.New("malformed command frame")

	// ErrUnknownCommand marks a well-formed frame whose type tag is not a
	// recognised command.
	ErrUnknownCommand = errors.New("unknown command type")
)

// ParseCommand decodes an inbound text frame into a Command. Invalid JSON and
// unknown type tags are protocol errors, reported via ErrMalformedCommand and
// ErrUnknownCommand respectively.
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	switch cmd.Type {
	case CommandStart, CommandStop, CommandSynthesize, CommandPing:
		return cmd, nil
	case "":
		return Command{}, fmt.Errorf("%w: missing type tag", ErrMalformedCommand)
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

// EventType tags an outbound structured frame.
type EventType string

const (
	EventConnected             EventType = "connected"
	EventSessionStarted        EventType = "session_started"
	EventSessionEnded          EventType = "session_ended"
	EventPartial               EventType = "partial"
	EventFinal                 EventType = "final"
	EventTranscriptionComplete EventType = "transcription_complete"
	EventSynthesisStarted      EventType = "synthesis_started"
	EventSynthesisComplete     EventType = "synthesis_complete"
	EventError                 EventType = "error"
	EventPong                  EventType = "pong"
	EventNotification          EventType = "notification"
)

// Event is an outbound structured frame. Unused fields are omitted from the
// wire encoding, so every event type shares this one shape.
type Event struct {
	Type EventType `json:"type"`

	// Text carries transcript text for partial/final/transcription_complete.
	// For final events it holds the running space-joined accumulation.
	Text string `json:"text,omitempty"`

	// Segment is the newly finalized segment on a final event.
	Segment string `json:"segment,omitempty"`

	// Message is the human-readable description on an error or notification
	// event.
	Message string `json:"message,omitempty"`

	// UserID identifies the session owner on session_started.
	UserID string `json:"user_id,omitempty"`
}

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	return data, nil
}

// ErrorEvent builds an error event with the given message.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
