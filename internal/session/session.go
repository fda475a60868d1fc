package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxhaven/voxgate/internal/observe"
	"github.com/voxhaven/voxgate/pkg/provider/stt"
	"github.com/voxhaven/voxgate/pkg/provider/tts"
)

// State is the session lifecycle state.
type State int32

const (
	// StateIdle accepts Start, Synthesize, and Ping. Audio chunks are dropped.
	StateIdle State = iota
	// StateTranscribing routes audio chunks into the ingestion queue.
	StateTranscribing
	// StateClosed is terminal: the transport is gone.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTranscribing:
		return "transcribing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config carries everything a session needs beyond its transport.
type Config struct {
	// ID identifies the session; generated when empty.
	ID string
	// UserID is the authenticated owner, echoed in session_started.
	UserID string

	STT stt.Provider
	TTS tts.Provider

	// Stream configures every recognizer stream the session opens.
	Stream stt.StreamConfig

	// Voice parameters applied to every synthesis request. Empty fields fall
	// through to the provider's defaults.
	VoiceID      string
	Engine       string
	OutputFormat string

	// QueueCapacity bounds the ingestion queue; zero means the default.
	QueueCapacity int
	// DrainTimeout bounds the pipeline's wait between cancellation checks;
	// zero means the default.
	DrainTimeout time.Duration

	Logger  *slog.Logger
	Metrics *observe.Metrics
}

// Session owns one client connection: it demultiplexes the transport,
// dispatches control commands, and coordinates the transcription pipeline
// with synthesis requests. All command dispatch happens on the Run goroutine;
// only the transcription pipeline writes to the client concurrently.
type Session struct {
	id        string
	userID    string
	createdAt time.Time

	mux     *Mux
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics

	mu    sync.Mutex
	state State
	queue *ChunkQueue
	pipe  *pipeline
}

// New creates a session over the given transport.
func New(t Transport, cfg Config) *Session {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		id:        cfg.ID,
		userID:    cfg.UserID,
		createdAt: time.Now(),
		mux:       NewMux(t),
		cfg:       cfg,
		log:       log.With("session_id", cfg.ID, "user_id", cfg.UserID),
		metrics:   cfg.Metrics,
		state:     StateIdle,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the authenticated owner.
func (s *Session) UserID() string { return s.userID }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run serves the connection until the client disconnects or the context is
// cancelled. It returns nil on a clean disconnect and an error only when a
// write to the client fails.
func (s *Session) Run(ctx context.Context) error {
	defer s.shutdown()

	ctx, span := observe.SessionSpan(ctx, s.id, s.userID)
	defer span.End()

	if err := s.writeEvent(ctx, Event{Type: EventConnected}); err != nil {
		return err
	}
	if err := s.writeEvent(ctx, Event{Type: EventSessionStarted, UserID: s.userID}); err != nil {
		return err
	}
	s.log.Info("session open")

	for {
		in, err := s.mux.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrMalformedCommand) || errors.Is(err, ErrUnknownCommand):
			s.log.Warn("protocol error", "err", err)
			if werr := s.writeEvent(ctx, ErrorEvent(err.Error())); werr != nil {
				return werr
			}
			continue
		default:
			s.log.Info("transport closed", "reason", err)
			return nil
		}

		s.reapPipeline(ctx)

		if in.Audio != nil {
			s.handleAudio(ctx, *in.Audio)
			continue
		}
		if err := s.handleCommand(ctx, *in.Cmd); err != nil {
			return err
		}
	}
}

func (s *Session) handleCommand(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CommandStart:
		return s.handleStart(ctx)
	case CommandStop:
		return s.handleStop(ctx)
	case CommandSynthesize:
		return s.handleSynthesize(ctx, cmd.Text)
	case CommandPing:
		return s.writeEvent(ctx, Event{Type: EventPong})
	default:
		// ParseCommand already rejected anything else.
		return nil
	}
}

// handleAudio routes a chunk into the ingestion queue, or drops it when no
// transcription is active.
func (s *Session) handleAudio(ctx context.Context, chunk AudioChunk) {
	s.mu.Lock()
	q := s.queue
	active := s.state == StateTranscribing
	s.mu.Unlock()

	if !active || q == nil {
		s.log.Debug("dropping audio outside transcription", "seq", chunk.Seq, "bytes", len(chunk.Data))
		return
	}
	if err := q.Put(ctx, chunk); err != nil {
		s.log.Debug("audio chunk not enqueued", "seq", chunk.Seq, "err", err)
		return
	}
	if s.metrics != nil {
		s.metrics.AddAudioIn(ctx, len(chunk.Data))
	}
}

// handleStart opens a recognizer stream and spawns the transcription
// pipeline. A Start while transcribing is rejected with an error event and
// leaves the running pipeline untouched.
func (s *Session) handleStart(ctx context.Context) error {
	s.mu.Lock()
	active := s.state == StateTranscribing
	s.mu.Unlock()
	if active {
		return s.writeEvent(ctx, ErrorEvent("transcription already active"))
	}

	handle, err := s.cfg.STT.Open(ctx, s.cfg.Stream)
	if err != nil {
		s.log.Error("recognizer stream open failed", "err", err)
		if s.metrics != nil {
			s.metrics.AddProviderError(ctx, "stt")
		}
		return s.writeEvent(ctx, ErrorEvent("failed to start transcription: "+err.Error()))
	}

	q := NewChunkQueue(s.cfg.QueueCapacity, s.cfg.DrainTimeout)
	pctx, cancel := context.WithCancel(ctx)
	pctx, span := observe.StageSpan(pctx, "transcribe")
	pipe := &pipeline{
		cancel:  cancel,
		span:    span,
		done:    make(chan transcribeResult, 1),
		started: time.Now(),
	}

	s.mu.Lock()
	s.state = StateTranscribing
	s.queue = q
	s.pipe = pipe
	s.mu.Unlock()

	go func() {
		transcript, err := runTranscription(pctx, q, handle, s.emit(pctx))
		pipe.done <- transcribeResult{transcript: transcript, err: err}
	}()

	s.log.Info("transcription started")
	return nil
}

// handleStop ends the current transcription cycle. Input is cancelled first,
// then the client is told the session ended, then the pipeline drains and
// the complete transcript follows. A Stop with no active transcription only
// acknowledges with session_ended.
func (s *Session) handleStop(ctx context.Context) error {
	s.mu.Lock()
	pipe := s.pipe
	q := s.queue
	active := s.state == StateTranscribing
	s.mu.Unlock()

	if !active || pipe == nil {
		return s.writeEvent(ctx, Event{Type: EventSessionEnded})
	}

	q.Stop()
	if err := s.writeEvent(ctx, Event{Type: EventSessionEnded}); err != nil {
		return err
	}
	res := <-pipe.done
	return s.finishPipeline(ctx, pipe, res)
}

// handleSynthesize streams synthesized audio for the given text between a
// synthesis_started and synthesis_complete pair. Empty text is rejected
// before the backend is involved. Synthesis runs on the command loop, so a
// concurrent transcription keeps flowing while audio goes out.
func (s *Session) handleSynthesize(ctx context.Context, text string) error {
	if text == "" {
		return s.writeEvent(ctx, ErrorEvent("no text provided for synthesis"))
	}
	if err := s.writeEvent(ctx, Event{Type: EventSynthesisStarted}); err != nil {
		return err
	}

	ctx, span := observe.StageSpan(ctx, "synthesize")
	defer span.End()

	started := time.Now()
	stream, err := s.cfg.TTS.Synthesize(ctx, tts.Request{
		Text:         text,
		VoiceID:      s.cfg.VoiceID,
		Engine:       s.cfg.Engine,
		OutputFormat: s.cfg.OutputFormat,
	})
	if err != nil {
		s.log.Error("synthesis failed to start", "err", err)
		if s.metrics != nil {
			s.metrics.AddProviderError(ctx, "tts")
		}
		return s.writeEvent(ctx, ErrorEvent("synthesis failed: "+err.Error()))
	}

	var bytesOut int
	for chunk := range stream.Chunks() {
		if err := s.mux.WriteAudio(ctx, chunk); err != nil {
			return err
		}
		bytesOut += len(chunk)
	}
	if serr := stream.Err(); serr != nil {
		s.log.Error("synthesis failed", "err", serr)
		if s.metrics != nil {
			s.metrics.AddProviderError(ctx, "tts")
		}
		return s.writeEvent(ctx, ErrorEvent("synthesis failed: "+serr.Error()))
	}

	if s.metrics != nil {
		s.metrics.RecordSynthesis(ctx, time.Since(started))
		s.metrics.AddAudioOut(ctx, bytesOut)
	}
	s.log.Info("synthesis complete", "bytes", bytesOut, "elapsed", time.Since(started))
	return s.writeEvent(ctx, Event{Type: EventSynthesisComplete})
}

// reapPipeline collects a pipeline that terminated on its own, typically on
// a recognizer failure, so the session returns to idle without a Stop.
func (s *Session) reapPipeline(ctx context.Context) {
	s.mu.Lock()
	pipe := s.pipe
	s.mu.Unlock()
	if pipe == nil {
		return
	}
	select {
	case res := <-pipe.done:
		if err := s.finishPipeline(ctx, pipe, res); err != nil {
			s.log.Debug("finalize after pipeline self-termination", "err", err)
		}
	default:
	}
}

// finishPipeline finalizes a completed transcription cycle: the session
// returns to idle, and the client receives either the complete transcript or
// a single error event.
func (s *Session) finishPipeline(ctx context.Context, pipe *pipeline, res transcribeResult) error {
	pipe.cancel()
	pipe.end()

	s.mu.Lock()
	if s.state == StateTranscribing {
		s.state = StateIdle
	}
	s.pipe = nil
	s.queue = nil
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordTranscription(ctx, time.Since(pipe.started))
	}
	if res.err != nil {
		s.log.Error("transcription failed", "err", res.err)
		if s.metrics != nil {
			s.metrics.AddProviderError(ctx, "stt")
		}
		return s.writeEvent(ctx, ErrorEvent("transcription failed: "+res.err.Error()))
	}
	s.log.Info("transcription complete", "chars", len(res.transcript))
	return s.writeEvent(ctx, Event{Type: EventTranscriptionComplete, Text: res.transcript})
}

// shutdown moves the session to its terminal state and tears down any
// running pipeline. No events are written: the transport is already gone.
func (s *Session) shutdown() {
	s.mu.Lock()
	s.state = StateClosed
	pipe := s.pipe
	q := s.queue
	s.pipe = nil
	s.queue = nil
	s.mu.Unlock()

	if q != nil {
		q.Stop()
	}
	if pipe != nil {
		pipe.cancel()
		<-pipe.done
		pipe.end()
	}
	s.log.Info("session closed", "lifetime", time.Since(s.createdAt))
}

// Notify pushes an out-of-band notification event to the client. The mux
// serializes it against whatever the command loop and pipeline are writing,
// so it is safe to call from any goroutine.
func (s *Session) Notify(ctx context.Context, message string) error {
	return s.mux.WriteEvent(ctx, Event{Type: EventNotification, Message: message})
}

func (s *Session) writeEvent(ctx context.Context, ev Event) error {
	return s.mux.WriteEvent(ctx, ev)
}

// emit adapts writeEvent for the transcription pipeline, which has nowhere
// to surface a write failure. The transport read loop notices the broken
// connection independently.
func (s *Session) emit(ctx context.Context) func(Event) {
	return func(ev Event) {
		if err := s.mux.WriteEvent(ctx, ev); err != nil {
			s.log.Debug("event dropped, write failed", "type", ev.Type, "err", err)
		}
	}
}
