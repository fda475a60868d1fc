package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/voxhaven/voxgate/pkg/provider/stt"
)

// transcribeResult is what one transcription cycle produced: the space-joined
// accumulation of all finalized segments, and the first error if the cycle
// terminated abnormally.
type transcribeResult struct {
	transcript string
	err        error
}

// pipeline tracks one running transcription cycle. done carries exactly one
// result; cancel tears the cycle down without waiting for a drain. span, when
// set, covers the cycle from Start until it is collected.
type pipeline struct {
	cancel  context.CancelFunc
	span    trace.Span
	done    chan transcribeResult
	started time.Time
}

// end releases the pipeline's tracing span, if any.
func (p *pipeline) end() {
	if p.span != nil {
		p.span.End()
	}
}

// runTranscription drives one transcription cycle: a feeder goroutine drains
// the ingestion queue into the recognizer, and a consumer goroutine forwards
// interim and finalized transcripts to the client in recognizer order.
//
// When the queue reports end of input the feeder closes the recognizer
// stream, which lets the backend flush trailing results before the consumer
// sees the results channel close. Finalized segments accumulate in arrival
// order; each final event carries both the new segment and the running
// space-joined text.
func runTranscription(ctx context.Context, q *ChunkQueue, handle stt.StreamHandle, emit func(Event)) (string, error) {
	var segments []string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer handle.Close()
		for {
			chunk, ok := q.Next(gctx)
			if !ok {
				return nil
			}
			if err := handle.Feed(chunk.Data); err != nil {
				return fmt.Errorf("feed chunk %d: %w", chunk.Seq, err)
			}
		}
	})

	g.Go(func() error {
		for tr := range handle.Results() {
			if tr.Text == "" {
				continue
			}
			if tr.IsFinal {
				segments = append(segments, tr.Text)
				emit(Event{
					Type:    EventFinal,
					Text:    strings.Join(segments, " "),
					Segment: tr.Text,
				})
			} else {
				emit(Event{Type: EventPartial, Text: tr.Text})
			}
		}
		return handle.Err()
	})

	err := g.Wait()
	return strings.Join(segments, " "), err
}
