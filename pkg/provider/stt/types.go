package stt

// Transcript represents a speech-to-text result from an STT provider.
// Both partial (interim) and final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content. For a final result this is the
	// text of the finalized segment, not an accumulation.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (subject-to-revision) transcript.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the provider does not report confidence.
	Confidence float64
}
