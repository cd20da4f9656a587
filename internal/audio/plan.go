package audio

import (
	"fmt"
	"time"

	"github.com/dkim-lab/voicenote/internal/format"
)

// DefaultChunkMs is the default chunk duration for transcription.
// 60s keeps individual uploads small and maximizes parallelism.
const DefaultChunkMs = 60_000

// Chunk is a fixed-duration contiguous slice of normalized audio,
// independently transcribed. Chunks are immutable once planned and consumed
// exactly once by the dispatcher.
type Chunk struct {
	Index   int     // Zero-based, contiguous.
	StartMs int     // Inclusive start in the source stream.
	EndMs   int     // Exclusive end in the source stream.
	Audio   *Stream // Read-only view into the source stream.
}

// DurationMs returns the length of this chunk in milliseconds.
func (c Chunk) DurationMs() int {
	return c.EndMs - c.StartMs
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d: %s-%s",
		c.Index,
		format.Duration(time.Duration(c.StartMs)*time.Millisecond),
		format.Duration(time.Duration(c.EndMs)*time.Millisecond))
}

// Plan partitions the stream into fixed-duration, index-ordered chunks.
// Deterministic: the same stream and chunk duration always yield the same
// boundaries. The final chunk may be shorter than chunkMs; a zero-duration
// stream yields an empty plan, which callers treat as nothing to
// transcribe, not an error.
func Plan(src *Stream, chunkMs int) []Chunk {
	if chunkMs <= 0 {
		chunkMs = DefaultChunkMs
	}

	totalMs := src.DurationMs()
	var chunks []Chunk
	for start := 0; start < totalMs; start += chunkMs {
		end := min(start+chunkMs, totalMs)
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			StartMs: start,
			EndMs:   end,
			Audio:   src.Slice(start, end),
		})
	}
	return chunks
}
