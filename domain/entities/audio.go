package entities

import "time"

// AudioBlock is one fixed-length buffer delivered by the capture callback.
// It must not be modified after it has been enqueued.
type AudioBlock struct {
	CapturedAt time.Time
	Samples    []int16 // mono, signed 16-bit PCM
}

// AudioChunk is the ordered concatenation of the blocks collected for one
// cycle. It may be shorter than the target duration, or empty.
type AudioChunk struct {
	StartedAt  time.Time
	SampleRate int
	Samples    []int16
	Blocks     int
}

// NewAudioChunk concatenates blocks in arrival order
func NewAudioChunk(blocks []AudioBlock, sampleRate int) AudioChunk {
	total := 0
	for _, b := range blocks {
		total += len(b.Samples)
	}

	chunk := AudioChunk{
		SampleRate: sampleRate,
		Samples:    make([]int16, 0, total),
		Blocks:     len(blocks),
	}
	if len(blocks) > 0 {
		chunk.StartedAt = blocks[0].CapturedAt
	}
	for _, b := range blocks {
		chunk.Samples = append(chunk.Samples, b.Samples...)
	}
	return chunk
}

// IsEmpty reports whether the chunk carries no audio
func (c AudioChunk) IsEmpty() bool {
	return len(c.Samples) == 0
}

// Duration returns the amount of audio in the chunk
func (c AudioChunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// OverflowPolicy decides what the capture queue does when it is full
type OverflowPolicy string

const (
	// OverflowDropOldest discards the oldest queued block to make room
	OverflowDropOldest OverflowPolicy = "drop-oldest"
	// OverflowCountAndDrop discards the incoming block and counts an overrun
	OverflowCountAndDrop OverflowPolicy = "count-and-drop"
)

// Valid reports whether the policy is one of the known values
func (p OverflowPolicy) Valid() bool {
	return p == OverflowDropOldest || p == OverflowCountAndDrop
}
