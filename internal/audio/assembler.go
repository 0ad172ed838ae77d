package audio

import (
	"context"
	"math"
	"time"

	"github.com/satriahrh/moodcast/domain/entities"
)

// ChunkAssembler pulls blocks from the queue until a chunk covers the
// target duration, or until a pull times out.
type ChunkAssembler struct {
	queue       *BlockQueue
	pulls       int
	pullTimeout time.Duration
	sampleRate  int
}

// NewChunkAssembler creates an assembler for chunks of chunkDur built from
// blocks of blockDur. Each pull waits at most pullTimeout.
func NewChunkAssembler(queue *BlockQueue, chunkDur, blockDur, pullTimeout time.Duration, sampleRate int) *ChunkAssembler {
	return &ChunkAssembler{
		queue:       queue,
		pulls:       PullsPerChunk(chunkDur, blockDur),
		pullTimeout: pullTimeout,
		sampleRate:  sampleRate,
	}
}

// PullsPerChunk returns ceil(chunk/block), at least one
func PullsPerChunk(chunkDur, blockDur time.Duration) int {
	if blockDur <= 0 || chunkDur <= 0 {
		return 1
	}
	n := int(math.Ceil(float64(chunkDur) / float64(blockDur)))
	if n < 1 {
		n = 1
	}
	return n
}

// Pulls returns how many blocks make a full chunk
func (a *ChunkAssembler) Pulls() int {
	return a.pulls
}

// MaxWait is the longest Assemble can block
func (a *ChunkAssembler) MaxWait() time.Duration {
	return time.Duration(a.pulls) * a.pullTimeout
}

// Assemble collects up to Pulls blocks in FIFO order. A pull that times out
// ends assembly early; a short or empty chunk is a valid result. The only
// error is ctx's, returned together with whatever was collected.
func (a *ChunkAssembler) Assemble(ctx context.Context) (entities.AudioChunk, error) {
	blocks := make([]entities.AudioBlock, 0, a.pulls)

	timer := time.NewTimer(a.pullTimeout)
	defer timer.Stop()

	for i := 0; i < a.pulls; i++ {
		if i > 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(a.pullTimeout)
		}

		select {
		case <-ctx.Done():
			return entities.NewAudioChunk(blocks, a.sampleRate), ctx.Err()
		case b := <-a.queue.Blocks():
			blocks = append(blocks, b)
		case <-timer.C:
			return entities.NewAudioChunk(blocks, a.sampleRate), nil
		}
	}

	return entities.NewAudioChunk(blocks, a.sampleRate), nil
}
