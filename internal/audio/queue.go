package audio

import (
	"sync/atomic"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
)

// BlockQueue is the bounded single-producer/single-consumer queue between
// the capture callback and the control loop.
type BlockQueue struct {
	ch     chan entities.AudioBlock
	policy entities.OverflowPolicy

	offered  atomic.Uint64
	dropped  atomic.Uint64 // blocks evicted by drop-oldest
	overruns atomic.Uint64 // incoming blocks rejected by count-and-drop
}

var _ repositories.BlockSink = (*BlockQueue)(nil)

// QueueStats is a snapshot of the queue counters
type QueueStats struct {
	Capacity int    `json:"capacity"`
	Length   int    `json:"length"`
	Offered  uint64 `json:"offered"`
	Dropped  uint64 `json:"dropped"`
	Overruns uint64 `json:"overruns"`
}

// NewBlockQueue creates a queue holding at most size blocks
func NewBlockQueue(size int, policy entities.OverflowPolicy) *BlockQueue {
	if size < 1 {
		size = 1
	}
	if !policy.Valid() {
		policy = entities.OverflowDropOldest
	}
	return &BlockQueue{
		ch:     make(chan entities.AudioBlock, size),
		policy: policy,
	}
}

// Offer enqueues a block without blocking. On overflow the configured
// policy applies; the return value reports whether this block was queued.
func (q *BlockQueue) Offer(block entities.AudioBlock) bool {
	q.offered.Add(1)

	select {
	case q.ch <- block:
		return true
	default:
	}

	if q.policy == entities.OverflowCountAndDrop {
		q.overruns.Add(1)
		return false
	}

	// drop-oldest: the consumer may drain concurrently, so both steps
	// stay non-blocking
	select {
	case <-q.ch:
		q.dropped.Add(1)
	default:
	}
	select {
	case q.ch <- block:
		return true
	default:
		q.overruns.Add(1)
		return false
	}
}

// Blocks exposes the receive side for the assembler
func (q *BlockQueue) Blocks() <-chan entities.AudioBlock {
	return q.ch
}

// Drain discards everything currently queued and returns the count
func (q *BlockQueue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of queued blocks
func (q *BlockQueue) Len() int {
	return len(q.ch)
}

// Policy returns the overflow policy in force
func (q *BlockQueue) Policy() entities.OverflowPolicy {
	return q.policy
}

// Stats returns a snapshot of the counters
func (q *BlockQueue) Stats() QueueStats {
	return QueueStats{
		Capacity: cap(q.ch),
		Length:   len(q.ch),
		Offered:  q.offered.Load(),
		Dropped:  q.dropped.Load(),
		Overruns: q.overruns.Load(),
	}
}
