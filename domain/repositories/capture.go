package repositories

import "github.com/satriahrh/moodcast/domain/entities"

// BlockSink receives blocks from the capture callback. Offer must never
// block; it reports whether the block was queued.
type BlockSink interface {
	Offer(block entities.AudioBlock) bool
}

// AudioSource owns the capture device
type AudioSource interface {
	// Start acquires the device and begins delivering blocks to the sink.
	// A device that cannot be acquired is reported as *domain.DeviceError.
	Start(sink BlockSink) error
	// Stop releases the device. It is idempotent and may be called at any
	// time, including while a callback is running.
	Stop() error
}
