package audio

import (
	"encoding/binary"
	"time"
)

const (
	// DefaultSampleRate matches what speech backends expect
	DefaultSampleRate = 16000
	// DefaultBlockDuration is the capture callback cadence
	DefaultBlockDuration = 500 * time.Millisecond
	Channels             = 1
	BitDepth             = 16
)

// BlockSamples returns the number of samples in one block
func BlockSamples(sampleRate int, blockDur time.Duration) int {
	return int(int64(sampleRate) * int64(blockDur) / int64(time.Second))
}

// SamplesToBytes converts int16 samples to little-endian bytes
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// EncodeWAV wraps mono 16-bit PCM samples in a RIFF/WAVE container
func EncodeWAV(samples []int16, sampleRate int) []byte {
	pcm := SamplesToBytes(samples)
	dataSize := len(pcm)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:24], Channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	byteRate := sampleRate * Channels * BitDepth / 8
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], Channels*BitDepth/8)
	binary.LittleEndian.PutUint16(header[34:36], BitDepth)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}
