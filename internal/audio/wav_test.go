package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	samples := []int16{0, 1, -1, 32767}
	wav := EncodeWAV(samples, 16000)

	if len(wav) != 44+len(samples)*2 {
		t.Fatalf("len = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Error("bad chunk ids")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != 8 {
		t.Errorf("data size = %d", size)
	}
	if v := int16(binary.LittleEndian.Uint16(wav[46:48])); v != 1 {
		t.Errorf("second sample = %d", v)
	}
}

func TestBlockSamples(t *testing.T) {
	if n := BlockSamples(DefaultSampleRate, DefaultBlockDuration); n != 8000 {
		t.Errorf("BlockSamples = %d, want 8000", n)
	}
}
