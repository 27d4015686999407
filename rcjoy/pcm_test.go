package rcjoy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func injectPcmEdge(timer *SimulatedTimer, d *PcmDecoder, intervalUs uint16) {
	target := timer.Now() + timer.UsToTicks(intervalUs)
	timer.CaptureEdgeAt(target)
	d.OnInputCapture()
}

// pcmSymbolWidthUs returns the nominal center width, in microseconds,
// that getSymbol decodes back to the given symbol index (0..6).
func pcmSymbolWidthUs(symbol uint8) uint16 {
	widths := [...]uint16{pcmSymbolS0, pcmSymbolS1, pcmSymbolS2, pcmSymbolS3, pcmSymbolS4, pcmSymbolS5, pcmSymbolS6}
	return widths[symbol]
}

// syncPcmDecoder drives a fresh decoder from WaitingForSync into
// ReceivingData, ready to accept the first byte's symbols.
func syncPcmDecoder(timer *SimulatedTimer, d *PcmDecoder) {
	injectPcmEdge(timer, d, 100)  // positiveEdge false -> true, no diff check
	injectPcmEdge(timer, d, 900) // positiveEdge true -> false, diff >= 750us sync threshold
	injectPcmEdge(timer, d, 100)  // SyncDetected -> ReceivingData
}

// injectPcmByte emits the 4 data symbols plus checksum symbol for one
// byte, using the decoder's current differential lastValue exactly as
// PcmReceiver.h's encoder side would. If badChecksum is true, the
// checksum symbol is deliberately wrong.
func injectPcmByte(timer *SimulatedTimer, d *PcmDecoder, value byte, badChecksum bool) {
	values := [5]uint8{
		(value >> 6) & 3,
		(value >> 4) & 3,
		(value >> 2) & 3,
		value & 3,
		calculatePcmChecksum(value),
	}
	if badChecksum {
		values[4] = (values[4] + 1) & 3
	}

	for _, v := range values {
		offset := uint8(3 - d.lastValue)
		symbol := v + offset
		injectPcmEdge(timer, d, pcmSymbolWidthUs(symbol))
	}
}

func TestPcmNominalFrame(t *testing.T) {
	timer := NewSimulatedTimer()
	d := NewPcmDecoder(timer)

	syncPcmDecoder(timer, d)

	bytes := []byte{0x12, 0x34, 0x56, 0x78}
	for _, b := range bytes {
		injectPcmByte(timer, d, b, false)
	}

	require.True(t, d.IsReceiving())
	assert.True(t, d.HasNewData())
	assert.Equal(t, uint8(len(bytes)), d.ChannelCount())
	for i, b := range bytes {
		assert.Equal(t, b, d.GetChannelData(uint8(i)), "channel %d", i)
	}
}

func TestPcmChecksumFailure(t *testing.T) {
	// A byte 0x1B with an incorrect checksum symbol resyncs without
	// publishing.
	timer := NewSimulatedTimer()
	d := NewPcmDecoder(timer)

	syncPcmDecoder(timer, d)
	injectPcmByte(timer, d, 0x1B, true)

	assert.Equal(t, stateWaitingForSync, d.state)
	assert.False(t, d.HasNewData())
	assert.False(t, d.IsReceiving())
}

func TestPcmNeutralDefaultBeyondChannelCount(t *testing.T) {
	timer := NewSimulatedTimer()
	d := NewPcmDecoder(timer)

	assert.Equal(t, pcmNeutralChannelByte, d.GetChannelData(0))
}

func TestPcmTimeout(t *testing.T) {
	timer := NewSimulatedTimer()
	d := NewPcmDecoder(timer)

	syncPcmDecoder(timer, d)
	for _, b := range []byte{0x12, 0x34, 0x56, 0x78} {
		injectPcmByte(timer, d, b, false)
	}
	require.True(t, d.IsReceiving())

	for i := 0; i < pcmTimeoutMs; i++ {
		d.RunTask()
	}

	assert.False(t, d.IsReceiving())
}

func TestCalculatePcmChecksumRange(t *testing.T) {
	// The checksum always lands in 0..3.
	for v := 0; v < 256; v++ {
		c := calculatePcmChecksum(byte(v))
		assert.LessOrEqual(t, c, uint8(3))
	}
}
