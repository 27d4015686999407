package rcjoy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestTickUsConversionRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		us := rapid.Uint16Range(0, 32000).Draw(t, "us")
		assert.Equal(t, us, ticksToUs(usToTicks(us)))
	})
}

func TestScalePulseWidthAlwaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		valueUs := rapid.Uint16Range(0, 4000).Draw(t, "valueUs")
		center := rapid.Uint16Range(MinChannelPulseWidthUs, MaxChannelPulseWidthUs).Draw(t, "center")
		rangeUs := rapid.Uint16Range(MinChannelPulseWidthRangeUs, MaxChannelPulseWidthUs).Draw(t, "rangeUs")
		inverted := rapid.Bool().Draw(t, "inverted")

		out := scalePulseWidth(valueUs, center, rangeUs, inverted)
		assert.GreaterOrEqual(t, out, uint8(0))
		assert.LessOrEqual(t, out, uint8(255))
	})
}

func TestScalePulseWidthNoDataIsNeutral(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		center := rapid.Uint16Range(MinChannelPulseWidthUs, MaxChannelPulseWidthUs).Draw(t, "center")
		rangeUs := rapid.Uint16Range(MinChannelPulseWidthRangeUs, MaxChannelPulseWidthUs).Draw(t, "rangeUs")
		inverted := rapid.Bool().Draw(t, "inverted")
		assert.Equal(t, uint8(0x80), scalePulseWidth(0, center, rangeUs, inverted))
	})
}

func TestScalePulseWidthAtCenterIsAlwaysNeutral(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		center := rapid.Uint16Range(MinChannelPulseWidthUs, MaxChannelPulseWidthUs).Draw(t, "center")
		if center == 0 {
			return
		}
		rangeUs := rapid.Uint16Range(MinChannelPulseWidthRangeUs, MaxChannelPulseWidthUs).Draw(t, "rangeUs")
		inverted := rapid.Bool().Draw(t, "inverted")
		assert.Equal(t, uint8(128), scalePulseWidth(center, center, rangeUs, inverted))
	})
}

func TestScalePulseWidthInversionIsAnInvolution(t *testing.T) {
	// Reflecting twice around the center recovers the original scaled
	// value, up to the one-sided rounding of integer division.
	rapid.Check(t, func(t *rapid.T) {
		valueUs := rapid.Uint16Range(1, 4000).Draw(t, "valueUs")
		center := rapid.Uint16Range(MinChannelPulseWidthUs, MaxChannelPulseWidthUs).Draw(t, "center")
		rangeUs := rapid.Uint16Range(MinChannelPulseWidthRangeUs, MaxChannelPulseWidthUs).Draw(t, "rangeUs")

		normal := scalePulseWidth(valueUs, center, rangeUs, false)
		inverted := scalePulseWidth(valueUs, center, rangeUs, true)
		reflected := uint8(255) - inverted
		assert.InDelta(t, int(normal), int(reflected), 1)
	})
}

func TestScalePcmByteRoundTripsWhenNotInverted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint8().Draw(t, "v")
		assert.Equal(t, v, scalePcmByte(v, false))
	})
}

func TestScalePcmByteInversionIsAnInvolution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint8().Draw(t, "v")
		assert.Equal(t, v, scalePcmByte(scalePcmByte(v, true), true))
	})
}

func TestCalculatePcmChecksumIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint8().Draw(t, "v")
		c1 := calculatePcmChecksum(v)
		c2 := calculatePcmChecksum(v)
		assert.Equal(t, c1, c2)
		assert.LessOrEqual(t, c1, uint8(3))
	})
}

func TestCrc16AppendedTrailerAlwaysValidates(t *testing.T) {
	// Appending a payload's own CRC-16 as a big-endian trailer always
	// makes the payload+trailer pair self-consistent, the property the
	// SRXL frame validator relies on.
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(t, "n")
		payload := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "payload")

		crc := crc16CcittFalse(payload)
		framed := append(append([]byte{}, payload...), byte(crc>>8), byte(crc))

		got := getUint16BE(framed[len(framed)-2:])
		assert.Equal(t, crc16CcittFalse(framed[:len(framed)-2]), got)
	})
}

func TestSrxlDataToUsStaysWithinNominalRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint16().Draw(t, "v")
		us := srxlDataToUs(v)
		assert.GreaterOrEqual(t, us, uint16(800))
		assert.LessOrEqual(t, us, uint16(2200))
	})
}

func TestArbiterPriorityIsAlwaysStable(t *testing.T) {
	// Regardless of which subset of decoders is currently receiving,
	// Update must pick PPM over PCM over SRXL over None.
	rapid.Check(t, func(t *rapid.T) {
		ppmUp := rapid.Bool().Draw(t, "ppmUp")
		pcmUp := rapid.Bool().Draw(t, "pcmUp")
		srxlUp := rapid.Bool().Draw(t, "srxlUp")

		timer := NewSimulatedTimer()
		ppm := NewPpmDecoder(timer)
		pcm := NewPcmDecoder(timer)
		srxl := NewSrxlDecoder(timer)
		a := NewArbiter(ppm, pcm, srxl, DefaultConfiguration())

		if ppmUp {
			driveNominalPpmFrame(timer, ppm)
		}
		if pcmUp {
			syncPcmDecoder(timer, pcm)
			for _, b := range []byte{0x12, 0x34, 0x56, 0x78} {
				injectPcmByte(timer, pcm, b, false)
			}
		}
		if srxlUp {
			srxl.OnSyncPause()
			feedSrxlFrame(timer, srxl, buildSrxlFrame(srxlHeaderV2, srxlChannelCountV2, 0x0800))
		}

		a.Update()

		switch {
		case ppmUp:
			assert.Equal(t, SignalSourcePPM, a.SignalSource())
		case pcmUp:
			assert.Equal(t, SignalSourcePCM, a.SignalSource())
		case srxlUp:
			assert.Equal(t, SignalSourceSRXL, a.SignalSource())
		default:
			assert.Equal(t, SignalSourceNone, a.SignalSource())
		}
	})
}
