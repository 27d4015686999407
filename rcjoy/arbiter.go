package rcjoy

import (
	"github.com/charmbracelet/log"
)

/*-------------------------------------------------------------------
 *
 * Name:	Arbiter
 *
 * Purpose:	Foreground-called, non-ISR: picks whichever decoder is
 *		live, maps input channels to output channels, and
 *		scales raw values to 8-bit joystick axes. Priority order
 *		PPM > PCM > SRXL is the arbitration contract.
 *
 *--------------------------------------------------------------*/

// Arbiter owns the three decoders and the active Configuration. It has
// no ISR-safety requirement itself - Update is called from the
// cooperative foreground loop.
type Arbiter struct {
	ppm  *PpmDecoder
	pcm  *PcmDecoder
	srxl *SrxlDecoder

	cfg Configuration

	// logger is optional and nil-safe: the arbiter never requires a
	// logger to function, keeping callers free to use it headless
	// in tests.
	logger *log.Logger

	source SignalSource
}

// NewArbiter wires the three decoders together under one Configuration.
func NewArbiter(ppm *PpmDecoder, pcm *PcmDecoder, srxl *SrxlDecoder, cfg Configuration) *Arbiter {
	return &Arbiter{ppm: ppm, pcm: pcm, srxl: srxl, cfg: cfg, source: SignalSourceNone}
}

// SetLogger attaches a structured logger used to trace source changes;
// pass nil to disable tracing.
func (a *Arbiter) SetLogger(logger *log.Logger) { a.logger = logger }

// SetConfiguration replaces the active Configuration, falling back to
// defaults if it is invalid, and pushes the sync-width/polarity
// settings down to the PPM/PCM decoders.
func (a *Arbiter) SetConfiguration(cfg Configuration) {
	a.cfg = LoadOrDefault(cfg)
	if a.ppm != nil {
		a.ppm.SetConfiguration(a.cfg.MinSyncPulseWidthUs, a.cfg.InvertedSignal())
	}
	if a.pcm != nil {
		a.pcm.SetConfiguration(a.cfg.InvertedSignal())
	}
}

// Configuration returns the currently active configuration.
func (a *Arbiter) Configuration() Configuration { return a.cfg }

// Update performs source selection. In priority order PPM > PCM > SRXL,
// the first decoder with IsReceiving() true becomes the active source;
// otherwise the source is None. This priority order is fixed.
func (a *Arbiter) Update() {
	next := SignalSourceNone
	switch {
	case a.ppm != nil && a.ppm.IsReceiving():
		next = SignalSourcePPM
	case a.pcm != nil && a.pcm.IsReceiving():
		next = SignalSourcePCM
	case a.srxl != nil && a.srxl.IsReceiving():
		next = SignalSourceSRXL
	}

	if next != a.source && a.logger != nil {
		a.logger.Info("signal source changed", "from", a.source, "to", next)
	}
	a.source = next
}

// SignalSource returns the currently active source, as published by
// the most recent Update call.
func (a *Arbiter) SignalSource() SignalSource { return a.source }

// ChannelCount returns the active decoder's channel count, or 0 if no
// source is active.
func (a *Arbiter) ChannelCount() uint8 {
	switch a.source {
	case SignalSourcePPM:
		return a.ppm.ChannelCount()
	case SignalSourcePCM:
		return a.pcm.ChannelCount()
	case SignalSourceSRXL:
		return a.srxl.ChannelCount()
	default:
		return 0
	}
}

// channelPulseWidthUs returns the raw input value, in microseconds,
// for input channel index, from whichever decoder is active. PCM does
// not have a natural microsecond value; callers that need PCM's raw
// byte should use channelPcmByte instead.
func (a *Arbiter) channelPulseWidthUs(index uint8) uint16 {
	switch a.source {
	case SignalSourcePPM:
		return a.ppm.GetChannelPulseWidth(index)
	case SignalSourceSRXL:
		return a.srxl.GetChannelData(index)
	default:
		return 0
	}
}

func (a *Arbiter) channelPcmByte(index uint8) byte {
	return a.pcm.GetChannelData(index)
}

// GetChannelValue returns output channel c's scaled 8-bit joystick
// value: map to an input channel, then scale.
func (a *Arbiter) GetChannelValue(c uint8) uint8 {
	if int(c) >= len(a.cfg.Mapping) {
		return 0x80
	}
	index := a.cfg.Mapping[c]

	if a.source == SignalSourcePCM {
		return scalePcmByte(a.channelPcmByte(index), a.polarityBit(c))
	}

	us := a.channelPulseWidthUs(index)
	return scalePulseWidth(us, a.cfg.CenterChannelPulseWidthUs, a.cfg.ChannelPulseWidthRangeUs, a.polarityBit(c))
}

// GetChannelRawUs returns output channel c's raw input value in
// microseconds (0 for PCM, which has no natural microsecond value, and
// for "no data").
func (a *Arbiter) GetChannelRawUs(c uint8) uint16 {
	if int(c) >= len(a.cfg.Mapping) || a.source == SignalSourcePCM {
		return 0
	}
	return a.channelPulseWidthUs(a.cfg.Mapping[c])
}

func (a *Arbiter) polarityBit(c uint8) bool {
	return a.cfg.Polarity&(1<<c) != 0
}

// scalePulseWidth scales a PPM/SRXL microsecond value to an 8-bit
// joystick axis:
//
//	v = value_us - center; if polarity set, negate.
//	out = 128 + 128*v/range, saturated to [0,255].
//	Input 0 (no data) maps to 0x80.
func scalePulseWidth(valueUs, center, rangeUs uint16, inverted bool) uint8 {
	if valueUs == 0 {
		return 0x80
	}
	v := int32(valueUs) - int32(center)
	if inverted {
		v = -v
	}
	out := 128 + 128*v/int32(rangeUs)
	return saturate8(out)
}

// scalePcmByte scales a PCM byte to an 8-bit joystick axis: the
// received byte *is* the 8-bit value; inversion reflects it around
// 0x80.
func scalePcmByte(value byte, inverted bool) uint8 {
	if !inverted {
		return value
	}
	v := 128 - (int32(value) - 128)
	return saturate8(v)
}

func saturate8(v int32) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// HasNewData is true iff the currently active decoder reports it.
func (a *Arbiter) HasNewData() bool {
	switch a.source {
	case SignalSourcePPM:
		return a.ppm.HasNewData()
	case SignalSourcePCM:
		return a.pcm.HasNewData()
	case SignalSourceSRXL:
		return a.srxl.HasNewData()
	default:
		return false
	}
}

// ClearNewData clears the new-data flag on all decoders, not just the
// active one.
func (a *Arbiter) ClearNewData() {
	if a.ppm != nil {
		a.ppm.ClearNewData()
	}
	if a.pcm != nil {
		a.pcm.ClearNewData()
	}
	if a.srxl != nil {
		a.srxl.ClearNewData()
	}
}

// JoystickReport builds HID report id 1 from the current arbiter state.
func (a *Arbiter) JoystickReport() JoystickReport {
	var r JoystickReport
	r.ReportID = JoystickReportID
	for i := range r.Channel {
		r.Channel[i] = a.GetChannelValue(uint8(i))
	}
	return r
}

// EnhancedReport builds HID report id 2 from the current arbiter state.
func (a *Arbiter) EnhancedReport() EnhancedReport {
	var r EnhancedReport
	r.ReportID = EnhancedReportID
	r.SignalSource = a.source
	r.ChannelCount = a.ChannelCount()
	for i := range r.ChannelUs {
		r.ChannelUs[i] = a.GetChannelRawUs(uint8(i))
	}
	return r
}
