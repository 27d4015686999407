package rcjoy

import "sync/atomic"

/*-------------------------------------------------------------------
 *
 * Name:	PpmDecoder
 *
 * Purpose:	Recover N pulse widths per frame from a single-wire
 *		pulse-position stream.
 *
 * Description:	PPM encodes N channels as N+1 edges of the chosen
 *		polarity separated by 900-2100us pulses, terminated by
 *		a sync pause >= MinSyncPulseWidthUs. WaitingForSync
 *		waits for a compare match (no edge within the sync
 *		window); the first edge after that moves SyncDetected
 *		to ReceivingData; ReceivingData records one pulse
 *		width per following edge until the next sync pause
 *		flips the bank and publishes the frame.
 *
 *--------------------------------------------------------------*/

const (
	PpmMinChannelCount           = 4
	PpmMaxChannelCount           = 9
	PpmDefaultSyncPulseWidthUs   = 3500
	ppmTimeoutMs                 = 100
)

// PpmDecoder is safe for one writer (the event-delivery side:
// OnInputCapture/OnOutputCompare/RunTask) and any number of concurrent
// readers (GetChannelPulseWidth/IsReceiving/...).
type PpmDecoder struct {
	timer CaptureTimer

	minSyncPulseWidth atomic.Uint32 // ticks, stored as uint32 for atomic width
	invertedSignal    atomic.Bool

	state         decoderState
	timeOfLastEdge uint16
	currentChannel uint8

	buf *doubleBuffer[uint16]

	channelCount   atomic.Uint32
	isReceiving    atomic.Bool
	timeoutCounter atomic.Uint32
}

// NewPpmDecoder creates a decoder bound to the given timer. The caller
// must still call SetConfiguration (or rely on the defaults applied
// here) before delivering events.
func NewPpmDecoder(timer CaptureTimer) *PpmDecoder {
	d := &PpmDecoder{
		timer: timer,
		buf:   newDoubleBuffer[uint16](PpmMaxChannelCount),
	}
	d.minSyncPulseWidth.Store(uint32(timer.UsToTicks(PpmDefaultSyncPulseWidthUs)))
	d.Reset()
	return d
}

// SetConfiguration applies the sync-pulse threshold from the
// Configuration, records the input polarity, and re-arms the compare
// channel. The recorded polarity does not select the capture edge: the
// decoder never calls SetCaptureEdge, so it handles whichever edge the
// timer delivers.
func (d *PpmDecoder) SetConfiguration(minSyncPulseWidthUs uint16, invertedSignal bool) {
	d.minSyncPulseWidth.Store(uint32(d.timer.UsToTicks(minSyncPulseWidthUs)))
	d.invertedSignal.Store(invertedSignal)
	d.timer.ScheduleCompare(CompareB, d.timer.Now()+uint16(d.minSyncPulseWidth.Load()))
	d.Reset()
}

// Reset returns the decoder to its initial state.
func (d *PpmDecoder) Reset() {
	d.state = stateWaitingForSync
	d.currentChannel = 0
	d.channelCount.Store(0)
	d.isReceiving.Store(false)
	d.buf.clearNew()
}

// RunTask is the 1ms task-tick handler (compare A). After 100ms
// without a completed frame, the decoder resets and is_receiving
// drops.
func (d *PpmDecoder) RunTask() {
	if d.timeoutCounter.Add(1) >= ppmTimeoutMs {
		d.timeoutCounter.Store(0)
		d.Reset()
	}
}

func (d *PpmDecoder) IsReceiving() bool  { return d.isReceiving.Load() }
func (d *PpmDecoder) HasNewData() bool   { return d.buf.hasNew() }
func (d *PpmDecoder) ClearNewData()      { d.buf.clearNew() }
func (d *PpmDecoder) ChannelCount() uint8 { return uint8(d.channelCount.Load()) }

// GetChannelPulseWidth returns the pulse width in microseconds for
// channel ch, or 0 if ch is beyond the current channel count.
func (d *PpmDecoder) GetChannelPulseWidth(ch uint8) uint16 {
	if ch >= uint8(d.channelCount.Load()) {
		return 0
	}
	return d.timer.TicksToUs(d.buf.readBank()[ch])
}

// OnInputCapture is the capture-edge ISR handler. Every capture
// re-arms the sync-pause compare for now+minSyncPulseWidth: a compare
// match therefore means "no edge arrived within that window," which is
// exactly the protocol's inter-frame gap.
func (d *PpmDecoder) OnInputCapture() {
	now := d.timer.LastCapture()
	d.timer.ScheduleCompare(CompareB, now+uint16(d.minSyncPulseWidth.Load()))
	d.processEdge(now)
}

func (d *PpmDecoder) processEdge(now uint16) {
	diff := now - d.timeOfLastEdge
	d.timeOfLastEdge = now

	switch d.state {
	case stateSyncDetected:
		d.state = stateReceivingData
		d.currentChannel = 0
	case stateReceivingData:
		if d.currentChannel < PpmMaxChannelCount {
			d.buf.writeBank()[d.currentChannel] = diff
			d.currentChannel++
		}
	}
}

// OnOutputCompare is the sync-pause compare-match handler (compare B).
func (d *PpmDecoder) OnOutputCompare() {
	if d.state == stateReceivingData {
		d.finishFrame()
	}
	d.state = stateSyncDetected
}

func (d *PpmDecoder) finishFrame() {
	currentChannel := d.currentChannel
	if currentChannel >= PpmMinChannelCount {
		d.timeoutCounter.Store(0)
		d.buf.flip()
		d.channelCount.Store(uint32(currentChannel))
		d.isReceiving.Store(true)
	}
}
