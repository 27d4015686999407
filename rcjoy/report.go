package rcjoy

import "encoding/binary"

/*-------------------------------------------------------------------
 *
 * Name:	JoystickReport, EnhancedReport
 *
 * Purpose:	The two read-only HID reports the USB collaborator
 *		serves to the host. This package never touches USB; it
 *		only produces the bytes the collaborator would put on
 *		the wire.
 *
 *--------------------------------------------------------------*/

const (
	JoystickReportID = 1
	EnhancedReportID = 2

	joystickReportChannels = 7
)

// JoystickReport is HID report id 1: seven 8-bit channel values.
type JoystickReport struct {
	ReportID byte
	Channel  [joystickReportChannels]byte
}

// MarshalBinary encodes the report the way the USB collaborator would
// place it in an IN endpoint buffer: report ID followed by the raw
// channel bytes, no padding.
func (r JoystickReport) MarshalBinary() []byte {
	buf := make([]byte, 1+joystickReportChannels)
	buf[0] = r.ReportID
	copy(buf[1:], r.Channel[:])
	return buf
}

// EnhancedReport is HID report id 2: signal source, channel count, and
// per-channel microsecond values, for host-side diagnostics/tuning
// tools that want more than the 8-bit joystick axes.
type EnhancedReport struct {
	ReportID     byte
	SignalSource SignalSource
	ChannelCount uint8
	ChannelUs    [MaxOutputChannels]uint16
}

// MarshalBinary encodes the enhanced report as report ID, source,
// count, then little-endian uint16 per channel, a fixed-width packed
// layout matching every other feature/IN report this package produces.
func (r EnhancedReport) MarshalBinary() []byte {
	buf := make([]byte, 3+2*MaxOutputChannels)
	buf[0] = r.ReportID
	buf[1] = byte(r.SignalSource)
	buf[2] = r.ChannelCount
	for i, us := range r.ChannelUs {
		binary.LittleEndian.PutUint16(buf[3+2*i:], us)
	}
	return buf
}
