// Package srxluart feeds a real UART byte stream into an
// rcjoy.SrxlDecoder.
package srxluart

import (
	"fmt"

	"github.com/daedaluz/goserial"

	"github.com/rc-hacks/rcjoybridge/rcjoy"
)

/*-------------------------------------------------------------------
 *
 * Name:	Source
 *
 * Purpose:	Opens the SRXL UART at 115200 8-N-1 and delivers every
 *		received byte to a decoder's OnByteReceived, the way a
 *		real UART RX interrupt would.
 *
 *--------------------------------------------------------------*/

type Source struct {
	port *serial.Port
}

// Open opens devicePath (e.g. "/dev/ttyUSB0") at rcjoy.SrxlBaudRate.
func Open(devicePath string) (*Source, error) {
	port, err := serial.Open(devicePath, nil)
	if err != nil {
		return nil, fmt.Errorf("srxluart: open %s: %w", devicePath, err)
	}

	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("srxluart: get attrs: %w", err)
	}
	attrs.MakeRaw()
	attrs.SetCustomSpeed(rcjoy.SrxlBaudRate)
	if err := port.SetAttr2(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("srxluart: set attrs: %w", err)
	}

	return &Source{port: port}, nil
}

// Run blocks reading bytes and delivering each one to d until Close is
// called from another goroutine, at which point the pending read fails
// and Run returns nil.
func (s *Source) Run(d *rcjoy.SrxlDecoder) error {
	buf := make([]byte, 64)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			if err == serial.ErrClosed {
				return nil
			}
			return fmt.Errorf("srxluart: read: %w", err)
		}
		for _, b := range buf[:n] {
			d.OnByteReceived(b)
		}
	}
}

// Close stops Run and releases the underlying file descriptor.
func (s *Source) Close() error {
	return s.port.Close()
}
