package rcjoy

import "sync/atomic"

/*-------------------------------------------------------------------
 *
 * Name:	doubleBuffer
 *
 * Purpose:	Two fixed-capacity frames plus a bank index. The writer
 *		(ISR side) always writes bank currentBank; the reader (foreground)
 *		always reads bank currentBank^1. Flipping the index is
 *		a single atomic store, so the reader never observes a
 *		bank that is still being written.
 *
 *--------------------------------------------------------------*/

// doubleBuffer holds two banks of T, a fixed-capacity channel value
// type (uint16 ticks for PPM, byte for PCM, uint16 code for SRXL).
type doubleBuffer[T any] struct {
	bank        [2][]T
	currentBank atomic.Uint32
	hasNewData  atomic.Bool
}

func newDoubleBuffer[T any](capacity int) *doubleBuffer[T] {
	return &doubleBuffer[T]{
		bank: [2][]T{make([]T, capacity), make([]T, capacity)},
	}
}

// writeBank returns the bank the decoder should currently be writing.
func (d *doubleBuffer[T]) writeBank() []T {
	return d.bank[d.currentBank.Load()]
}

// flip publishes the write bank to the reader: toggle the bank index
// and raise has-new-data. hasNewData is a release store here and an
// acquire load by the foreground reader.
func (d *doubleBuffer[T]) flip() {
	d.currentBank.Store(d.currentBank.Load() ^ 1)
	d.hasNewData.Store(true)
}

// readBank returns the bank the foreground should currently be
// reading - the bank the decoder is not writing.
func (d *doubleBuffer[T]) readBank() []T {
	return d.bank[d.currentBank.Load()^1]
}

func (d *doubleBuffer[T]) hasNew() bool { return d.hasNewData.Load() }

func (d *doubleBuffer[T]) clearNew() { d.hasNewData.Store(false) }
