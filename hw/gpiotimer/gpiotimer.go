// Package gpiotimer implements rcjoy.CaptureTimer on top of a Linux
// GPIO character-device line, so a real receiver signal wired to a
// GPIO pin can drive the same decoders the tests exercise with
// rcjoy.SimulatedTimer.
package gpiotimer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/rc-hacks/rcjoybridge/rcjoy"
)

/*-------------------------------------------------------------------
 *
 * Name:	Timer
 *
 * Purpose:	A CaptureTimer driven by a real GPIO input line. The
 *		tick counter is a free-running 16-bit count derived from
 *		a monotonic wall-clock reference at the nominal 2
 *		ticks/us rate, so TicksToUs/UsToTicks behave exactly like
 *		rcjoy.SimulatedTimer; only the source of Now() and edge
 *		events differs.
 *
 *--------------------------------------------------------------*/

type Timer struct {
	chip  *gpiocdev.Line
	epoch time.Time
	stop  chan struct{}

	mu           sync.Mutex
	compare      [3]uint16
	compareArmed [3]bool
	compareFn    [3]func()

	lastCapture atomic.Uint32 // uint16 stored widened
	captureEdge atomic.Bool
}

// Open requests offset on chipName (e.g. "gpiochip0") as an input with
// edge detection, and starts the free-running tick epoch.
func Open(chipName string, offset int) (*Timer, error) {
	t := &Timer{epoch: time.Now(), stop: make(chan struct{})}
	t.captureEdge.Store(true)

	line, err := gpiocdev.RequestLine(chipName, offset,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(t.onEvent))
	if err != nil {
		return nil, fmt.Errorf("gpiotimer: request %s:%d: %w", chipName, offset, err)
	}
	t.chip = line
	go t.pollCompares()
	return t, nil
}

// pollCompares catches compares that would otherwise only fire on the
// next edge - which never comes when the line has gone quiet, exactly
// the case a sync-pause compare exists to detect.
func (t *Timer) pollCompares() {
	ticker := time.NewTicker(500 * time.Microsecond)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.firePendingCompares(t.Now())
		}
	}
}

func (t *Timer) onEvent(evt gpiocdev.LineEvent) {
	rising := evt.Type == gpiocdev.LineEventRisingEdge
	if rising != t.captureEdge.Load() {
		return
	}

	tick := t.tickAt(time.Duration(evt.Timestamp))
	t.lastCapture.Store(uint32(tick))
	t.firePendingCompares(tick)
}

func (t *Timer) tickAt(since time.Duration) uint16 {
	us := since.Microseconds()
	return uint16(uint32(us) * nominalTicksPerUs)
}

const nominalTicksPerUs = 2

func (t *Timer) Now() uint16 {
	return t.tickAt(time.Since(t.epoch))
}

func (t *Timer) ScheduleCompare(ch rcjoy.CompareChannel, tick uint16) {
	t.mu.Lock()
	t.compare[ch] = tick
	t.compareArmed[ch] = true
	t.mu.Unlock()
}

// SetCompareHandler registers the callback fired when ch's scheduled
// tick is reached by an observed edge or by the background poller.
// Decoders that only ever arm a compare and expect RunTask to check it
// (rather than a push callback) can leave this unset.
func (t *Timer) SetCompareHandler(ch rcjoy.CompareChannel, fn func()) {
	t.mu.Lock()
	t.compareFn[ch] = fn
	t.mu.Unlock()
}

func (t *Timer) firePendingCompares(now uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ch := range t.compare {
		if !t.compareArmed[ch] {
			continue
		}
		if now-t.compare[ch] < 1<<15 {
			t.compareArmed[ch] = false
			if fn := t.compareFn[ch]; fn != nil {
				fn()
			}
		}
	}
}

func (t *Timer) SetCaptureEdge(rising bool) { t.captureEdge.Store(rising) }

func (t *Timer) LastCapture() uint16 { return uint16(t.lastCapture.Load()) }

func (t *Timer) TicksToUs(ticks uint16) uint16 { return ticks / nominalTicksPerUs }
func (t *Timer) UsToTicks(us uint16) uint16    { return us * nominalTicksPerUs }

// Close stops the compare poller and releases the GPIO line.
func (t *Timer) Close() error {
	close(t.stop)
	return t.chip.Close()
}
