package main

/*------------------------------------------------------------------
 *
 * Purpose:	Hardware-attached bridge: reads PPM off a GPIO line and
 *		SRXL off a USB-serial adapter, arbitrates them, and
 *		republishes the resulting joystick report over a pty
 *		line protocol so a host-side HID gadget driver (or a
 *		test harness) can read it without touching this process
 *		directly.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"

	"github.com/rc-hacks/rcjoybridge/hw/discover"
	"github.com/rc-hacks/rcjoybridge/hw/eepromfile"
	"github.com/rc-hacks/rcjoybridge/hw/gpiotimer"
	"github.com/rc-hacks/rcjoybridge/hw/srxluart"
	"github.com/rc-hacks/rcjoybridge/rcjoy"
)

func main() {
	gpioChip := pflag.String("gpio-chip", "gpiochip0", "GPIO character device holding the PPM input line")
	gpioLine := pflag.Int("gpio-line", 17, "Offset of the PPM input line on --gpio-chip")
	srxlDevice := pflag.String("srxl-device", "", "SRXL UART device path (autodetected via USB vendor/product if empty)")
	srxlVendorID := pflag.String("srxl-vendor-id", "0403", "USB vendor ID to search for when --srxl-device is empty")
	srxlProductID := pflag.String("srxl-product-id", "6001", "USB product ID to search for when --srxl-device is empty")
	eepromPath := pflag.String("eeprom-file", "rcjoy-eeprom.cbor", "On-disk EEPROM image")
	ptyName := pflag.StringP("pty-name", "p", "", "Symlink path created pointing at the report pty (empty disables the symlink)")
	traceFile := pflag.String("trace-file", "", "strftime pattern for a rotating trace log, e.g. rcjoy-%Y%m%d.log (empty disables tracing)")
	pollInterval := pflag.Duration("poll-interval", time.Millisecond, "How often to call Arbiter.Update and publish a report")
	verbose := pflag.BoolP("verbose", "v", false, "Enable debug-level logging")
	help := pflag.Bool("help", false, "Display help text")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "rcjoy-bridge - hardware-attached PPM/SRXL to joystick report bridge")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	logger := log.New(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(logger, bridgeOptions{
		gpioChip:      *gpioChip,
		gpioLine:      *gpioLine,
		srxlDevice:    *srxlDevice,
		srxlVendorID:  *srxlVendorID,
		srxlProductID: *srxlProductID,
		eepromPath:    *eepromPath,
		ptyName:       *ptyName,
		traceFile:     *traceFile,
		pollInterval:  *pollInterval,
	}); err != nil {
		logger.Error("bridge exited with error", "err", err)
		os.Exit(1)
	}
}

type bridgeOptions struct {
	gpioChip      string
	gpioLine      int
	srxlDevice    string
	srxlVendorID  string
	srxlProductID string
	eepromPath    string
	ptyName       string
	traceFile     string
	pollInterval  time.Duration
}

func run(logger *log.Logger, opts bridgeOptions) error {
	store := eepromfile.New(opts.eepromPath)
	cfg, err := store.Load()
	if err != nil {
		logger.Warn("eeprom image unreadable, using defaults", "err", err)
		cfg = rcjoy.DefaultConfiguration()
	}

	timer, err := gpiotimer.Open(opts.gpioChip, opts.gpioLine)
	if err != nil {
		return fmt.Errorf("open ppm gpio line: %w", err)
	}
	defer timer.Close()

	ppm := rcjoy.NewPpmDecoder(timer)
	timer.SetCompareHandler(rcjoy.CompareB, ppm.OnOutputCompare)

	srxlDevice := opts.srxlDevice
	if srxlDevice == "" {
		srxlDevice, err = discover.FindByIDs(opts.srxlVendorID, opts.srxlProductID)
		if err != nil {
			return fmt.Errorf("discover srxl adapter: %w", err)
		}
		logger.Info("discovered srxl adapter", "device", srxlDevice)
	}
	uart, err := srxluart.Open(srxlDevice)
	if err != nil {
		return fmt.Errorf("open srxl uart: %w", err)
	}
	defer uart.Close()

	// SRXL shares the same free-running timer as PPM: its compare C
	// (sync pause) and PPM's compare B (sync detect) are independent
	// slots on the one Timer, and both need a clock that actually
	// advances in real time, which only gpiotimer.Timer provides.
	srxl := rcjoy.NewSrxlDecoder(timer)
	timer.SetCompareHandler(rcjoy.CompareC, srxl.OnSyncPause)
	go func() {
		if err := uart.Run(srxl); err != nil {
			logger.Error("srxl reader stopped", "err", err)
		}
	}()

	arbiter := rcjoy.NewArbiter(ppm, nil, srxl, cfg)
	arbiter.SetConfiguration(cfg)
	arbiter.SetLogger(logger)

	reportPty, reportTty, err := pty.Open()
	if err != nil {
		return fmt.Errorf("open report pty: %w", err)
	}
	defer reportPty.Close()
	defer reportTty.Close()
	logger.Info("joystick report pty ready", "path", reportTty.Name())

	if opts.ptyName != "" {
		_ = os.Remove(opts.ptyName)
		if err := os.Symlink(reportTty.Name(), opts.ptyName); err != nil {
			logger.Warn("could not create pty symlink", "path", opts.ptyName, "err", err)
		} else {
			defer os.Remove(opts.ptyName)
		}
	}

	tracer, err := newTracer(opts.traceFile)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	defer tracer.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(opts.pollInterval)
	defer ticker.Stop()

	// RunTask is the 1ms task-tick every decoder's timeout counter is
	// defined in terms of; it must fire on a fixed 1ms cadence of its
	// own, independent of --poll-interval.
	taskTick := time.NewTicker(time.Millisecond)
	defer taskTick.Stop()

	for {
		select {
		case <-sigCh:
			logger.Info("shutting down")
			return nil
		case <-taskTick.C:
			ppm.RunTask()
			srxl.RunTask()
		case <-ticker.C:
			arbiter.Update()
			report := arbiter.JoystickReport()
			if _, err := reportPty.Write(report.MarshalBinary()); err != nil {
				logger.Warn("report write failed", "err", err)
			}
			if arbiter.HasNewData() {
				tracer.Trace(arbiter)
				arbiter.ClearNewData()
			}
		}
	}
}

// tracer appends one hex-encoded enhanced-report line per frame to a
// rotating log file, named according to a strftime pattern the way the
// teacher's own log rotation does for capture files.
type tracer struct {
	pattern string
	path    string
	f       *os.File
}

func newTracer(pattern string) (*tracer, error) {
	if pattern == "" {
		return &tracer{}, nil
	}
	if _, err := strftime.Format(pattern, time.Now()); err != nil {
		return nil, fmt.Errorf("parse trace file pattern: %w", err)
	}
	return &tracer{pattern: pattern}, nil
}

func (t *tracer) Trace(a *rcjoy.Arbiter) {
	if t.pattern == "" {
		return
	}
	path, err := strftime.Format(t.pattern, time.Now())
	if err != nil {
		return
	}
	if path != t.path {
		if t.f != nil {
			t.f.Close()
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		t.f = f
		t.path = path
	}
	report := a.EnhancedReport()
	fmt.Fprintf(t.f, "%s %s\n", time.Now().Format(time.RFC3339Nano), hex.EncodeToString(report.MarshalBinary()))
}

func (t *tracer) Close() {
	if t.f != nil {
		t.f.Close()
	}
}
