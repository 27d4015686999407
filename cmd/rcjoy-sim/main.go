package main

/*------------------------------------------------------------------
 *
 * Purpose:	Software-only simulator: drives a SimulatedTimer and the
 *		PPM decoder from either a canned script or interactive
 *		single-keystroke input, and prints the resulting joystick
 *		report - no hardware required. The PCM and SRXL decoders
 *		are attached to the arbiter but receive no input.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pkg/term"
	"github.com/spf13/pflag"

	"github.com/rc-hacks/rcjoybridge/rcjoy"
)

func main() {
	interactive := pflag.BoolP("interactive", "i", false, "Inject edges from the keyboard instead of running the built-in script")
	verbose := pflag.BoolP("verbose", "v", false, "Log every arbiter source change")
	help := pflag.Bool("help", false, "Display help text")
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "rcjoy-sim - drive the rcjoy decoders without any hardware")
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

	timer := rcjoy.NewSimulatedTimer()
	ppm := rcjoy.NewPpmDecoder(timer)
	pcm := rcjoy.NewPcmDecoder(timer)
	srxl := rcjoy.NewSrxlDecoder(timer)

	arbiter := rcjoy.NewArbiter(ppm, pcm, srxl, rcjoy.DefaultConfiguration())
	arbiter.SetLogger(logger)

	if *interactive {
		runInteractive(arbiter, timer, ppm, logger)
		return
	}
	runScript(arbiter, timer, ppm, logger)
}

// runScript feeds one nominal PPM frame and prints the resulting
// joystick report, a quick smoke test for the decode-then-scale path.
func runScript(arbiter *rcjoy.Arbiter, timer *rcjoy.SimulatedTimer, ppm *rcjoy.PpmDecoder, logger *log.Logger) {
	ppm.OnOutputCompare() // force the initial sync, as a real compare-match would
	advanceAndCapture(timer, ppm, 3500)

	channels := []uint16{1000, 1500, 2000, 1000, 1500, 2000, 1000}
	for _, us := range channels {
		advanceAndCapture(timer, ppm, us)
	}
	ppm.OnOutputCompare()
	arbiter.Update()

	report := arbiter.JoystickReport()
	logger.Info("frame decoded", "source", arbiter.SignalSource(), "channels", arbiter.ChannelCount())
	fmt.Printf("report id=%d channels=%v\n", report.ReportID, report.Channel)
}

// runInteractive reads single keystrokes and injects a fixed pulse
// width per key, so a person can walk through sync/channel transitions
// by hand. The 1ms task tick is not driven, so the decoder never times
// out here.
func runInteractive(arbiter *rcjoy.Arbiter, timer *rcjoy.SimulatedTimer, ppm *rcjoy.PpmDecoder, logger *log.Logger) {
	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		logger.Error("could not open controlling terminal", "err", err)
		os.Exit(1)
	}
	defer tty.Restore()
	defer tty.Close()

	fmt.Println("s = sync pulse (3500us), c = channel pulse (1500us), q = quit")
	buf := make([]byte, 1)
	for {
		n, err := tty.Read(buf)
		if err != nil || n == 0 {
			return
		}
		switch buf[0] {
		case 'q':
			return
		case 's':
			ppm.OnOutputCompare() // the sync gap is where a real compare-match fires
			advanceAndCapture(timer, ppm, 3500)
		case 'c':
			advanceAndCapture(timer, ppm, 1500)
			arbiter.Update()
			fmt.Printf("\rchannel_count=%d source=%s", arbiter.ChannelCount(), arbiter.SignalSource())
		}
	}
}

func advanceAndCapture(timer *rcjoy.SimulatedTimer, ppm *rcjoy.PpmDecoder, intervalUs uint16) {
	target := timer.Now() + timer.UsToTicks(intervalUs)
	timer.CaptureEdgeAt(target)
	ppm.OnInputCapture()
}
