/*-------------------------------------------------------------------
 *
 * Package:	rcjoy
 *
 * Purpose:	Decode a hobby R/C receiver's PPM, PCM, or SRXL serial
 *		output into joystick channel values.
 *
 * Description:	Three concurrent decoders (PPM, PCM, SRXL) consume
 *		edge-capture, byte-arrival, and compare-match events
 *		exactly as an interrupt service routine would, double-
 *		buffer completed frames, and hand the result to an
 *		Arbiter that picks whichever source is currently live
 *		and scales its channel values into 8-bit joystick axes.
 *
 *		Nothing in this package touches USB, EEPROM, or a real
 *		timer/UART; those are external collaborators reached
 *		through the CaptureTimer and EepromStore interfaces so
 *		the decoders can be driven by a simulated clock in
 *		tests and by real hardware adapters (see the hw/
 *		packages) in production.
 *
 *-----------------------------------------------------------------*/
package rcjoy
