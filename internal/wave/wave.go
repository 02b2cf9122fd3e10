// Package wave defines the captured waveform record and the conversion from
// raw digitizer codes to physical voltage and time values.
package wave

import (
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/wavecap/internal/preamble"
)

// Waveform is one completed capture. It is assembled once by the capture
// controller and treated as immutable afterwards: the store hands out the
// same pointers to every reader, and exporters only read.
type Waveform struct {
	// ID is a UUIDv7 assigned at capture completion, sortable by time.
	ID string

	// Channel is the 1-based source channel on the instrument.
	Channel int

	// CapturedAt is the wall-clock completion time of the capture.
	CapturedAt time.Time

	// Raw holds the unscaled digitizer codes as received. Empty on a
	// zero-sample capture.
	Raw []byte

	// Volts and Times are the converted sequences. When populated they are
	// the same length as Raw.
	Volts []float64
	Times []float64

	// Calibration is the record used for this capture, retained so the
	// waveform is self-describing for later export.
	Calibration preamble.Record

	// Description is a free-text label, NFC-normalized.
	Description string
}

// Samples returns the number of samples in the waveform.
func (w *Waveform) Samples() int {
	return len(w.Volts)
}

// SetDescription stores desc in NFC normal form so that exports and journal
// rows are byte-stable regardless of how the label was typed.
func (w *Waveform) SetDescription(desc string) {
	w.Description = norm.NFC.String(desc)
}

// Convert maps raw digitizer codes to parallel voltage and time sequences
// using the calibration record rec.
//
// Per sample index i:
//
//	volts[i] = (raw[i] - yreference) * yincrement + yorigin
//	times[i] = xorigin + i * xincrement
//
// Fields absent from rec fall back to the documented defaults individually,
// not wholesale. Convert is pure and total: an empty input yields empty
// (non-nil) outputs.
func Convert(raw []byte, rec preamble.Record) (volts, times []float64) {
	yinc := rec.FieldOr(preamble.FieldYIncrement, preamble.DefaultYIncrement)
	yorg := rec.FieldOr(preamble.FieldYOrigin, preamble.DefaultYOrigin)
	yref := rec.FieldOr(preamble.FieldYReference, preamble.DefaultYReference)
	xinc := rec.FieldOr(preamble.FieldXIncrement, preamble.DefaultXIncrement)
	xorg := rec.FieldOr(preamble.FieldXOrigin, preamble.DefaultXOrigin)

	volts = make([]float64, len(raw))
	times = make([]float64, len(raw))
	for i, code := range raw {
		volts[i] = (float64(code)-yref)*yinc + yorg
		times[i] = xorg + float64(i)*xinc
	}
	return volts, times
}
