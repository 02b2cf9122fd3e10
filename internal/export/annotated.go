package export

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/wavecap/internal/preamble"
	"github.com/roach88/wavecap/internal/wave"
)

// yIncrementFloor guards the inverse voltage formula against division by a
// near-zero yincrement when reconstructing raw codes.
const yIncrementFloor = 1e-12

// fieldDocs describes each preamble position for the annotated header.
var fieldDocs = [preamble.NumFields]string{
	"format     - sample encoding (0=BYTE, 1=WORD, 2=ASCII)",
	"type       - acquisition type (0=NORMAL, 1=AVERAGE, 2=PEAK)",
	"points     - number of points in the record",
	"count      - number of averages per point",
	"xincrement - time delta between samples, seconds",
	"xorigin    - time of the first sample, seconds",
	"xreference - sample index of the time reference point",
	"yincrement - volts per raw code step",
	"yorigin    - voltage offset, volts",
	"yreference - raw code corresponding to yorigin",
}

// encodeAnnotated renders the annotated CSV: a comment block documenting
// every calibration field and the exact reconstruction formulas, the
// captured preamble values, then indexed rows that include the raw ADC code.
func encodeAnnotated(w *wave.Waveform, exportedAt time.Time) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Description: %s\n", w.Description)
	fmt.Fprintf(&b, "# Capture Time: %s\n", timestamp(w.CapturedAt))
	fmt.Fprintf(&b, "# Channel: %d\n", w.Channel)
	fmt.Fprintf(&b, "# Sample Count: %d\n", w.Samples())
	fmt.Fprintf(&b, "# Format: %s\n", FormatAnnotated.Tag())
	fmt.Fprintf(&b, "# Export Time: %s\n", timestamp(exportedAt))
	b.WriteString("#\n")
	b.WriteString("# Preamble fields:\n")
	for i, doc := range fieldDocs {
		fmt.Fprintf(&b, "#   [%d] %s\n", i, doc)
	}
	b.WriteString("#\n")
	b.WriteString("# Reconstruction:\n")
	b.WriteString("#   voltage = (raw - yreference) * yincrement + yorigin\n")
	b.WriteString("#   time    = xorigin + index * xincrement\n")
	b.WriteString("#\n")

	values := w.Calibration.Values()
	for i := 0; i < w.Calibration.Len(); i++ {
		fmt.Fprintf(&b, "# Preamble[%d]: %g\n", i, values[i])
	}

	b.WriteString("Index,Time,Voltage,RawADC\n")
	for i := range w.Volts {
		fmt.Fprintf(&b, "%d,%.6e,%.6f,%d\n", i, w.Times[i], w.Volts[i], rawCode(w, i))
	}
	return []byte(b.String())
}

// rawCode returns the true raw code for sample i when available, otherwise
// reconstructs it from voltage via the inverse of the voltage formula.
func rawCode(w *wave.Waveform, i int) int {
	if i < len(w.Raw) {
		return int(w.Raw[i])
	}

	yinc := w.Calibration.FieldOr(preamble.FieldYIncrement, preamble.DefaultYIncrement)
	yorg := w.Calibration.FieldOr(preamble.FieldYOrigin, preamble.DefaultYOrigin)
	yref := w.Calibration.FieldOr(preamble.FieldYReference, preamble.DefaultYReference)
	if math.Abs(yinc) < yIncrementFloor {
		return int(yref)
	}
	return int(math.Round((w.Volts[i]-yorg)/yinc + yref))
}
