package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/wavecap/internal/wave"
)

// encodeCSV renders the plain CSV format: a comment header describing the
// capture, a column header row, and one row per sample. Time is scientific
// notation, voltage fixed-point, both with six fractional digits.
func encodeCSV(w *wave.Waveform, exportedAt time.Time) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Description: %s\n", w.Description)
	fmt.Fprintf(&b, "# Capture Time: %s\n", timestamp(w.CapturedAt))
	fmt.Fprintf(&b, "# Channel: %d\n", w.Channel)
	fmt.Fprintf(&b, "# Sample Count: %d\n", w.Samples())
	fmt.Fprintf(&b, "# Format: %s\n", FormatCSV.Tag())
	fmt.Fprintf(&b, "# Export Time: %s\n", timestamp(exportedAt))
	b.WriteString("Time (s),Voltage (V)\n")

	for i := range w.Volts {
		fmt.Fprintf(&b, "%.6e,%.6f\n", w.Times[i], w.Volts[i])
	}
	return []byte(b.String())
}
