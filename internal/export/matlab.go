package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/wavecap/internal/wave"
)

// vectorWrap is how many elements go on one line of a generated vector
// literal before wrapping.
const vectorWrap = 8

// encodeMATLAB renders a runnable MATLAB/Octave script: a comment header,
// time and voltage row vectors, a metadata struct, and commented plotting
// examples.
func encodeMATLAB(w *wave.Waveform, exportedAt time.Time) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "%% Waveform export generated by %s\n", SoftwareLabel)
	fmt.Fprintf(&b, "%% Description: %s\n", w.Description)
	fmt.Fprintf(&b, "%% Capture Time: %s\n", timestamp(w.CapturedAt))
	fmt.Fprintf(&b, "%% Channel: %d\n", w.Channel)
	fmt.Fprintf(&b, "%% Sample Count: %d\n", w.Samples())
	fmt.Fprintf(&b, "%% Export Time: %s\n", timestamp(exportedAt))
	b.WriteString("\n")

	writeVector(&b, "time", w.Times, "%.6e")
	b.WriteString("\n")
	writeVector(&b, "voltage", w.Volts, "%.6f")
	b.WriteString("\n")

	fmt.Fprintf(&b, "waveform_info = struct( ...\n")
	fmt.Fprintf(&b, "    'channel', %d, ...\n", w.Channel)
	fmt.Fprintf(&b, "    'capture_time', '%s', ...\n", matlabQuote(timestamp(w.CapturedAt)))
	fmt.Fprintf(&b, "    'sample_count', %d, ...\n", w.Samples())
	fmt.Fprintf(&b, "    'description', '%s');\n", matlabQuote(w.Description))
	b.WriteString("\n")

	b.WriteString("% Usage:\n")
	b.WriteString("%   plot(time, voltage);\n")
	b.WriteString("%   grid on;\n")
	b.WriteString("%   xlabel('Time (s)');\n")
	b.WriteString("%   ylabel('Voltage (V)');\n")
	fmt.Fprintf(&b, "%%   title('CH%d waveform');\n", w.Channel)

	return []byte(b.String())
}

// writeVector emits a row-vector assignment wrapped at vectorWrap elements
// per line, using MATLAB line continuations so the value stays a 1xN vector.
func writeVector(b *strings.Builder, name string, values []float64, valueFormat string) {
	if len(values) == 0 {
		fmt.Fprintf(b, "%s = [];\n", name)
		return
	}

	fmt.Fprintf(b, "%s = [ ...\n", name)
	for start := 0; start < len(values); start += vectorWrap {
		end := start + vectorWrap
		if end > len(values) {
			end = len(values)
		}
		parts := make([]string, 0, end-start)
		for _, v := range values[start:end] {
			parts = append(parts, fmt.Sprintf(valueFormat, v))
		}
		line := strings.Join(parts, ", ")
		if end < len(values) {
			fmt.Fprintf(b, "    %s, ...\n", line)
		} else {
			fmt.Fprintf(b, "    %s ...\n", line)
		}
	}
	b.WriteString("];\n")
}

// matlabQuote escapes single quotes for a MATLAB char literal.
func matlabQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
