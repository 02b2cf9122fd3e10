package export

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/roach88/wavecap/internal/preamble"
	"github.com/roach88/wavecap/internal/wave"
)

// RawSignature is the fixed ASCII signature at the start of every raw
// binary container.
const RawSignature = "RIGOL_RAW_V1"

// encodeRaw renders the binary container. All integers are little-endian.
//
// Layout:
//
//	[12]byte  signature "RIGOL_RAW_V1"
//	int32     channel number
//	int64     capture time, nanoseconds since the Unix epoch
//	int32     sample count
//	int32     description length, followed by that many UTF-8 bytes
//	int32     calibration field count (0 if no preamble was captured),
//	          followed by that many float64 values in wire order
//	int32     raw sample count, followed by one byte per sample
//
// When the true raw codes are unavailable the byte section is approximated
// from voltage by a fixed linear re-quantization over a ±2 V window:
//
//	byte = round((voltage + 2.0) * 127.0 / 4.0), clamped to [0, 255]
func encodeRaw(w *wave.Waveform) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(RawSignature)

	write := func(v any) error {
		return binary.Write(&buf, binary.LittleEndian, v)
	}

	desc := []byte(w.Description)
	fields := []any{
		int32(w.Channel),
		w.CapturedAt.UnixNano(),
		int32(w.Samples()),
		int32(len(desc)),
	}
	for _, f := range fields {
		if err := write(f); err != nil {
			return nil, fmt.Errorf("encode raw container: %w", err)
		}
	}
	buf.Write(desc)

	calCount := w.Calibration.Len()
	if err := write(int32(calCount)); err != nil {
		return nil, fmt.Errorf("encode raw container: %w", err)
	}
	values := w.Calibration.Values()
	for i := 0; i < calCount && i < preamble.NumFields; i++ {
		if err := write(values[i]); err != nil {
			return nil, fmt.Errorf("encode raw container: %w", err)
		}
	}

	rawSamples := w.Raw
	if len(rawSamples) == 0 && len(w.Volts) > 0 {
		rawSamples = requantize(w.Volts)
	}
	if err := write(int32(len(rawSamples))); err != nil {
		return nil, fmt.Errorf("encode raw container: %w", err)
	}
	buf.Write(rawSamples)

	return buf.Bytes(), nil
}

// requantize approximates raw codes from voltages over a fixed ±2 V window.
func requantize(volts []float64) []byte {
	raw := make([]byte, len(volts))
	for i, v := range volts {
		code := math.Round((v + 2.0) * 127.0 / 4.0)
		if code < 0 {
			code = 0
		} else if code > 255 {
			code = 255
		}
		raw[i] = byte(code)
	}
	return raw
}
