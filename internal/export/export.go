// Package export serializes captured waveforms into interchange formats.
//
// Five encodings are supported: plain CSV, JSON, a MATLAB script, a raw
// binary container, and an annotated CSV carrying the full calibration
// preamble. Every encoder is total for any well-formed waveform — a
// zero-sample capture still produces a valid header-only file.
//
// Files are written all-or-nothing: the encoding is built in memory, written
// to a temporary file in the target directory, and renamed into place. A
// failure at any point leaves no partial file at the destination.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/wavecap/internal/wave"
)

// SoftwareLabel identifies this tool in export metadata.
const SoftwareLabel = "wavecap 0.1.0"

// Format identifies one of the supported encodings.
type Format string

const (
	// FormatCSV is time/voltage rows under a comment header.
	FormatCSV Format = "csv"

	// FormatJSON is a metadata block plus a data array of time/voltage pairs.
	FormatJSON Format = "json"

	// FormatMATLAB is a generated .m script with time and voltage vectors.
	FormatMATLAB Format = "matlab"

	// FormatRaw is the RIGOL_RAW_V1 binary container.
	FormatRaw Format = "raw"

	// FormatAnnotated is CSV with the full calibration preamble and the
	// reconstruction formulas in the header.
	FormatAnnotated Format = "annotated"
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatCSV, FormatJSON, FormatMATLAB, FormatRaw, FormatAnnotated}

// ParseFormat resolves a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q (choose one of %v)", s, Formats)
}

// Ext returns the conventional file extension for the format, with dot.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatMATLAB:
		return ".m"
	case FormatRaw:
		return ".bin"
	default:
		return ".csv"
	}
}

// Tag is the format identifier written into export metadata headers.
func (f Format) Tag() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatJSON:
		return "JSON"
	case FormatMATLAB:
		return "MATLAB"
	case FormatRaw:
		return "RAW"
	case FormatAnnotated:
		return "ANNOTATED_CSV"
	default:
		return string(f)
	}
}

// Write serializes w in the given format and writes it to path atomically.
// Returns the number of bytes written.
func Write(w *wave.Waveform, path string, f Format) (int64, error) {
	return writeAt(w, path, f, time.Now().UTC())
}

// writeAt is Write with an explicit export timestamp, for deterministic
// tests.
func writeAt(w *wave.Waveform, path string, f Format, exportedAt time.Time) (int64, error) {
	data, err := encode(w, f, exportedAt)
	if err != nil {
		return 0, err
	}
	if err := writeAtomic(path, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// encode builds the full file contents in memory.
func encode(w *wave.Waveform, f Format, exportedAt time.Time) ([]byte, error) {
	switch f {
	case FormatCSV:
		return encodeCSV(w, exportedAt), nil
	case FormatJSON:
		return encodeJSON(w, exportedAt)
	case FormatMATLAB:
		return encodeMATLAB(w, exportedAt), nil
	case FormatRaw:
		return encodeRaw(w)
	case FormatAnnotated:
		return encodeAnnotated(w, exportedAt), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

// writeAtomic writes data to path via a temporary file and rename, so a
// failed export never leaves a partial file at the destination.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".wavecap-export-*")
	if err != nil {
		return fmt.Errorf("create temporary export file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize export file: %w", err)
	}
	return nil
}

// timestamp renders a metadata time in RFC 3339 UTC.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
