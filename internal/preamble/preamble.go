// Package preamble parses the calibration parameter string an oscilloscope
// returns from :WAV:PRE?.
//
// The preamble is ten comma-separated numeric fields describing how to turn
// raw digitizer codes into physical units:
//
//	format, type, points, count, xincrement, xorigin, xreference,
//	yincrement, yorigin, yreference
//
// Parsing is total: any field that fails to parse is simply absent, and an
// empty input yields an empty Record. Absence is tracked per field rather
// than encoded as a numeric sentinel, so consumers can substitute documented
// fallback constants only where a field is genuinely missing.
package preamble

import (
	"strconv"
	"strings"
)

// Field indexes into a Record, in instrument wire order.
const (
	FieldFormat = iota
	FieldAcqType
	FieldPoints
	FieldCount
	FieldXIncrement
	FieldXOrigin
	FieldXReference
	FieldYIncrement
	FieldYOrigin
	FieldYReference

	NumFields = 10 // total field count in a full preamble
)

// Fallback constants used when a calibration field is absent. These match
// the documented instrument defaults for a byte-format trace at 1 µs/pt.
const (
	DefaultYIncrement float64 = 0.001
	DefaultYOrigin    float64 = 0
	DefaultYReference float64 = 127
	DefaultXIncrement float64 = 1e-6
	DefaultXOrigin    float64 = 0
)

// Record holds up to ten parsed calibration fields with per-field presence.
//
// The zero value is a valid, entirely-absent record.
type Record struct {
	values [NumFields]float64
	set    [NumFields]bool
	n      int // number of tokens seen in the source string, capped at 10
}

// Parse extracts a Record from a comma-separated preamble string.
//
// Up to ten tokens are parsed; extras are ignored. A token that is not a
// valid float leaves its field absent rather than aborting the parse.
// Parse never fails: the worst input yields an empty Record.
func Parse(s string) Record {
	var rec Record
	s = strings.TrimSpace(s)
	if s == "" {
		return rec
	}

	tokens := strings.Split(s, ",")
	for i, tok := range tokens {
		if i >= NumFields {
			break
		}
		rec.n++
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			continue
		}
		rec.values[i] = v
		rec.set[i] = true
	}
	return rec
}

// FromValues builds a Record from explicit field values, all marked present.
// Intended for tests and for reconstructing a record from an export header.
func FromValues(values ...float64) Record {
	var rec Record
	for i, v := range values {
		if i >= NumFields {
			break
		}
		rec.values[i] = v
		rec.set[i] = true
		rec.n++
	}
	return rec
}

// Field returns the value at index i and whether it was present in the
// source string. Out-of-range indexes report absent.
func (r Record) Field(i int) (float64, bool) {
	if i < 0 || i >= NumFields {
		return 0, false
	}
	return r.values[i], r.set[i]
}

// FieldOr returns the value at index i, or fallback if the field is absent.
func (r Record) FieldOr(i int, fallback float64) float64 {
	if v, ok := r.Field(i); ok {
		return v
	}
	return fallback
}

// Len reports how many leading fields the source string carried (parsed or
// not), capped at ten. A zero-value Record has Len 0.
func (r Record) Len() int {
	return r.n
}

// Values returns the ten field values in wire order, with absent fields as 0.
func (r Record) Values() [NumFields]float64 {
	return r.values
}

// Empty reports whether the record carries no fields at all.
func (r Record) Empty() bool {
	return r.n == 0
}
