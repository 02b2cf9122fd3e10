package export

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wavecap/internal/preamble"
	"github.com/roach88/wavecap/internal/wave"
)

var (
	capturedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	exportedAt = time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC)
)

// rampWaveform is the end-to-end fixture: four raw codes one step above the
// reference, 1 µs apart.
func rampWaveform() *wave.Waveform {
	rec := preamble.FromValues(0, 0, 4, 1, 1e-6, 0, 0, 0.001, 0, 128)
	raw := []byte{128, 129, 130, 131}
	volts, times := wave.Convert(raw, rec)
	w := &wave.Waveform{
		ID:          "0190163d-8b00-7000-8000-000000000001",
		Channel:     1,
		CapturedAt:  capturedAt,
		Raw:         raw,
		Volts:       volts,
		Times:       times,
		Calibration: rec,
	}
	w.SetDescription("calibration ramp")
	return w
}

func emptyWaveform() *wave.Waveform {
	w := &wave.Waveform{
		ID:         "0190163d-8b00-7000-8000-000000000002",
		Channel:    2,
		CapturedAt: capturedAt,
	}
	w.SetDescription("empty capture")
	return w
}

func TestEncode_Golden(t *testing.T) {
	tests := []struct {
		format Format
		golden string
	}{
		{FormatCSV, "ramp_csv"},
		{FormatJSON, "ramp_json"},
		{FormatMATLAB, "ramp_matlab"},
		{FormatAnnotated, "ramp_annotated"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			data, err := encode(rampWaveform(), tt.format, exportedAt)
			require.NoError(t, err)
			g := goldie.New(t)
			g.Assert(t, tt.golden, data)
		})
	}
}

func TestEncodeCSV_RowCount(t *testing.T) {
	data, err := encode(rampWaveform(), FormatCSV, exportedAt)
	require.NoError(t, err)

	var dataRows int
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "Time") {
			dataRows++
		}
	}
	assert.Equal(t, 4, dataRows, "one data row per sample after the header block")
}

func TestEncode_TotalOnZeroSamples(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			data, err := encode(emptyWaveform(), f, exportedAt)
			require.NoError(t, err)
			assert.NotEmpty(t, data, "zero-sample export still produces a header")
		})
	}
}

func TestEncodeJSON_WellFormed(t *testing.T) {
	data, err := encode(rampWaveform(), FormatJSON, exportedAt)
	require.NoError(t, err)

	var doc struct {
		Metadata struct {
			Channel     int    `json:"channel"`
			SampleCount int    `json:"sample_count"`
			Software    string `json:"software"`
		} `json:"metadata"`
		Waveform struct {
			TimeUnit string `json:"time_unit"`
			Data     []struct {
				Time    float64 `json:"time"`
				Voltage float64 `json:"voltage"`
			} `json:"data"`
		} `json:"waveform"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 1, doc.Metadata.Channel)
	assert.Equal(t, 4, doc.Metadata.SampleCount)
	assert.Equal(t, SoftwareLabel, doc.Metadata.Software)
	assert.Equal(t, "s", doc.Waveform.TimeUnit)
	require.Len(t, doc.Waveform.Data, 4)
	assert.InDelta(t, 0.003, doc.Waveform.Data[3].Voltage, 1e-9)
}

func TestEncodeMATLAB_WrapsAtEightElements(t *testing.T) {
	rec := preamble.FromValues(0, 0, 20, 1, 1e-6, 0, 0, 0.001, 0, 128)
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = 128
	}
	volts, times := wave.Convert(raw, rec)
	w := &wave.Waveform{Channel: 1, CapturedAt: capturedAt, Raw: raw, Volts: volts, Times: times, Calibration: rec}

	data := encodeMATLAB(w, exportedAt)

	inVector := false
	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.HasPrefix(line, "time = ["):
			inVector = true
		case strings.HasPrefix(line, "];"):
			inVector = false
		case inVector:
			assert.LessOrEqual(t, strings.Count(line, ","), vectorWrap,
				"vector lines wrap at %d elements", vectorWrap)
		}
	}
}

// readRawContainer is the symmetric reader the container format must allow.
// wavecap itself never reads its exports back; this exists to prove the
// layout is unambiguous.
func readRawContainer(t *testing.T, data []byte) (channel int32, capturedNanos int64, sampleCount int32, desc string, cal []float64, raw []byte) {
	t.Helper()
	r := bytes.NewReader(data)

	sig := make([]byte, len(RawSignature))
	_, err := r.Read(sig)
	require.NoError(t, err)
	require.Equal(t, RawSignature, string(sig))

	require.NoError(t, binary.Read(r, binary.LittleEndian, &channel))
	require.NoError(t, binary.Read(r, binary.LittleEndian, &capturedNanos))
	require.NoError(t, binary.Read(r, binary.LittleEndian, &sampleCount))

	var descLen int32
	require.NoError(t, binary.Read(r, binary.LittleEndian, &descLen))
	descBytes := make([]byte, descLen)
	_, err = r.Read(descBytes)
	require.NoError(t, err)
	desc = string(descBytes)

	var calCount int32
	require.NoError(t, binary.Read(r, binary.LittleEndian, &calCount))
	cal = make([]float64, calCount)
	for i := range cal {
		require.NoError(t, binary.Read(r, binary.LittleEndian, &cal[i]))
	}

	var rawCount int32
	require.NoError(t, binary.Read(r, binary.LittleEndian, &rawCount))
	raw = make([]byte, rawCount)
	if rawCount > 0 {
		_, err = r.Read(raw)
		require.NoError(t, err)
	}
	require.Zero(t, r.Len(), "no trailing bytes after the raw sample section")
	return channel, capturedNanos, sampleCount, desc, cal, raw
}

func TestEncodeRaw_MetadataRoundTrip(t *testing.T) {
	w := rampWaveform()
	data, err := encodeRaw(w)
	require.NoError(t, err)

	channel, nanos, count, desc, cal, raw := readRawContainer(t, data)
	assert.Equal(t, int32(1), channel)
	assert.Equal(t, capturedAt.UnixNano(), nanos)
	assert.Equal(t, int32(4), count)
	assert.Equal(t, "calibration ramp", desc)
	require.Len(t, cal, 10)
	assert.InDelta(t, 0.001, cal[preamble.FieldYIncrement], 1e-12)
	assert.Equal(t, []byte{128, 129, 130, 131}, raw)
}

func TestEncodeRaw_EmptyCalibrationWritesZeroIndicator(t *testing.T) {
	w := emptyWaveform()
	data, err := encodeRaw(w)
	require.NoError(t, err)

	_, _, count, _, cal, raw := readRawContainer(t, data)
	assert.Zero(t, count)
	assert.Empty(t, cal)
	assert.Empty(t, raw)
}

func TestEncodeRaw_RequantizesWhenRawUnavailable(t *testing.T) {
	w := &wave.Waveform{
		Channel:    1,
		CapturedAt: capturedAt,
		Volts:      []float64{-2.0, 0.0, 2.0},
		Times:      []float64{0, 1e-6, 2e-6},
	}

	data, err := encodeRaw(w)
	require.NoError(t, err)

	_, _, _, _, _, raw := readRawContainer(t, data)
	// byte = round((v + 2.0) * 127.0 / 4.0)
	assert.Equal(t, []byte{0, 64, 127}, raw)
}

func TestRawCode_GuardsNearZeroYIncrement(t *testing.T) {
	w := &wave.Waveform{
		Volts:       []float64{0.5},
		Times:       []float64{0},
		Calibration: preamble.FromValues(0, 0, 1, 1, 1e-6, 0, 0, 0, 0, 93),
	}
	assert.Equal(t, 93, rawCode(w, 0), "zero yincrement falls back to the reference code")
}

func TestWrite_AtomicSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ramp.csv")

	n, err := Write(rampWaveform(), path, FormatCSV)
	require.NoError(t, err)
	assert.Greater(t, n, int64(0))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, n, info.Size())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestWrite_FailureLeavesNoFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does", "not", "exist")
	path := filepath.Join(dir, "ramp.csv")

	_, err := Write(rampWaveform(), path, FormatCSV)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("matlab")
	require.NoError(t, err)
	assert.Equal(t, FormatMATLAB, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestFormatExtAndTag(t *testing.T) {
	assert.Equal(t, ".csv", FormatCSV.Ext())
	assert.Equal(t, ".json", FormatJSON.Ext())
	assert.Equal(t, ".m", FormatMATLAB.Ext())
	assert.Equal(t, ".bin", FormatRaw.Ext())
	assert.Equal(t, ".csv", FormatAnnotated.Ext())
	assert.Equal(t, "ANNOTATED_CSV", FormatAnnotated.Tag())
}
