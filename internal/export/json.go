package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/wavecap/internal/wave"
)

// sciFloat marshals as a JSON number in scientific notation with six
// fractional digits.
type sciFloat float64

func (f sciFloat) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%.6e", float64(f))), nil
}

// fixFloat marshals as a fixed-point JSON number with six fractional digits.
type fixFloat float64

func (f fixFloat) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%.6f", float64(f))), nil
}

type jsonMetadata struct {
	Channel     int    `json:"channel"`
	CaptureTime string `json:"capture_time"`
	SampleCount int    `json:"sample_count"`
	Description string `json:"description"`
	Format      string `json:"format"`
	ExportTime  string `json:"export_time"`
	Software    string `json:"software"`
}

type jsonSample struct {
	Time    sciFloat `json:"time"`
	Voltage fixFloat `json:"voltage"`
}

type jsonWaveform struct {
	TimeUnit    string       `json:"time_unit"`
	VoltageUnit string       `json:"voltage_unit"`
	Data        []jsonSample `json:"data"`
}

type jsonDocument struct {
	Metadata jsonMetadata `json:"metadata"`
	Waveform jsonWaveform `json:"waveform"`
}

// encodeJSON renders the JSON format: a metadata object plus the waveform
// data as time/voltage pairs.
func encodeJSON(w *wave.Waveform, exportedAt time.Time) ([]byte, error) {
	doc := jsonDocument{
		Metadata: jsonMetadata{
			Channel:     w.Channel,
			CaptureTime: timestamp(w.CapturedAt),
			SampleCount: w.Samples(),
			Description: w.Description,
			Format:      FormatJSON.Tag(),
			ExportTime:  timestamp(exportedAt),
			Software:    SoftwareLabel,
		},
		Waveform: jsonWaveform{
			TimeUnit:    "s",
			VoltageUnit: "V",
			Data:        make([]jsonSample, len(w.Volts)),
		},
	}
	for i := range w.Volts {
		doc.Waveform.Data[i] = jsonSample{
			Time:    sciFloat(w.Times[i]),
			Voltage: fixFloat(w.Volts[i]),
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode waveform JSON: %w", err)
	}
	return buf.Bytes(), nil
}
