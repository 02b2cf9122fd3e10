package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/wavecap/internal/wave"
)

// RecordCapture inserts one capture row.
// Uses ON CONFLICT(id) DO NOTHING so re-recording the same waveform is a
// no-op rather than an error.
func (j *Journal) RecordCapture(ctx context.Context, w *wave.Waveform) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO captures (id, channel, captured_at, sample_count, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		w.ID,
		w.Channel,
		w.CapturedAt.UTC().Format(time.RFC3339Nano),
		w.Samples(),
		w.Description,
	)
	if err != nil {
		return fmt.Errorf("record capture: %w", err)
	}
	return nil
}

// RecordExport inserts one export row for a previously recorded capture.
func (j *Journal) RecordExport(ctx context.Context, waveformID, path, format string, bytes int64, exportedAt time.Time) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO exports (waveform_id, path, format, bytes, exported_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		waveformID,
		path,
		format,
		bytes,
		exportedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}
