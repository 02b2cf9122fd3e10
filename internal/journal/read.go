package journal

import (
	"context"
	"fmt"
	"time"
)

// CaptureEntry is one row of capture history with its export count.
type CaptureEntry struct {
	ID          string
	Channel     int
	CapturedAt  time.Time
	SampleCount int
	Description string
	Exports     int
}

// History returns the most recent captures, newest first, each with the
// number of exports recorded against it. limit <= 0 means no limit.
func (j *Journal) History(ctx context.Context, limit int) ([]CaptureEntry, error) {
	query := `
		SELECT c.id, c.channel, c.captured_at, c.sample_count, c.description,
		       COUNT(e.id)
		FROM captures c
		LEFT JOIN exports e ON e.waveform_id = c.id
		GROUP BY c.id
		ORDER BY c.captured_at DESC, c.id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query capture history: %w", err)
	}
	defer rows.Close()

	var entries []CaptureEntry
	for rows.Next() {
		var e CaptureEntry
		var capturedAt string
		if err := rows.Scan(&e.ID, &e.Channel, &capturedAt, &e.SampleCount, &e.Description, &e.Exports); err != nil {
			return nil, fmt.Errorf("scan capture history: %w", err)
		}
		e.CapturedAt, err = time.Parse(time.RFC3339Nano, capturedAt)
		if err != nil {
			return nil, fmt.Errorf("parse captured_at %q: %w", capturedAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate capture history: %w", err)
	}

	if entries == nil {
		entries = []CaptureEntry{}
	}
	return entries, nil
}
