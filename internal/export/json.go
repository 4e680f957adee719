package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sadopc/wellness/internal/metrics"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Entries    []jsonEntry `json:"entries"`
}

type jsonEntry struct {
	ID         string  `json:"id,omitempty"`
	Date       string  `json:"date"`
	Steps      int     `json:"steps"`
	SleepHours float64 `json:"sleep_hours"`
	Mood       string  `json:"mood"`
	Notes      string  `json:"notes,omitempty"`
}

// WriteJSON writes an indented JSON document of the records.
func WriteJSON(w io.Writer, records []metrics.MetricRecord, now time.Time) error {
	export := jsonExport{
		ExportedAt: now.UTC().Format(time.RFC3339),
		Count:      len(records),
		Entries:    make([]jsonEntry, 0, len(records)),
	}

	for _, r := range records {
		export.Entries = append(export.Entries, jsonEntry{
			ID:         r.ID,
			Date:       r.Date.String(),
			Steps:      r.Steps,
			SleepHours: r.SleepHours,
			Mood:       string(r.Mood),
			Notes:      r.Notes,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
