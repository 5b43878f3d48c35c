package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	ports "budgetpal/internal/sheets"
)

// Writer keeps the schedule mirror in process, for local runs and tests.
type Writer struct {
	mu   sync.Mutex
	rows map[int64]ports.ScheduleRow
}

var _ ports.ScheduleMirror = (*Writer)(nil)

func New() *Writer {
	return &Writer{rows: make(map[int64]ports.ScheduleRow)}
}

func (w *Writer) UpsertSchedule(ctx context.Context, row ports.ScheduleRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows[row.ID] = row
	slog.DebugContext(ctx, "Schedule row stored in memory", "id", row.ID, "version", row.Version)
	return nil
}

func (w *Writer) DeleteSchedule(_ context.Context, id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.rows, id)
	return nil
}

// ListSchedule returns rows ordered by next date, then ID.
func (w *Writer) ListSchedule(_ context.Context) ([]ports.ScheduleRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]ports.ScheduleRow, 0, len(w.rows))
	for _, r := range w.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDate.Equal(out[j].NextDate) {
			return out[i].NextDate.Before(out[j].NextDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
