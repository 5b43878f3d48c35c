package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleRow is one payment's schedule as mirrored to a spreadsheet.
type ScheduleRow struct {
	ID        int64
	Version   int64
	Name      string
	Type      string
	Category  string
	Frequency string
	NextDate  time.Time
	Amount    decimal.Decimal
}

// Ports for outbound adapters.
type (
	ScheduleWriter interface {
		// UpsertSchedule replaces the row with the same ID or appends one.
		UpsertSchedule(ctx context.Context, row ScheduleRow) error
		// DeleteSchedule removes the row for id. Missing rows are not an error.
		DeleteSchedule(ctx context.Context, id int64) error
	}

	ScheduleReader interface {
		ListSchedule(ctx context.Context) ([]ScheduleRow, error)
	}

	ScheduleMirror interface {
		ScheduleWriter
		ScheduleReader
	}
)
