package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"budgetpal/internal/amqp"
	"budgetpal/internal/services"
	"budgetpal/internal/sheets"
)

const tombstone = math.MaxInt64

// ScheduleSource lists payment definitions with their current schedule.
// *services.PaymentService satisfies it.
type ScheduleSource interface {
	List(ctx context.Context) ([]services.ScheduledPayment, error)
}

// ScheduleWorker mirrors schedule events into a spreadsheet.
type ScheduleWorker struct {
	mirror sheets.ScheduleWriter

	pruneOrphans bool

	mu   sync.Mutex
	seen map[int64]int64 // id -> highest version applied
}

var _ amqp.Handler = (*ScheduleWorker)(nil)

// Option configures a ScheduleWorker.
type Option func(*ScheduleWorker)

// WithOrphanPruning lets Reconcile delete mirrored rows whose payment is
// missing from the source. Only enable it when the source is the store the
// API writes to; an unrelated store would make every row look orphaned.
func WithOrphanPruning() Option {
	return func(w *ScheduleWorker) { w.pruneOrphans = true }
}

func NewScheduleWorker(mirror sheets.ScheduleWriter, opts ...Option) *ScheduleWorker {
	w := &ScheduleWorker{mirror: mirror, seen: make(map[int64]int64)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// LoadVersions primes the stale-message check from rows already mirrored.
func (w *ScheduleWorker) LoadVersions(ctx context.Context, r sheets.ScheduleReader) error {
	rows, err := r.ListSchedule(ctx)
	if err != nil {
		return fmt.Errorf("list mirrored schedule: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, row := range rows {
		if row.Version > w.seen[row.ID] {
			w.seen[row.ID] = row.Version
		}
	}
	slog.InfoContext(ctx, "Loaded mirrored schedule versions", "rows", len(rows))
	return nil
}

// HandleSchedule upserts the row unless a newer version was already applied.
func (w *ScheduleWorker) HandleSchedule(ctx context.Context, msg *amqp.ScheduleMessage) error {
	if w.stale(msg.ID, msg.Version) {
		slog.InfoContext(ctx, "Skipping stale schedule message",
			"id", msg.ID,
			"version", msg.Version)
		return nil
	}

	if err := w.mirror.UpsertSchedule(ctx, toRow(msg)); err != nil {
		return fmt.Errorf("upsert schedule %d: %w", msg.ID, err)
	}
	w.markApplied(msg.ID, msg.Version)

	slog.InfoContext(ctx, "Schedule mirrored",
		"id", msg.ID,
		"version", msg.Version,
		"next_payment_date", msg.NextPaymentDate.Format("2006-01-02"))
	return nil
}

// HandleDelete removes the row. Later schedule messages for the same id are
// treated as stale.
func (w *ScheduleWorker) HandleDelete(ctx context.Context, msg *amqp.DeleteMessage) error {
	if err := w.mirror.DeleteSchedule(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete schedule %d: %w", msg.ID, err)
	}
	w.markApplied(msg.ID, tombstone)
	slog.InfoContext(ctx, "Schedule row removed", "id", msg.ID)
	return nil
}

// Reconcile rewrites every schedule from src, recovering from lost
// messages. Definitions that cannot be scheduled this month are skipped.
// With orphan pruning on and a readable mirror, rows for definitions that
// no longer exist are removed; otherwise they are left for delete messages.
func (w *ScheduleWorker) Reconcile(ctx context.Context, src ScheduleSource) error {
	all, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}

	synced, skipped := 0, 0
	for _, sp := range all {
		if sp.Payment == nil {
			skipped++
			continue
		}
		msg := amqp.NewScheduleMessage(sp.Record.ID, sp.Record.Version, sp.Payment)
		if err := w.mirror.UpsertSchedule(ctx, toRow(msg)); err != nil {
			return fmt.Errorf("upsert schedule %d: %w", sp.Record.ID, err)
		}
		w.markApplied(sp.Record.ID, sp.Record.Version)
		synced++
	}

	removed := 0
	if r, ok := w.mirror.(sheets.ScheduleReader); ok && w.pruneOrphans {
		live := make(map[int64]bool, len(all))
		for _, sp := range all {
			live[sp.Record.ID] = true
		}
		rows, err := r.ListSchedule(ctx)
		if err != nil {
			return fmt.Errorf("list mirrored schedule: %w", err)
		}
		for _, row := range rows {
			if live[row.ID] {
				continue
			}
			if err := w.mirror.DeleteSchedule(ctx, row.ID); err != nil {
				return fmt.Errorf("delete schedule %d: %w", row.ID, err)
			}
			w.markApplied(row.ID, tombstone)
			removed++
		}
	}

	slog.InfoContext(ctx, "Schedule reconciled",
		"synced", synced,
		"skipped", skipped,
		"removed", removed)
	return nil
}

func (w *ScheduleWorker) stale(id, version int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return version < w.seen[id]
}

func (w *ScheduleWorker) markApplied(id, version int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if version > w.seen[id] {
		w.seen[id] = version
	}
}

func toRow(msg *amqp.ScheduleMessage) sheets.ScheduleRow {
	return sheets.ScheduleRow{
		ID:        msg.ID,
		Version:   msg.Version,
		Name:      msg.Name,
		Type:      msg.Type,
		Category:  msg.Category,
		Frequency: msg.Frequency,
		NextDate:  msg.NextPaymentDate,
		Amount:    msg.Amount,
	}
}
