package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetpal/internal/amqp"
	"budgetpal/internal/core"
	"budgetpal/internal/services"
	"budgetpal/internal/sheets"
	sheetsmem "budgetpal/internal/sheets/memory"
	"budgetpal/internal/storage"
	"budgetpal/internal/storage/memory"
)

func scheduleMsg(id, version int64, name string) *amqp.ScheduleMessage {
	return &amqp.ScheduleMessage{
		ID:              id,
		Version:         version,
		Name:            name,
		Type:            "Expense",
		Category:        "Fixed",
		Frequency:       "Monthly",
		NextPaymentDate: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		Amount:          decimal.RequireFromString("1500"),
	}
}

func TestScheduleWorker_HandleSchedule(t *testing.T) {
	mirror := sheetsmem.New()
	w := NewScheduleWorker(mirror)
	ctx := context.Background()

	steps := []struct {
		msg      *amqp.ScheduleMessage
		wantName string
	}{
		{scheduleMsg(1, 1, "Rent"), "Rent"},
		{scheduleMsg(1, 3, "Rent v3"), "Rent v3"},
		{scheduleMsg(1, 2, "Rent v2 (late)"), "Rent v3"},
		{scheduleMsg(1, 3, "Rent v3 redelivered"), "Rent v3 redelivered"},
	}
	for i, s := range steps {
		if err := w.HandleSchedule(ctx, s.msg); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		rows, _ := mirror.ListSchedule(ctx)
		if len(rows) != 1 || rows[0].Name != s.wantName {
			t.Fatalf("step %d: rows = %+v, want name %q", i, rows, s.wantName)
		}
	}
}

func TestScheduleWorker_DeleteIsFinal(t *testing.T) {
	mirror := sheetsmem.New()
	w := NewScheduleWorker(mirror)
	ctx := context.Background()

	_ = w.HandleSchedule(ctx, scheduleMsg(5, 1, "Gym"))
	if err := w.HandleDelete(ctx, &amqp.DeleteMessage{ID: 5}); err != nil {
		t.Fatalf("HandleDelete: %v", err)
	}
	_ = w.HandleSchedule(ctx, scheduleMsg(5, 2, "Gym late update"))

	if rows, _ := mirror.ListSchedule(ctx); len(rows) != 0 {
		t.Fatalf("deleted payment came back: %+v", rows)
	}
}

type failingMirror struct{ sheets.ScheduleWriter }

func (failingMirror) UpsertSchedule(context.Context, sheets.ScheduleRow) error {
	return errors.New("quota exceeded")
}

func TestScheduleWorker_ErrorDoesNotAdvanceVersion(t *testing.T) {
	w := NewScheduleWorker(failingMirror{})
	ctx := context.Background()

	if err := w.HandleSchedule(ctx, scheduleMsg(1, 4, "Rent")); err == nil {
		t.Fatal("expected error from mirror")
	}
	if w.stale(1, 1) {
		t.Error("a failed write must not mark the version as applied")
	}
}

func TestScheduleWorker_LoadVersions(t *testing.T) {
	mirror := sheetsmem.New()
	ctx := context.Background()
	_ = mirror.UpsertSchedule(ctx, sheets.ScheduleRow{ID: 9, Version: 4, Name: "Insurance"})

	w := NewScheduleWorker(mirror)
	if err := w.LoadVersions(ctx, mirror); err != nil {
		t.Fatalf("LoadVersions: %v", err)
	}
	_ = w.HandleSchedule(ctx, scheduleMsg(9, 3, "Insurance old"))

	rows, _ := mirror.ListSchedule(ctx)
	if rows[0].Name != "Insurance" {
		t.Errorf("stale message overwrote row: %+v", rows[0])
	}
}

func TestScheduleWorker_Reconcile(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := core.FixedClock(time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC))
	svc := services.NewPaymentService(store, nil, clock)

	rent, err := svc.Create(ctx, storage.NewPaymentRecord{
		Name: "Rent", DayOfMonth: 1, Amount: decimal.NewFromInt(1500),
		Frequency: core.Monthly, Category: core.Fixed, Type: core.Expense,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mirror := sheetsmem.New()
	_ = mirror.UpsertSchedule(ctx, sheets.ScheduleRow{ID: 77, Version: 1, Name: "Orphan"})

	w := NewScheduleWorker(mirror, WithOrphanPruning())
	if err := w.Reconcile(ctx, svc); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	rows, _ := mirror.ListSchedule(ctx)
	if len(rows) != 1 || rows[0].ID != rent.Record.ID {
		t.Fatalf("unexpected rows after reconcile: %+v", rows)
	}
	if want := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC); !rows[0].NextDate.Equal(want) {
		t.Errorf("NextDate = %v, want %v", rows[0].NextDate, want)
	}
}

func TestScheduleWorker_ReconcileKeepsRowsWithoutPruning(t *testing.T) {
	ctx := context.Background()
	clock := core.FixedClock(time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC))
	// A store the API never wrote to: every mirrored row is missing from it.
	svc := services.NewPaymentService(memory.New(), nil, clock)

	mirror := sheetsmem.New()
	w := NewScheduleWorker(mirror)
	if err := w.HandleSchedule(ctx, scheduleMsg(1, 1, "Rent")); err != nil {
		t.Fatalf("HandleSchedule: %v", err)
	}

	if err := w.Reconcile(ctx, svc); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if rows, _ := mirror.ListSchedule(ctx); len(rows) != 1 {
		t.Fatalf("reconcile removed rows it does not own: %+v", rows)
	}

	if err := w.HandleSchedule(ctx, scheduleMsg(1, 2, "Rent v2")); err != nil {
		t.Fatalf("HandleSchedule: %v", err)
	}
	rows, _ := mirror.ListSchedule(ctx)
	if len(rows) != 1 || rows[0].Name != "Rent v2" || rows[0].Version != 2 {
		t.Errorf("later update was not applied: %+v", rows)
	}
}
