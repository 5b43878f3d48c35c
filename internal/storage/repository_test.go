package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgetpal/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func rent() NewPaymentRecord {
	return NewPaymentRecord{
		Name:       "Rent",
		DayOfMonth: 1,
		Amount:     decimal.RequireFromString("1500.00"),
		Frequency:  core.Monthly,
		Category:   core.Fixed,
		Type:       core.Expense,
	}
}

func TestSQLiteRepository_CRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreatePayment(ctx, rent())
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if created.ID == 0 || created.Version != 1 {
		t.Fatalf("unexpected record: %+v", created)
	}
	if !created.Amount.Equal(decimal.NewFromInt(1500)) || created.Type != core.Expense {
		t.Fatalf("round trip lost data: %+v", created)
	}

	salary := NewPaymentRecord{
		Name: "Salary", DayOfMonth: 25, Amount: decimal.RequireFromString("3000"),
		Frequency: core.Monthly, Category: core.Target, Type: core.Income,
	}
	if _, err := repo.CreatePayment(ctx, salary); err != nil {
		t.Fatalf("CreatePayment salary: %v", err)
	}

	list, err := repo.ListPayments(ctx)
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Rent" || list[1].Name != "Salary" {
		t.Fatalf("unexpected list order: %+v", list)
	}

	updated, err := repo.UpdatePayment(ctx, created.ID, PaymentUpdate{
		Name:      "Rent (new flat)",
		Amount:    decimal.RequireFromString("1650.50"),
		Frequency: core.Quarterly,
		Category:  core.Mandatory,
	})
	if err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	if updated.Version != 2 || updated.Frequency != core.Quarterly || updated.DayOfMonth != 1 {
		t.Fatalf("unexpected update: %+v", updated)
	}
	if updated.Amount.StringFixed(2) != "1650.50" {
		t.Fatalf("amount = %s", updated.Amount)
	}

	if err := repo.DeletePayment(ctx, created.ID); err != nil {
		t.Fatalf("DeletePayment: %v", err)
	}
	if _, err := repo.GetPayment(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPayment after delete: want ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	upd := PaymentUpdate{Name: "x", Amount: decimal.NewFromInt(1), Frequency: core.Monthly, Category: core.Fixed}
	if _, err := repo.UpdatePayment(ctx, 42, upd); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePayment: want ErrNotFound, got %v", err)
	}
	if err := repo.DeletePayment(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePayment: want ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepository_RejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*NewPaymentRecord)
		wantErr error
	}{
		{"day zero", func(r *NewPaymentRecord) { r.DayOfMonth = 0 }, core.ErrInvalidDayOfMonth},
		{"day 32", func(r *NewPaymentRecord) { r.DayOfMonth = 32 }, core.ErrInvalidDayOfMonth},
		{"blank name", func(r *NewPaymentRecord) { r.Name = "  " }, core.ErrEmptyName},
		{"zero amount", func(r *NewPaymentRecord) { r.Amount = decimal.Zero }, core.ErrInvalidAmount},
		{"bad type", func(r *NewPaymentRecord) { r.Type = core.PaymentType(9) }, core.ErrUnrecognizedType},
		{"bad frequency", func(r *NewPaymentRecord) { r.Frequency = core.Frequency(9) }, core.ErrUnrecognizedFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := rent()
			tt.mutate(&in)
			if _, err := repo.CreatePayment(ctx, in); !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := repo.CreatePayment(context.Background(), rent()); err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	list, err := repo.ListPayments(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 record after reopen, got %d (err=%v)", len(list), err)
	}
}

func TestPaymentRecord_Build(t *testing.T) {
	rec := PaymentRecord{
		ID: 1, Name: "Rent", DayOfMonth: 1, Amount: decimal.NewFromInt(1500),
		Frequency: core.Quarterly, Category: core.Mandatory, Type: core.Expense,
	}
	clock := core.FixedClock(time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))

	p, err := rec.Build(clock)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	if !p.NextPaymentDate().Equal(want) {
		t.Errorf("NextPaymentDate = %v, want %v", p.NextPaymentDate(), want)
	}
	if !p.IsQuarterly() || p.Category != core.Mandatory || p.Type() != core.Expense {
		t.Errorf("unexpected payment: %+v", p)
	}

	rec.DayOfMonth = 31
	april := core.FixedClock(time.Date(2024, time.March, 31, 10, 0, 0, 0, time.UTC))
	if _, err := rec.Build(april); !errors.Is(err, core.ErrInvalidDayOfMonth) {
		t.Errorf("Build in short month: want ErrInvalidDayOfMonth, got %v", err)
	}
}
