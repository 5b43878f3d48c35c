package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"budgetpal/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

const selectPayment = `SELECT id, name, day_of_month, amount, frequency, category, payment_type,
	version, created_at, updated_at FROM payments`

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ PaymentStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreatePayment inserts a new payment definition.
func (r *SQLiteRepository) CreatePayment(ctx context.Context, in NewPaymentRecord) (PaymentRecord, error) {
	if err := in.Validate(); err != nil {
		return PaymentRecord{}, err
	}

	now := r.now().Format(timeLayout)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (name, day_of_month, amount, frequency, category, payment_type, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		in.Name, in.DayOfMonth, in.Amount.String(), in.Frequency.String(), in.Category.String(), in.Type.String(), now, now)
	if err != nil {
		return PaymentRecord{}, fmt.Errorf("insert payment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return PaymentRecord{}, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", id,
		"name", in.Name,
		"day_of_month", in.DayOfMonth,
		"type", in.Type.String())

	return r.GetPayment(ctx, id)
}

// GetPayment returns ErrNotFound when no row matches id.
func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx, selectPayment+` WHERE id = ?`, id)
	rec, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PaymentRecord{}, fmt.Errorf("get payment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return PaymentRecord{}, fmt.Errorf("get payment %d: %w", id, err)
	}
	return rec, nil
}

// ListPayments returns every definition ordered by day of month, then id.
func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectPayment+` ORDER BY day_of_month, id`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []PaymentRecord
	for rows.Next() {
		rec, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// UpdatePayment changes the mutable fields and bumps the version.
func (r *SQLiteRepository) UpdatePayment(ctx context.Context, id int64, in PaymentUpdate) (PaymentRecord, error) {
	if err := in.Validate(); err != nil {
		return PaymentRecord{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE payments
		 SET name = ?, amount = ?, frequency = ?, category = ?, version = version + 1, updated_at = ?
		 WHERE id = ?`,
		in.Name, in.Amount.String(), in.Frequency.String(), in.Category.String(), r.now().Format(timeLayout), id)
	if err != nil {
		return PaymentRecord{}, fmt.Errorf("update payment %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return PaymentRecord{}, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return PaymentRecord{}, fmt.Errorf("update payment %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Payment updated in SQLite", "id", id)
	return r.GetPayment(ctx, id)
}

// DeletePayment removes a definition.
func (r *SQLiteRepository) DeletePayment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("delete payment %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "Payment deleted from SQLite", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (PaymentRecord, error) {
	var (
		rec                    PaymentRecord
		amount, freq, cat, typ string
		createdAt, updatedAt   string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.DayOfMonth, &amount, &freq, &cat, &typ,
		&rec.Version, &createdAt, &updatedAt); err != nil {
		return PaymentRecord{}, err
	}

	var err error
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return PaymentRecord{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if rec.Frequency, err = core.ParseFrequency(freq, core.FrequencyName); err != nil {
		return PaymentRecord{}, err
	}
	if rec.Category, err = core.ParseCategory(cat); err != nil {
		return PaymentRecord{}, err
	}
	if rec.Type, err = core.ParsePaymentType(typ); err != nil {
		return PaymentRecord{}, err
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return PaymentRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return PaymentRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return rec, nil
}
