package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgetpal/internal/core"
)

var ErrNotFound = errors.New("payment not found")

// PaymentStore persists payment definitions. Schedules are never stored;
// they are recomputed by building a core.Payment from the record.
type PaymentStore interface {
	CreatePayment(ctx context.Context, in NewPaymentRecord) (PaymentRecord, error)
	GetPayment(ctx context.Context, id int64) (PaymentRecord, error)
	ListPayments(ctx context.Context) ([]PaymentRecord, error)
	UpdatePayment(ctx context.Context, id int64, in PaymentUpdate) (PaymentRecord, error)
	DeletePayment(ctx context.Context, id int64) error
	Close() error
}

// NewPaymentRecord holds the fields fixed at creation plus the mutable ones.
type NewPaymentRecord struct {
	Name       string
	DayOfMonth int
	Amount     decimal.Decimal
	Frequency  core.Frequency
	Category   core.Category
	Type       core.PaymentType
}

// PaymentUpdate carries only the fields a payment allows to change after
// creation. Day of month and type are immutable.
type PaymentUpdate struct {
	Name      string
	Amount    decimal.Decimal
	Frequency core.Frequency
	Category  core.Category
}

// PaymentRecord is a stored payment definition.
type PaymentRecord struct {
	ID         int64
	Name       string
	DayOfMonth int
	Amount     decimal.Decimal
	Frequency  core.Frequency
	Category   core.Category
	Type       core.PaymentType
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Build constructs a fresh core.Payment, scheduling it against clock.
func (r PaymentRecord) Build(clock core.Clock) (*core.Payment, error) {
	return core.NewPayment(r.Type, r.Name, r.DayOfMonth, r.Amount,
		core.WithClock(clock),
		core.WithCategory(r.Category),
		core.WithFrequency(r.Frequency))
}

// Validate checks a definition before it is stored.
func (in NewPaymentRecord) Validate() error {
	if in.DayOfMonth < 1 || in.DayOfMonth > 31 {
		return core.ErrInvalidDayOfMonth
	}
	if !in.Type.IsValid() {
		return core.ErrUnrecognizedType
	}
	return in.update().Validate()
}

func (in NewPaymentRecord) update() PaymentUpdate {
	return PaymentUpdate{Name: in.Name, Amount: in.Amount, Frequency: in.Frequency, Category: in.Category}
}

// Validate checks the mutable fields.
func (u PaymentUpdate) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return core.ErrEmptyName
	}
	if len(u.Name) > 200 {
		return core.ErrNameTooLong
	}
	if !u.Amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	if !u.Frequency.IsValid() {
		return core.ErrUnrecognizedFrequency
	}
	if !u.Category.IsValid() {
		return core.ErrUnrecognizedCategory
	}
	return nil
}
