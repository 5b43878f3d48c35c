package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a recurring cash flow anchored to a fixed day of the month.
// The next payment date is computed once, at construction, and never moves.
type Payment struct {
	Name      string
	Amount    decimal.Decimal
	Frequency Frequency
	Category  Category

	dayOfMonth      int
	paymentType     PaymentType
	nextPaymentDate time.Time
	clock           Clock
}

// Option customizes payment construction.
type Option func(*paymentOptions)

type paymentOptions struct {
	clock     Clock
	category  Category
	frequency Frequency
}

var (
	ErrInvalidDayOfMonth = errors.New("invalid day of month")
	ErrEmptyName         = errors.New("empty payment name")
	ErrNameTooLong       = errors.New("payment name too long (max 200 characters)")
)

// WithClock sets the time source used for scheduling and for NextPaymentAmount.
func WithClock(c Clock) Option {
	return func(o *paymentOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

func WithCategory(c Category) Option {
	return func(o *paymentOptions) { o.category = c }
}

func WithFrequency(f Frequency) Option {
	return func(o *paymentOptions) { o.frequency = f }
}

// NewPayment builds a payment of the given type. Frequency defaults to
// Monthly and category to Fixed unless set through options.
func NewPayment(t PaymentType, name string, day int, amount decimal.Decimal, opts ...Option) (*Payment, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnrecognizedType, int(t))
	}
	o := paymentOptions{clock: SystemClock{}, category: Fixed, frequency: Monthly}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.frequency.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnrecognizedFrequency, int(o.frequency))
	}
	if !o.category.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnrecognizedCategory, int(o.category))
	}

	next, err := ScheduleNext(t, day, o.clock.Now())
	if err != nil {
		return nil, err
	}

	return &Payment{
		Name:            name,
		Amount:          amount,
		Frequency:       o.frequency,
		Category:        o.category,
		dayOfMonth:      day,
		paymentType:     t,
		nextPaymentDate: next,
		clock:           o.clock,
	}, nil
}

// NewPaymentWithFrequency resolves frequency by its enum name (e.g. "Quarterly").
func NewPaymentWithFrequency(t PaymentType, name string, day int, amount decimal.Decimal, frequency string, category Category, opts ...Option) (*Payment, error) {
	f, err := ParseFrequency(frequency, FrequencyName)
	if err != nil {
		return nil, err
	}
	return NewPayment(t, name, day, amount, withFixed(opts, WithCategory(category), WithFrequency(f))...)
}

// NewExpense builds an expense. Weekend dates are pushed to the following Monday.
func NewExpense(name string, day int, amount decimal.Decimal, category Category, opts ...Option) (*Payment, error) {
	return NewPayment(Expense, name, day, amount, withFixed(opts, WithCategory(category))...)
}

// NewExpenseWithCode is NewExpense with a frequency short code (W, B, M, BI, Q, A).
func NewExpenseWithCode(name string, day int, amount decimal.Decimal, code string, category Category, opts ...Option) (*Payment, error) {
	f, err := ParseFrequency(code, FrequencyCode)
	if err != nil {
		return nil, err
	}
	return NewExpense(name, day, amount, category, withFixed(opts, WithFrequency(f))...)
}

// NewIncome builds an income. Weekend dates are pulled back to the preceding Friday.
func NewIncome(name string, day int, amount decimal.Decimal, category Category, opts ...Option) (*Payment, error) {
	return NewPayment(Income, name, day, amount, withFixed(opts, WithCategory(category))...)
}

// NewIncomeWithCode is NewIncome with a frequency short code (W, B, M, BI, Q, A).
func NewIncomeWithCode(name string, day int, amount decimal.Decimal, code string, category Category, opts ...Option) (*Payment, error) {
	f, err := ParseFrequency(code, FrequencyCode)
	if err != nil {
		return nil, err
	}
	return NewIncome(name, day, amount, category, withFixed(opts, WithFrequency(f))...)
}

// withFixed appends options that must win over caller-supplied ones without
// touching the caller's slice.
func withFixed(opts []Option, fixed ...Option) []Option {
	out := make([]Option, 0, len(opts)+len(fixed))
	out = append(out, opts...)
	return append(out, fixed...)
}

// ScheduleNext returns the next occurrence of day after now, shifted off the
// weekend according to t. The candidate is in the current month when
// now.Day() < day and in the following month otherwise.
func ScheduleNext(t PaymentType, day int, now time.Time) (time.Time, error) {
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %d is outside 1-31", ErrInvalidDayOfMonth, day)
	}

	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if now.Day() >= day {
		month = month.AddDate(0, 1, 0)
	}
	if last := daysIn(month); day > last {
		return time.Time{}, fmt.Errorf("%w: %s %d has only %d days, got %d",
			ErrInvalidDayOfMonth, month.Month(), month.Year(), last, day)
	}

	return adjustForWeekend(t, month.AddDate(0, 0, day-1)), nil
}

// adjustForWeekend pulls income earlier and pushes expenses later.
func adjustForWeekend(t PaymentType, d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		if t == Income {
			return d.AddDate(0, 0, -1)
		}
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		if t == Income {
			return d.AddDate(0, 0, -2)
		}
		return d.AddDate(0, 0, 1)
	}
	return d
}

// daysIn returns the number of days in the month starting at first.
func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}

// DayOfMonth returns the anchor day the payment was created with.
func (p *Payment) DayOfMonth() int {
	return p.dayOfMonth
}

// Type returns Income or Expense.
func (p *Payment) Type() PaymentType {
	return p.paymentType
}

// NextPaymentDate returns the date computed at construction.
func (p *Payment) NextPaymentDate() time.Time {
	return p.nextPaymentDate
}

// IsQuarterly reports whether the payment recurs quarterly.
func (p *Payment) IsQuarterly() bool {
	return p.Frequency == Quarterly
}

// NextPaymentAmount returns the amount due in the current month according to
// the payment's clock.
func (p *Payment) NextPaymentAmount() decimal.Decimal {
	return p.NextPaymentAmountAt(p.clock.Now())
}

// NextPaymentAmountAt returns Amount when the next payment date is strictly
// after now and falls in now's month, and zero otherwise.
func (p *Payment) NextPaymentAmountAt(now time.Time) decimal.Decimal {
	if !p.nextPaymentDate.After(now) {
		return decimal.Zero
	}
	ny, nm, _ := p.nextPaymentDate.Date()
	y, m, _ := now.Date()
	if ny != y || nm != m {
		return decimal.Zero
	}
	return p.Amount
}

// SetFrequency parses value as a code or a name and assigns it. The current
// frequency is left untouched on error.
func (p *Payment) SetFrequency(value string, kind FrequencyInput) error {
	f, err := ParseFrequency(value, kind)
	if err != nil {
		return err
	}
	p.Frequency = f
	return nil
}

// Validate checks the mutable fields. Day and type are validated at construction.
func (p *Payment) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 200 {
		return ErrNameTooLong
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !p.Frequency.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnrecognizedFrequency, int(p.Frequency))
	}
	if !p.Category.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnrecognizedCategory, int(p.Category))
	}
	return nil
}
