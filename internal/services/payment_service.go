package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetpal/internal/amqp"
	"budgetpal/internal/core"
	applog "budgetpal/internal/log"
	"budgetpal/internal/storage"
)

// SchedulePublisher announces schedule changes. *amqp.Client satisfies it.
type SchedulePublisher interface {
	PublishSchedule(ctx context.Context, msg *amqp.ScheduleMessage) error
	PublishDelete(ctx context.Context, id int64) error
}

var _ SchedulePublisher = (*amqp.Client)(nil)

// ScheduledPayment pairs a stored definition with the payment built from it
// at request time. When the schedule cannot be computed for the current
// month, Payment is nil and ScheduleErr says why.
type ScheduledPayment struct {
	Record      storage.PaymentRecord
	Payment     *core.Payment
	ScheduleErr error
}

// PaymentService orchestrates payment definitions across the store and AMQP.
type PaymentService struct {
	store     storage.PaymentStore
	publisher SchedulePublisher
	clock     core.Clock
	onChange  []func()
}

// NewPaymentService wires a service. publisher may be nil.
func NewPaymentService(store storage.PaymentStore, publisher SchedulePublisher, clock core.Clock) *PaymentService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &PaymentService{store: store, publisher: publisher, clock: clock}
}

// OnChange registers fn to run after every successful mutation.
func (s *PaymentService) OnChange(fn func()) {
	s.onChange = append(s.onChange, fn)
}

// Create stores a new definition. The schedule must be computable now,
// otherwise nothing is stored.
func (s *PaymentService) Create(ctx context.Context, in storage.NewPaymentRecord) (ScheduledPayment, error) {
	if err := in.Validate(); err != nil {
		return ScheduledPayment{}, err
	}
	p, err := core.NewPayment(in.Type, in.Name, in.DayOfMonth, in.Amount,
		core.WithClock(s.clock),
		core.WithCategory(in.Category),
		core.WithFrequency(in.Frequency))
	if err != nil {
		return ScheduledPayment{}, fmt.Errorf("schedule payment: %w", err)
	}
	if err := p.Validate(); err != nil {
		return ScheduledPayment{}, err
	}

	rec, err := s.store.CreatePayment(ctx, in)
	if err != nil {
		return ScheduledPayment{}, fmt.Errorf("save payment: %w", err)
	}

	logScheduled(ctx, applog.OpCreate, rec, p)

	s.publishSchedule(ctx, rec, p)
	s.changed()
	return ScheduledPayment{Record: rec, Payment: p}, nil
}

func (s *PaymentService) Get(ctx context.Context, id int64) (ScheduledPayment, error) {
	rec, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return ScheduledPayment{}, err
	}
	return s.schedule(ctx, rec), nil
}

// List returns every definition with its current schedule.
func (s *PaymentService) List(ctx context.Context) ([]ScheduledPayment, error) {
	recs, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]ScheduledPayment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.schedule(ctx, rec))
	}
	return out, nil
}

// Update changes name, amount, frequency and category. Day of month and
// type stay as created.
func (s *PaymentService) Update(ctx context.Context, id int64, upd storage.PaymentUpdate) (ScheduledPayment, error) {
	if err := upd.Validate(); err != nil {
		return ScheduledPayment{}, err
	}
	current, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return ScheduledPayment{}, err
	}

	candidate := current
	candidate.Name = upd.Name
	candidate.Amount = upd.Amount
	candidate.Frequency = upd.Frequency
	candidate.Category = upd.Category
	p, err := candidate.Build(s.clock)
	if err != nil {
		return ScheduledPayment{}, fmt.Errorf("schedule payment: %w", err)
	}

	rec, err := s.store.UpdatePayment(ctx, id, upd)
	if err != nil {
		return ScheduledPayment{}, fmt.Errorf("update payment: %w", err)
	}

	logScheduled(ctx, applog.OpUpdate, rec, p)

	s.publishSchedule(ctx, rec, p)
	s.changed()
	return ScheduledPayment{Record: rec, Payment: p}, nil
}

func (s *PaymentService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Payment deleted", "id", id)

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping delete message", "id", id)
	} else if err := s.publisher.PublishDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}

	s.changed()
	return nil
}

// Payments builds every definition whose schedule is computable now.
func (s *PaymentService) Payments(ctx context.Context) ([]*core.Payment, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Payment, 0, len(all))
	for _, sp := range all {
		if sp.Payment != nil {
			out = append(out, sp.Payment)
		}
	}
	return out, nil
}

// Clock returns the time source payments are scheduled against.
func (s *PaymentService) Clock() core.Clock {
	return s.clock
}

func (s *PaymentService) schedule(ctx context.Context, rec storage.PaymentRecord) ScheduledPayment {
	p, err := rec.Build(s.clock)
	if err != nil {
		slog.WarnContext(ctx, "Cannot schedule payment this month",
			"id", rec.ID,
			"day_of_month", rec.DayOfMonth,
			"error", err)
		return ScheduledPayment{Record: rec, ScheduleErr: err}
	}
	return ScheduledPayment{Record: rec, Payment: p}
}

func (s *PaymentService) publishSchedule(ctx context.Context, rec storage.PaymentRecord, p *core.Payment) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping schedule message", "id", rec.ID)
		return
	}
	if err := s.publisher.PublishSchedule(ctx, amqp.NewScheduleMessage(rec.ID, rec.Version, p)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish schedule message",
			"id", rec.ID,
			"version", rec.Version,
			"error", err)
	}
}

func logScheduled(ctx context.Context, op string, rec storage.PaymentRecord, p *core.Payment) {
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogPaymentScheduled(ctx, op, rec.ID, rec.Name, rec.Type.String(), rec.Amount, p.NextPaymentDate())
}

func (s *PaymentService) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}
