package services

import (
	"context"
	"log/slog"

	"budgetpal/internal/cache"
	"budgetpal/internal/core"
)

// OutlookService answers "what is still due this month", cached per day.
type OutlookService struct {
	payments *PaymentService
	cache    cache.Cache[core.MonthOutlook]
}

// NewOutlookService registers itself for invalidation on payments.
func NewOutlookService(payments *PaymentService, c cache.Cache[core.MonthOutlook]) *OutlookService {
	s := &OutlookService{payments: payments, cache: c}
	payments.OnChange(s.Invalidate)
	return s
}

func (s *OutlookService) MonthOutlook(ctx context.Context) (core.MonthOutlook, error) {
	now := s.payments.Clock().Now()
	key := cache.DayKey(now)

	if s.cache != nil {
		if o, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Outlook cache hit", "day", key)
			return o, nil
		}
	}

	payments, err := s.payments.Payments(ctx)
	if err != nil {
		return core.MonthOutlook{}, err
	}
	o := core.BuildOutlook(now, payments)

	if s.cache != nil {
		s.cache.Set(key, o)
	}
	return o, nil
}

// Invalidate drops every cached outlook.
func (s *OutlookService) Invalidate() {
	if s.cache != nil {
		s.cache.Clear()
	}
}
