package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OutlookItem is one payment as seen from a given instant.
type OutlookItem struct {
	Name            string
	Type            PaymentType
	Category        Category
	Frequency       Frequency
	NextPaymentDate time.Time
	Amount          decimal.Decimal
	DueThisMonth    decimal.Decimal
}

// MonthOutlook summarizes what is still due in a specific year+month.
type MonthOutlook struct {
	Year     int
	Month    int // 1-12
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
	Items    []OutlookItem
}

// BuildOutlook sums NextPaymentAmountAt(now) per payment type. Items are
// ordered by next payment date, then by name.
func BuildOutlook(now time.Time, payments []*Payment) MonthOutlook {
	out := MonthOutlook{
		Year:     now.Year(),
		Month:    int(now.Month()),
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Items:    make([]OutlookItem, 0, len(payments)),
	}

	for _, p := range payments {
		if p == nil {
			continue
		}
		due := p.NextPaymentAmountAt(now)
		switch p.Type() {
		case Income:
			out.Income = out.Income.Add(due)
		case Expense:
			out.Expenses = out.Expenses.Add(due)
		}
		out.Items = append(out.Items, OutlookItem{
			Name:            p.Name,
			Type:            p.Type(),
			Category:        p.Category,
			Frequency:       p.Frequency,
			NextPaymentDate: p.NextPaymentDate(),
			Amount:          p.Amount,
			DueThisMonth:    due,
		})
	}

	sort.SliceStable(out.Items, func(i, j int) bool {
		a, b := out.Items[i], out.Items[j]
		if !a.NextPaymentDate.Equal(b.NextPaymentDate) {
			return a.NextPaymentDate.Before(b.NextPaymentDate)
		}
		return a.Name < b.Name
	})

	out.Net = out.Income.Sub(out.Expenses)
	return out
}
