package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	ports "budgetpal/internal/sheets"
)

var scheduleHeader = []string{"ID", "Name", "Type", "Category", "Frequency", "NextDate", "Amount", "Version"}

const lastColumn = "H"

func headerValues() []any {
	out := make([]any, len(scheduleHeader))
	for i, h := range scheduleHeader {
		out[i] = h
	}
	return out
}

// scheduleRowValues renders row in column order. Dates use ISO format so
// USER_ENTERED turns them into real date cells.
func scheduleRowValues(row ports.ScheduleRow) []any {
	return []any{
		row.ID,
		row.Name,
		row.Type,
		row.Category,
		row.Frequency,
		row.NextDate.Format(time.DateOnly),
		row.Amount.StringFixed(2),
		row.Version,
	}
}

// findRow returns the 1-based sheet row holding id, or 0.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

// parseSchedule skips the header and any row it cannot read.
func parseSchedule(values [][]any) []ports.ScheduleRow {
	var out []ports.ScheduleRow
	for _, raw := range values {
		if row, ok := parseScheduleRow(toStrings(raw)); ok {
			out = append(out, row)
		}
	}
	return out
}

func parseScheduleRow(cols []string) (ports.ScheduleRow, bool) {
	if len(cols) < 7 {
		return ports.ScheduleRow{}, false
	}
	id, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil {
		return ports.ScheduleRow{}, false
	}
	next, err := time.Parse(time.DateOnly, cols[5])
	if err != nil {
		return ports.ScheduleRow{}, false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cols[6], ",", "."))
	if err != nil {
		return ports.ScheduleRow{}, false
	}
	row := ports.ScheduleRow{
		ID:        id,
		Name:      cols[1],
		Type:      cols[2],
		Category:  cols[3],
		Frequency: cols[4],
		NextDate:  next,
		Amount:    amount,
	}
	if len(cols) > 7 {
		row.Version, _ = strconv.ParseInt(cols[7], 10, 64)
	}
	return row, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
