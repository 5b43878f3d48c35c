package memory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"budgetpal/internal/core"
	"budgetpal/internal/storage"
)

// Store is an in-process PaymentStore used in development and tests.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]storage.PaymentRecord
	now    func() time.Time
}

var _ storage.PaymentStore = (*Store)(nil)

func New() *Store {
	return &Store{
		items: make(map[int64]storage.PaymentRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NewFromFile seeds a store from a semicolon separated file with one
// payment per line: type;name;day;amount;frequency;category.
// A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	seeds, err := readSeeds(path)
	if err != nil {
		return nil, err
	}
	for _, in := range seeds {
		if _, err := s.CreatePayment(context.Background(), in); err != nil {
			return nil, fmt.Errorf("seed %q: %w", in.Name, err)
		}
	}
	return s, nil
}

func (s *Store) CreatePayment(ctx context.Context, in storage.NewPaymentRecord) (storage.PaymentRecord, error) {
	if err := in.Validate(); err != nil {
		return storage.PaymentRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	rec := storage.PaymentRecord{
		ID:         s.nextID,
		Name:       in.Name,
		DayOfMonth: in.DayOfMonth,
		Amount:     in.Amount,
		Frequency:  in.Frequency,
		Category:   in.Category,
		Type:       in.Type,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.items[rec.ID] = rec

	slog.DebugContext(ctx, "Payment stored in memory", "id", rec.ID, "name", rec.Name)
	return rec, nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (storage.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return storage.PaymentRecord{}, fmt.Errorf("get payment %d: %w", id, storage.ErrNotFound)
	}
	return rec, nil
}

// ListPayments orders records the same way the SQLite repository does.
func (s *Store) ListPayments(_ context.Context) ([]storage.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.PaymentRecord, 0, len(s.items))
	for _, rec := range s.items {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfMonth != out[j].DayOfMonth {
			return out[i].DayOfMonth < out[j].DayOfMonth
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdatePayment(_ context.Context, id int64, in storage.PaymentUpdate) (storage.PaymentRecord, error) {
	if err := in.Validate(); err != nil {
		return storage.PaymentRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return storage.PaymentRecord{}, fmt.Errorf("update payment %d: %w", id, storage.ErrNotFound)
	}
	rec.Name = in.Name
	rec.Amount = in.Amount
	rec.Frequency = in.Frequency
	rec.Category = in.Category
	rec.Version++
	rec.UpdatedAt = s.now()
	s.items[id] = rec
	return rec, nil
}

func (s *Store) DeletePayment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("delete payment %d: %w", id, storage.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Close() error { return nil }

func readSeeds(path string) ([]storage.NewPaymentRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var out []storage.NewPaymentRecord
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		in, err := parseSeed(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		out = append(out, in)
	}
	return out, sc.Err()
}

func parseSeed(line string) (storage.NewPaymentRecord, error) {
	parts := strings.Split(line, ";")
	if len(parts) != 6 {
		return storage.NewPaymentRecord{}, fmt.Errorf("expected 6 fields, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	typ, err := core.ParsePaymentType(parts[0])
	if err != nil {
		return storage.NewPaymentRecord{}, err
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return storage.NewPaymentRecord{}, fmt.Errorf("day of month %q: %w", parts[2], err)
	}
	amount, err := core.ParseAmount(parts[3])
	if err != nil {
		return storage.NewPaymentRecord{}, err
	}
	freq, err := core.ParseFrequency(parts[4], core.FrequencyName)
	if err != nil {
		return storage.NewPaymentRecord{}, err
	}
	cat, err := core.ParseCategory(parts[5])
	if err != nil {
		return storage.NewPaymentRecord{}, err
	}
	return storage.NewPaymentRecord{
		Name:       parts[1],
		DayOfMonth: day,
		Amount:     amount,
		Frequency:  freq,
		Category:   cat,
		Type:       typ,
	}, nil
}
