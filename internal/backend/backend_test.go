package backend

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budgetpal/internal/config"
)

func quietFactory() Factory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "/tmp/x.db",
		AMQPURL:      "amqp://localhost",
		AMQPExchange: "ex",
		AMQPQueue:    "q",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" || cfg.AMQPQueue != "q" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "database path is required"},
		{"unknown type", Config{Type: "csv"}, "invalid backend type"},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, "exchange and queue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.txt")
	if err := os.WriteFile(seed, []byte("Expense;Rent;1;1500;Monthly;Fixed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := quietFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: seed})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if res.Publisher() != nil {
		t.Error("publisher should be a nil interface without AMQP")
	}
	if err := res.Ready(context.Background()); err != nil {
		t.Errorf("Ready: %v", err)
	}
	recs, err := res.Store.ListPayments(context.Background())
	if err != nil || len(recs) != 1 || recs[0].Name != "Rent" {
		t.Fatalf("seeded records = %+v, %v", recs, err)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budgetpal.db")
	res, err := quietFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if err := res.Ready(context.Background()); err != nil {
		t.Errorf("Ready: %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup: %v", err)
	}
}

func TestCreateBackend_Invalid(t *testing.T) {
	if _, err := quietFactory().CreateBackend(context.Background(), Config{Type: "csv"}); err == nil {
		t.Error("expected error")
	}
}

func TestBackendType_Shared(t *testing.T) {
	if !SQLiteBackend.Shared() {
		t.Error("sqlite should be shared")
	}
	if MemoryBackend.Shared() {
		t.Error("memory should not be shared")
	}
}
