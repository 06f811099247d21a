package quota

import (
	"errors"
	"testing"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestTracker(t *testing.T, apis map[string]config.APIConfig) *Tracker {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.APIUsage{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return NewTracker(db, &config.Config{APIs: apis})
}

func TestRecord_Accumulates(t *testing.T) {
	tracker := openTestTracker(t, map[string]config.APIConfig{
		"summ_ai": {QuotaLimit: 1000},
	})

	for _, charCount := range []int{100, 250, 0, -5, 50} {
		if err := tracker.Record("summ_ai", charCount); err != nil {
			t.Fatalf("Record(%d): %v", charCount, err)
		}
	}

	usage, err := tracker.Usage("summ_ai")
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if usage.Spent != 400 {
		t.Errorf("Spent = %d, want 400 (zero and negative counts ignored)", usage.Spent)
	}
	if usage.Limit != 1000 {
		t.Errorf("Limit = %d, want 1000", usage.Limit)
	}
}

func TestCheckCall(t *testing.T) {
	tracker := openTestTracker(t, map[string]config.APIConfig{
		"summ_ai": {QuotaLimit: 100},
		"capito":  {},
	})

	if err := tracker.CheckCall("summ_ai", 100); err != nil {
		t.Errorf("exactly at the limit should pass: %v", err)
	}
	if err := tracker.CheckCall("summ_ai", 101); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("over the limit should be ErrQuotaExceeded, got %v", err)
	}

	if err := tracker.Record("summ_ai", 80); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := tracker.CheckCall("summ_ai", 21); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("spent 80 of 100, 21 more should be ErrQuotaExceeded, got %v", err)
	}

	// Limit 0 means unlimited.
	if err := tracker.CheckCall("capito", 1_000_000); err != nil {
		t.Errorf("unlimited provider should never exceed: %v", err)
	}
}

func TestCheck(t *testing.T) {
	tracker := openTestTracker(t, map[string]config.APIConfig{
		"summ_ai": {EntryLimit: 10, TextLimit: 500},
		"noop":    {},
	})

	tests := []struct {
		name       string
		apiName    string
		entryCount int
		maxTextLen int
		want       Status
	}{
		{"within limits", "summ_ai", 10, 500, OK},
		{"too many entries", "summ_ai", 11, 100, AboveEntryLimit},
		{"oversized text", "summ_ai", 5, 501, AboveTextLimit},
		{"text limit wins over entry limit", "summ_ai", 11, 501, AboveTextLimit},
		{"no limits configured", "noop", 10_000, 1_000_000, OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tracker.Check(tt.apiName, tt.entryCount, tt.maxTextLen); got != tt.want {
				t.Errorf("Check(%s, %d, %d) = %v, want %v", tt.apiName, tt.entryCount, tt.maxTextLen, got, tt.want)
			}
		})
	}
}

func TestReset(t *testing.T) {
	tracker := openTestTracker(t, map[string]config.APIConfig{
		"summ_ai": {QuotaLimit: 100},
	})

	if err := tracker.Record("summ_ai", 90); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := tracker.CheckCall("summ_ai", 50); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected exceeded before reset, got %v", err)
	}

	if err := tracker.Reset("summ_ai"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	usage, err := tracker.Usage("summ_ai")
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if usage.Spent != 0 {
		t.Errorf("Spent after reset = %d, want 0", usage.Spent)
	}
	if err := tracker.CheckCall("summ_ai", 50); err != nil {
		t.Errorf("CheckCall after reset: %v", err)
	}
}

func TestStatusString(t *testing.T) {
	for status, want := range map[Status]string{
		OK:              "ok",
		AboveEntryLimit: "above_entry_limit",
		AboveTextLimit:  "above_text_limit",
	} {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(status), got, want)
		}
	}
}
