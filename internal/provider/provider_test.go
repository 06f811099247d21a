package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/models"
	"github.com/klartext/klartext/internal/quota"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.APILog{}, &models.APIUsage{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// mockDoer replays a canned HTTP response and records every request it
// receives.
type mockDoer struct {
	status   int
	body     string
	err      error
	requests []*http.Request
	bodies   []string
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		m.bodies = append(m.bodies, string(data))
	}
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(m.body))),
	}, nil
}

func apiLogs(t *testing.T, db *gorm.DB) []models.APILog {
	t.Helper()
	var logs []models.APILog
	if err := db.Order("id ASC").Find(&logs).Error; err != nil {
		t.Fatalf("load api logs: %v", err)
	}
	return logs
}

func summAiTracker(t *testing.T, db *gorm.DB, limit int64) *quota.Tracker {
	t.Helper()
	return quota.NewTracker(db, &config.Config{APIs: map[string]config.APIConfig{
		config.APISummAi: {QuotaLimit: limit},
	}})
}

func TestSummAi_Success(t *testing.T) {
	db := openTestDB(t)
	tracker := summAiTracker(t, db, 0)
	doer := &mockDoer{status: 200, body: `{"translated_text":"Einfacher Text.\r\n","jobid":42}`}

	client := NewSummAi(SummAiOpts{
		Config:  config.APIConfig{Token: "secret-token", URL: "https://summ.example/translate"},
		DB:      db,
		Tracker: tracker,
		Client:  doer,
	})

	result, err := client.Call(context.Background(), Request{
		Text:           "Ein sehr komplizierter Text.",
		SourceLanguage: "de_DE",
		TargetLanguage: "de_LS",
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.SimplifiedText != "Einfacher Text." {
		t.Errorf("SimplifiedText = %q, want normalized %q", result.SimplifiedText, "Einfacher Text.")
	}
	if result.JobID != "42" {
		t.Errorf("JobID = %q, want %q", result.JobID, "42")
	}

	if len(doer.requests) != 1 {
		t.Fatalf("transport calls = %d, want 1", len(doer.requests))
	}
	if auth := doer.requests[0].Header.Get("Authorization"); auth != "Token secret-token" {
		t.Errorf("Authorization = %q, want token scheme", auth)
	}
	if !strings.Contains(doer.bodies[0], `"input_text":"Ein sehr komplizierter Text."`) {
		t.Errorf("request body missing input_text: %s", doer.bodies[0])
	}

	usage, err := tracker.Usage(config.APISummAi)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if usage.Spent != 28 {
		t.Errorf("Spent = %d, want input length 28", usage.Spent)
	}

	logs := apiLogs(t, db)
	if len(logs) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(logs))
	}
	if logs[0].HTTPStatus != 200 || logs[0].Quota != 28 {
		t.Errorf("audit entry = status %d quota %d, want 200/28", logs[0].HTTPStatus, logs[0].Quota)
	}
	if strings.Contains(logs[0].Request, "secret-token") {
		t.Error("audit entry leaked the auth token")
	}
	if !strings.Contains(logs[0].Request, redacted) {
		t.Errorf("audit entry missing redaction marker: %s", logs[0].Request)
	}
}

func TestSummAi_MissingToken(t *testing.T) {
	db := openTestDB(t)
	doer := &mockDoer{status: 200, body: `{"translated_text":"x"}`}

	client := NewSummAi(SummAiOpts{
		Config: config.APIConfig{URL: "https://summ.example/translate"},
		DB:     db,
		Client: doer,
	})

	result, err := client.Call(context.Background(), Request{Text: "Text."})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if !result.Empty() {
		t.Errorf("result = %+v, want empty", result)
	}
	if len(doer.requests) != 0 {
		t.Errorf("transport calls = %d, want 0 before any network use", len(doer.requests))
	}
	if logs := apiLogs(t, db); len(logs) != 1 {
		t.Errorf("audit entries = %d, want 1 even without a network call", len(logs))
	}
}

func TestSummAi_EmptyText(t *testing.T) {
	db := openTestDB(t)
	doer := &mockDoer{}

	client := NewSummAi(SummAiOpts{
		Config: config.APIConfig{Token: "tok", URL: "https://summ.example"},
		DB:     db,
		Client: doer,
	})

	if _, err := client.Call(context.Background(), Request{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if len(doer.requests) != 0 {
		t.Errorf("transport calls = %d, want 0", len(doer.requests))
	}
}

func TestSummAi_QuotaGate(t *testing.T) {
	db := openTestDB(t)
	tracker := summAiTracker(t, db, 10)
	doer := &mockDoer{status: 200, body: `{"translated_text":"x"}`}

	client := NewSummAi(SummAiOpts{
		Config:  config.APIConfig{Token: "tok", URL: "https://summ.example"},
		DB:      db,
		Tracker: tracker,
		Client:  doer,
	})

	_, err := client.Call(context.Background(), Request{Text: "Mehr als zehn Zeichen."})
	if !errors.Is(err, quota.ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}
	if len(doer.requests) != 0 {
		t.Errorf("transport calls = %d, want 0 when quota blocks the call", len(doer.requests))
	}
}

func TestSummAi_NoCountSkipsQuota(t *testing.T) {
	db := openTestDB(t)
	tracker := summAiTracker(t, db, 0)
	doer := &mockDoer{status: 200, body: `{"translated_text":"Einfach.","no_count":true}`}

	client := NewSummAi(SummAiOpts{
		Config:  config.APIConfig{Token: "tok", URL: "https://summ.example"},
		DB:      db,
		Tracker: tracker,
		Client:  doer,
	})

	if _, err := client.Call(context.Background(), Request{Text: "Text."}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	usage, err := tracker.Usage(config.APISummAi)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if usage.Spent != 0 {
		t.Errorf("Spent = %d, want 0 for no_count response", usage.Spent)
	}
}

func TestSummAi_TestCallNotCounted(t *testing.T) {
	db := openTestDB(t)
	tracker := summAiTracker(t, db, 0)
	doer := &mockDoer{status: 200, body: `{"translated_text":"Einfach."}`}

	client := NewSummAi(SummAiOpts{
		Config:  config.APIConfig{Token: "tok", URL: "https://summ.example"},
		DB:      db,
		Tracker: tracker,
		Client:  doer,
	})

	if _, err := client.Call(context.Background(), Request{Text: "Text.", Test: true}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(doer.bodies[0], `"is_test":true`) {
		t.Errorf("request body missing is_test flag: %s", doer.bodies[0])
	}
	usage, err := tracker.Usage(config.APISummAi)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if usage.Spent != 0 {
		t.Errorf("Spent = %d, want 0 for a test call", usage.Spent)
	}
}

func TestSummAi_TransportFailure(t *testing.T) {
	db := openTestDB(t)

	tests := []struct {
		name string
		doer *mockDoer
	}{
		{"network error", &mockDoer{err: fmt.Errorf("connection refused")}},
		{"http 500", &mockDoer{status: 500, body: "internal error"}},
		{"bad json", &mockDoer{status: 200, body: "not json"}},
		{"empty translation", &mockDoer{status: 200, body: `{"translated_text":""}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewSummAi(SummAiOpts{
				Config: config.APIConfig{Token: "tok", URL: "https://summ.example"},
				DB:     db,
				Client: tt.doer,
			})
			result, err := client.Call(context.Background(), Request{Text: "Text."})
			if !errors.Is(err, ErrTransport) {
				t.Errorf("err = %v, want ErrTransport", err)
			}
			if !result.Empty() {
				t.Errorf("result = %+v, want empty on failure", result)
			}
		})
	}

	if logs := apiLogs(t, db); len(logs) != len(tests) {
		t.Errorf("audit entries = %d, want one per failed call (%d)", len(logs), len(tests))
	}
}

func TestSummAi_HTMLContentType(t *testing.T) {
	doer := &mockDoer{status: 200, body: `{"translated_text":"x"}`}
	client := NewSummAi(SummAiOpts{
		Config: config.APIConfig{Token: "tok", URL: "https://summ.example"},
		Client: doer,
	})

	if _, err := client.Call(context.Background(), Request{Text: "<p>T</p>", HTML: true}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(doer.bodies[0], `"input_text_type":"html"`) {
		t.Errorf("request body missing html content type: %s", doer.bodies[0])
	}
}

func TestCapito_Success(t *testing.T) {
	db := openTestDB(t)
	doer := &mockDoer{status: 200, body: `{"content":"Leichter Text.","jobid":"job-7"}`}

	client := NewCapito(CapitoOpts{
		Config: config.APIConfig{Token: "cap-token", URL: "https://capito.example/simplify"},
		DB:     db,
		Client: doer,
	})

	result, err := client.Call(context.Background(), Request{
		Text:           "Schwerer Text.",
		SourceLanguage: "de",
		TargetLanguage: "de-leicht",
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.SimplifiedText != "Leichter Text." {
		t.Errorf("SimplifiedText = %q", result.SimplifiedText)
	}
	if result.JobID != "job-7" {
		t.Errorf("JobID = %q, want %q", result.JobID, "job-7")
	}
	if auth := doer.requests[0].Header.Get("Authorization"); auth != "Bearer cap-token" {
		t.Errorf("Authorization = %q, want bearer scheme", auth)
	}
}

func TestCapito_Disabled(t *testing.T) {
	db := openTestDB(t)
	doer := &mockDoer{status: 200, body: `{"disabled":true}`}

	client := NewCapito(CapitoOpts{
		Config: config.APIConfig{Token: "tok", URL: "https://capito.example"},
		DB:     db,
		Client: doer,
	})

	if _, err := client.Call(context.Background(), Request{Text: "Text."}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured for disabled account", err)
	}
}

// stubCompleter returns a fixed completion.
type stubCompleter struct {
	text  string
	err   error
	calls int
}

func (s *stubCompleter) Complete(_ context.Context, _, _, _ string) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestChatGpt_Success(t *testing.T) {
	db := openTestDB(t)
	completer := &stubCompleter{text: "Einfacher Satz."}

	client := NewChatGpt(ChatGptOpts{
		Config:    config.APIConfig{Token: "sk-test"},
		DB:        db,
		Completer: completer,
	})

	result, err := client.Call(context.Background(), Request{Text: "Komplexer Satz.", TargetLanguage: "de_LS"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.SimplifiedText != "Einfacher Satz." {
		t.Errorf("SimplifiedText = %q", result.SimplifiedText)
	}
	if completer.calls != 1 {
		t.Errorf("completer calls = %d, want 1", completer.calls)
	}
}

func TestChatGpt_MissingToken(t *testing.T) {
	db := openTestDB(t)
	client := NewChatGpt(ChatGptOpts{DB: db})

	if _, err := client.Call(context.Background(), Request{Text: "Text."}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestChatGpt_CompleterFailure(t *testing.T) {
	completer := &stubCompleter{err: fmt.Errorf("rate limited")}
	client := NewChatGpt(ChatGptOpts{Completer: completer})

	if _, err := client.Call(context.Background(), Request{Text: "Text."}); !errors.Is(err, ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

func TestNoOp_Passthrough(t *testing.T) {
	db := openTestDB(t)
	client := NewNoOp(db, 0)

	result, err := client.Call(context.Background(), Request{Text: "Unveraendert."})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.SimplifiedText != "Unveraendert." {
		t.Errorf("SimplifiedText = %q, want the input back", result.SimplifiedText)
	}
	if logs := apiLogs(t, db); len(logs) != 1 {
		t.Errorf("audit entries = %d, want 1", len(logs))
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewNoOp(nil, 0))

	if _, err := registry.Get(config.APINoOp); err != nil {
		t.Errorf("Get(noop): %v", err)
	}
	if _, err := registry.Get("unknown"); err == nil {
		t.Error("expected error for unknown provider")
	}
	if names := registry.Names(); len(names) != 1 || names[0] != config.APINoOp {
		t.Errorf("Names = %v", names)
	}
}
