package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "klartext.db" {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Languages.Source != "de_DE" {
		t.Errorf("source language = %q, want de_DE", cfg.Languages.Source)
	}
	if !reflect.DeepEqual(cfg.Languages.Targets, []string{"de_LS"}) {
		t.Errorf("target languages = %v, want [de_LS]", cfg.Languages.Targets)
	}
	if cfg.Scheduler.Schedule != "*/5 * * * *" {
		t.Errorf("schedule = %q", cfg.Scheduler.Schedule)
	}
}

func TestParse_ProviderDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
apis:
  summ_ai:
    token: tok-a
  capito:
    token: tok-b
  chatgpt:
    token: sk-c
    model: gpt-4o
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	summAi := cfg.API(APISummAi)
	if summAi.URL == "" {
		t.Error("summ_ai default URL missing")
	}
	if summAi.TimeoutSeconds != 60 {
		t.Errorf("summ_ai timeout = %d, want 60", summAi.TimeoutSeconds)
	}
	if summAi.EntryLimit != 20 || summAi.TextLimit != 2000 {
		t.Errorf("summ_ai limits = %d/%d, want 20/2000", summAi.EntryLimit, summAi.TextLimit)
	}

	chatGpt := cfg.API(APIChatGpt)
	if chatGpt.EntryLimit != 40 {
		t.Errorf("chatgpt entry limit = %d, want 40", chatGpt.EntryLimit)
	}
	if chatGpt.Model != "gpt-4o" {
		t.Errorf("chatgpt model = %q, explicit value must survive defaults", chatGpt.Model)
	}

	if got := cfg.APINames(); !reflect.DeepEqual(got, []string{"capito", "chatgpt", "summ_ai"}) {
		t.Errorf("APINames = %v, want sorted names", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"unknown driver",
			"database:\n  driver: postgres\n",
			"database.driver",
		},
		{
			"source in targets",
			"languages:\n  source: de_DE\n  targets: [de_DE]\n",
			"languages.targets",
		},
		{
			"unknown provider",
			"apis:\n  deepl:\n    token: x\n",
			"apis.deepl",
		},
		{
			"negative quota",
			"apis:\n  summ_ai:\n    quota_limit: -1\n",
			"quota_limit",
		},
		{
			"bad schedule",
			"scheduler:\n  enabled: true\n  schedule: hourly\n",
			"scheduler.schedule",
		},
		{
			"not yaml",
			"{{",
			"parse",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klartext.yaml")
	content := "server:\n  port: 9090\napis:\n  noop: {}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAPI_Unknown(t *testing.T) {
	cfg := &Config{}
	if got := cfg.API("nope"); got != (APIConfig{}) {
		t.Errorf("API(nope) = %+v, want zero config", got)
	}
}
