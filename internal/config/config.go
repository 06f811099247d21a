// Package config provides YAML-based configuration loading for Klartext.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Known provider names. The zero-cost "noop" provider is always available
// and needs no configuration.
const (
	APISummAi  = "summ_ai"
	APICapito  = "capito"
	APIChatGpt = "chatgpt"
	APINoOp    = "noop"
)

// Config is the top-level Klartext configuration, loaded from klartext.yaml.
type Config struct {
	Database  DatabaseConfig       `yaml:"database"`
	Server    ServerConfig         `yaml:"server"`
	Languages LanguageConfig       `yaml:"languages"`
	APIs      map[string]APIConfig `yaml:"apis"`
	Notify    NotifyConfig         `yaml:"notify"`
	Scheduler SchedulerConfig      `yaml:"scheduler"`
}

// DatabaseConfig holds connection settings for the fragment database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or mysql
	Path   string `yaml:"path"`   // sqlite file path
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LanguageConfig declares the source language of original content and the
// target languages simplifications may be produced in.
type LanguageConfig struct {
	Source  string   `yaml:"source"`
	Targets []string `yaml:"targets"`
}

// APIConfig configures one simplification provider.
type APIConfig struct {
	Token          string `yaml:"token"`
	URL            string `yaml:"url"`
	Model          string `yaml:"model"` // chatgpt only
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	QuotaLimit     int64  `yaml:"quota_limit"` // hard character ceiling, 0 = unlimited
	EntryLimit     int    `yaml:"entry_limit"` // max pending fragments for an interactive run
	TextLimit      int    `yaml:"text_limit"`  // max characters in a single fragment
}

// NotifyConfig configures optional run-summary notifications.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack bot credentials for notifications.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord bot credentials for notifications.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// SchedulerConfig controls background processing of queued runs.
type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // 5-field cron expression
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// API returns the configuration for the named provider. Unknown names
// return a zero config, which the provider layer rejects as unconfigured.
func (c *Config) API(name string) APIConfig {
	if c.APIs == nil {
		return APIConfig{}
	}
	return c.APIs[name]
}

// APINames returns the configured provider names in sorted order.
func (c *Config) APINames() []string {
	names := make([]string, 0, len(c.APIs))
	for name := range c.APIs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "klartext.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "klartext"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Languages.Source == "" {
		c.Languages.Source = "de_DE"
	}
	if len(c.Languages.Targets) == 0 {
		c.Languages.Targets = []string{"de_LS"}
	}
	if c.Scheduler.Schedule == "" {
		c.Scheduler.Schedule = "*/5 * * * *"
	}
	if c.APIs == nil {
		c.APIs = map[string]APIConfig{}
	}
	for name, api := range c.APIs {
		if api.TimeoutSeconds == 0 {
			api.TimeoutSeconds = 60
		}
		if api.EntryLimit == 0 {
			api.EntryLimit = defaultEntryLimit(name)
		}
		if api.TextLimit == 0 {
			api.TextLimit = defaultTextLimit(name)
		}
		if api.URL == "" {
			api.URL = defaultURL(name)
		}
		c.APIs[name] = api
	}
}

// defaultEntryLimit is the provider-specific ceiling on pending fragments
// for an interactive run; larger objects are queued for background work.
func defaultEntryLimit(name string) int {
	switch name {
	case APIChatGpt:
		return 40
	default:
		return 20
	}
}

// defaultTextLimit is the provider-specific maximum request size in
// characters for a single fragment.
func defaultTextLimit(name string) int {
	switch name {
	case APISummAi:
		return 2000
	case APICapito:
		return 3000
	default:
		return 10000
	}
}

func defaultURL(name string) string {
	switch name {
	case APISummAi:
		return "https://backend.summ-ai.com/translate/v1/"
	case APICapito:
		return "https://api.capito.ai/v2/simplify"
	default:
		return ""
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	for _, target := range c.Languages.Targets {
		if target == c.Languages.Source {
			errs = append(errs, fmt.Sprintf("languages.targets must not contain the source language %q", target))
		}
	}
	for name, api := range c.APIs {
		switch name {
		case APISummAi, APICapito, APIChatGpt, APINoOp:
		default:
			errs = append(errs, fmt.Sprintf("apis.%s is not a known provider", name))
		}
		if api.TimeoutSeconds < 0 {
			errs = append(errs, fmt.Sprintf("apis.%s.timeout_seconds must not be negative", name))
		}
		if api.QuotaLimit < 0 {
			errs = append(errs, fmt.Sprintf("apis.%s.quota_limit must not be negative", name))
		}
	}
	if c.Scheduler.Enabled && len(strings.Fields(c.Scheduler.Schedule)) != 5 {
		errs = append(errs, fmt.Sprintf("scheduler.schedule %q is not a 5-field cron expression", c.Scheduler.Schedule))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
