package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/quota"
	"gorm.io/gorm"
)

// capitoRequest is the capito wire format.
type capitoRequest struct {
	Content        string `json:"content"`
	ContentType    string `json:"content_type"` // text or html
	SourceLocale   string `json:"source_locale"`
	TargetLocale   string `json:"target_locale"`
	Separator      string `json:"separator"`
	PreserveBreaks bool   `json:"preserve_line_breaks"`
	DryRun         bool   `json:"dry_run"`
}

// capitoResponse is the subset of the capito response we consume.
type capitoResponse struct {
	Content  string `json:"content"`
	JobID    string `json:"jobid"`
	NoCount  bool   `json:"no_count"`
	Disabled bool   `json:"disabled"`
}

// CapitoOpts holds parameters for creating a capito client.
type CapitoOpts struct {
	Config  config.APIConfig
	DB      *gorm.DB
	Tracker *quota.Tracker
	BlogID  uint
	// For testing: inject a mock transport instead of a real HTTP client.
	Client Doer
}

// Capito is the capito provider client.
type Capito struct {
	cfg    config.APIConfig
	client Doer
	audit  auditor
}

// NewCapito creates a capito client.
func NewCapito(opts CapitoOpts) *Capito {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Capito{
		cfg:    opts.Config,
		client: client,
		audit: auditor{
			db:      opts.DB,
			tracker: opts.Tracker,
			apiName: config.APICapito,
			blogID:  opts.BlogID,
		},
	}
}

// Name implements Client.
func (c *Capito) Name() string { return config.APICapito }

// Call implements Client.
func (c *Capito) Call(ctx context.Context, req Request) (Result, error) {
	body := capitoRequest{
		Content:        req.Text,
		ContentType:    "text",
		SourceLocale:   req.SourceLanguage,
		TargetLocale:   req.TargetLanguage,
		Separator:      "interface",
		PreserveBreaks: true,
		DryRun:         req.Test,
	}
	if req.HTML {
		body.ContentType = "html"
	}
	logged := marshalLoggedRequest(c.cfg.URL, "Bearer", body)

	if err := checkCallable(c.cfg.Token, c.cfg.URL, req.Text); err != nil {
		c.audit.append(0, logged, err.Error(), 0, 0)
		return Result{}, err
	}
	if err := c.audit.checkQuota(req.Text); err != nil {
		c.audit.append(0, logged, err.Error(), 0, 0)
		return Result{}, err
	}

	status, respBody, duration, err := postJSON(ctx, c.client, c.cfg.URL, "Bearer "+c.cfg.Token, body, c.timeout())
	if err != nil {
		c.audit.append(status, logged, string(respBody), duration, 0)
		return Result{}, fmt.Errorf("capito: %w", err)
	}

	var parsed capitoResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.audit.append(status, logged, string(respBody), duration, 0)
		return Result{}, fmt.Errorf("capito: %w: decode response: %v", ErrTransport, err)
	}
	if parsed.Disabled {
		c.audit.append(status, logged, string(respBody), duration, 0)
		return Result{}, fmt.Errorf("capito: %w: account disabled", ErrNotConfigured)
	}
	if parsed.Content == "" {
		c.audit.append(status, logged, string(respBody), duration, 0)
		return Result{}, fmt.Errorf("capito: %w: empty content", ErrTransport)
	}

	chars := c.audit.recordUsage(req.Text, !parsed.NoCount && !req.Test)
	c.audit.append(status, logged, string(respBody), duration, chars)

	return Result{
		SimplifiedText: normalizeText(parsed.Content),
		JobID:          parsed.JobID,
	}, nil
}

func (c *Capito) timeout() time.Duration {
	if c.cfg.TimeoutSeconds > 0 {
		return time.Duration(c.cfg.TimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}
