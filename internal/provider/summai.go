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

// summAiRequest is the SUMM AI wire format.
type summAiRequest struct {
	InputText        string `json:"input_text"`
	InputTextType    string `json:"input_text_type"` // plain_text or html
	SourceLanguage   string `json:"input_language"`
	TargetLanguage   string `json:"output_language"`
	Separator        string `json:"separator"`
	NewLines         bool   `json:"new_lines"`
	EmboldenNegative bool   `json:"embolden_negative"`
	IsTest           bool   `json:"is_test"`
}

// summAiResponse is the subset of the SUMM AI response we consume.
type summAiResponse struct {
	TranslatedText string      `json:"translated_text"`
	JobID          json.Number `json:"jobid"`
	NoCount        bool        `json:"no_count"`
}

// SummAiOpts holds parameters for creating a SUMM AI client.
type SummAiOpts struct {
	Config  config.APIConfig
	DB      *gorm.DB
	Tracker *quota.Tracker
	BlogID  uint
	// For testing: inject a mock transport instead of a real HTTP client.
	Client Doer
}

// SummAi is the SUMM AI provider client.
type SummAi struct {
	cfg    config.APIConfig
	client Doer
	audit  auditor
}

// NewSummAi creates a SUMM AI client.
func NewSummAi(opts SummAiOpts) *SummAi {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &SummAi{
		cfg:    opts.Config,
		client: client,
		audit: auditor{
			db:      opts.DB,
			tracker: opts.Tracker,
			apiName: config.APISummAi,
			blogID:  opts.BlogID,
		},
	}
}

// Name implements Client.
func (s *SummAi) Name() string { return config.APISummAi }

// Call implements Client.
func (s *SummAi) Call(ctx context.Context, req Request) (Result, error) {
	body := summAiRequest{
		InputText:      req.Text,
		InputTextType:  "plain_text",
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Separator:      "interface",
		NewLines:       true,
		IsTest:         req.Test,
	}
	if req.HTML {
		body.InputTextType = "html"
	}
	logged := marshalLoggedRequest(s.cfg.URL, "Token", body)

	if err := checkCallable(s.cfg.Token, s.cfg.URL, req.Text); err != nil {
		s.audit.append(0, logged, err.Error(), 0, 0)
		return Result{}, err
	}
	if err := s.audit.checkQuota(req.Text); err != nil {
		s.audit.append(0, logged, err.Error(), 0, 0)
		return Result{}, err
	}

	status, respBody, duration, err := postJSON(ctx, s.client, s.cfg.URL, "Token "+s.cfg.Token, body, s.timeout())
	if err != nil {
		s.audit.append(status, logged, string(respBody), duration, 0)
		return Result{}, fmt.Errorf("summ_ai: %w", err)
	}

	var parsed summAiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		s.audit.append(status, logged, string(respBody), duration, 0)
		return Result{}, fmt.Errorf("summ_ai: %w: decode response: %v", ErrTransport, err)
	}
	if parsed.TranslatedText == "" {
		s.audit.append(status, logged, string(respBody), duration, 0)
		return Result{}, fmt.Errorf("summ_ai: %w: empty translated_text", ErrTransport)
	}

	chars := s.audit.recordUsage(req.Text, !parsed.NoCount && !req.Test)
	s.audit.append(status, logged, string(respBody), duration, chars)

	return Result{
		SimplifiedText: normalizeText(parsed.TranslatedText),
		JobID:          parsed.JobID.String(),
	}, nil
}

func (s *SummAi) timeout() time.Duration {
	if s.cfg.TimeoutSeconds > 0 {
		return time.Duration(s.cfg.TimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}

// checkCallable validates the short-circuit conditions shared by the HTTP
// providers: a missing token, URL or text fails before any network I/O.
func checkCallable(token, url, text string) error {
	switch {
	case token == "":
		return fmt.Errorf("%w: missing api token", ErrNotConfigured)
	case url == "":
		return fmt.Errorf("%w: missing api url", ErrNotConfigured)
	case text == "":
		return fmt.Errorf("%w: no text given", ErrNotConfigured)
	}
	return nil
}
