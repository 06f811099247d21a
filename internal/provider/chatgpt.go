package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/quota"
	"gorm.io/gorm"
)

// chatGptSystemPrompt instructs the model to act as a plain-language
// rewriter. Target language and register are appended per call.
const chatGptSystemPrompt = "You rewrite text in plain, easy-to-understand language. " +
	"Keep the meaning, use short sentences and common words, and answer with the rewritten text only."

// completer abstracts the chat-completion call, enabling test mocks.
type completer interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
}

// openAICompleter implements completer with the official openai-go SDK.
type openAICompleter struct {
	opts []option.RequestOption
}

func (o *openAICompleter) Complete(ctx context.Context, model, system, user string) (string, error) {
	client := openai.NewClient(o.opts...)
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatGptOpts holds parameters for creating a ChatGPT client.
type ChatGptOpts struct {
	Config  config.APIConfig
	DB      *gorm.DB
	Tracker *quota.Tracker
	BlogID  uint
	// For testing: inject a mock completer instead of the OpenAI SDK.
	Completer completer
}

// ChatGpt is the OpenAI chat-completion provider client.
type ChatGpt struct {
	cfg       config.APIConfig
	completer completer
	audit     auditor
}

// NewChatGpt creates a ChatGPT client.
func NewChatGpt(opts ChatGptOpts) *ChatGpt {
	c := &ChatGpt{
		cfg:       opts.Config,
		completer: opts.Completer,
		audit: auditor{
			db:      opts.DB,
			tracker: opts.Tracker,
			apiName: config.APIChatGpt,
			blogID:  opts.BlogID,
		},
	}
	if c.completer == nil && opts.Config.Token != "" {
		sdkOpts := []option.RequestOption{option.WithAPIKey(opts.Config.Token)}
		if opts.Config.URL != "" {
			sdkOpts = append(sdkOpts, option.WithBaseURL(opts.Config.URL))
		}
		c.completer = &openAICompleter{opts: sdkOpts}
	}
	return c
}

// Name implements Client.
func (c *ChatGpt) Name() string { return config.APIChatGpt }

// Call implements Client.
func (c *ChatGpt) Call(ctx context.Context, req Request) (Result, error) {
	model := c.cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	system := fmt.Sprintf("%s Write the result in the language tagged %q.", chatGptSystemPrompt, req.TargetLanguage)
	if req.HTML {
		system += " Preserve the HTML markup of the input."
	}
	logged := marshalLoggedRequest(c.cfg.URL, "Bearer", map[string]string{
		"model":  model,
		"system": system,
		"user":   req.Text,
	})

	if c.cfg.Token == "" && c.completer == nil {
		err := fmt.Errorf("%w: missing api token", ErrNotConfigured)
		c.audit.append(0, logged, err.Error(), 0, 0)
		return Result{}, err
	}
	if req.Text == "" {
		err := fmt.Errorf("%w: no text given", ErrNotConfigured)
		c.audit.append(0, logged, err.Error(), 0, 0)
		return Result{}, err
	}
	if err := c.audit.checkQuota(req.Text); err != nil {
		c.audit.append(0, logged, err.Error(), 0, 0)
		return Result{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	start := time.Now()
	text, err := c.completer.Complete(callCtx, model, system, req.Text)
	duration := time.Since(start)
	if err != nil {
		c.audit.append(0, logged, err.Error(), duration, 0)
		return Result{}, fmt.Errorf("chatgpt: %w: %v", ErrTransport, err)
	}
	if text == "" {
		c.audit.append(200, logged, "", duration, 0)
		return Result{}, fmt.Errorf("chatgpt: %w: empty completion", ErrTransport)
	}

	chars := c.audit.recordUsage(req.Text, !req.Test)
	response, _ := json.Marshal(map[string]string{"content": text})
	c.audit.append(200, logged, string(response), duration, chars)

	return Result{SimplifiedText: normalizeText(text)}, nil
}

func (c *ChatGpt) timeout() time.Duration {
	if c.cfg.TimeoutSeconds > 0 {
		return time.Duration(c.cfg.TimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}
