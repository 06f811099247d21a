package notify

import (
	"context"
	"log"

	slackapi "github.com/slack-go/slack"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/models"
)

// slackPoster abstracts the Slack API method we use, enabling test mocks.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts run summaries to one Slack channel.
type Slack struct {
	client    slackPoster
	channelID string
}

// SlackOpts holds parameters for creating a Slack notifier.
type SlackOpts struct {
	Config config.SlackConfig
	// For testing: inject a mock client instead of the real Slack API.
	Client slackPoster
}

// NewSlack creates a Slack notifier. Returns nil when no bot token is
// configured, which callers treat as "notifications off".
func NewSlack(opts SlackOpts) *Slack {
	client := opts.Client
	if client == nil {
		if opts.Config.BotToken == "" {
			return nil
		}
		client = slackapi.New(opts.Config.BotToken)
	}
	return &Slack{client: client, channelID: opts.Config.ChannelID}
}

// RunCompleted implements run.Notifier.
func (s *Slack) RunCompleted(ctx context.Context, run *models.Run) {
	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slackapi.MsgOptionText(formatSummary(run), false))
	if err != nil {
		log.Printf("notify: slack post failed: %v", err)
	}
}
