package notify

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/models"
)

// discordSender abstracts the Discord API method we use, enabling test
// mocks.
type discordSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts run summaries to one Discord channel.
type Discord struct {
	session   discordSender
	channelID string
}

// DiscordOpts holds parameters for creating a Discord notifier.
type DiscordOpts struct {
	Config config.DiscordConfig
	// For testing: inject a mock session instead of the real Discord API.
	Session discordSender
}

// NewDiscord creates a Discord notifier. Returns nil when no bot token
// is configured.
func NewDiscord(opts DiscordOpts) (*Discord, error) {
	session := opts.Session
	if session == nil {
		if opts.Config.BotToken == "" {
			return nil, nil
		}
		s, err := discordgo.New("Bot " + opts.Config.BotToken)
		if err != nil {
			return nil, err
		}
		session = s
	}
	return &Discord{session: session, channelID: opts.Config.ChannelID}, nil
}

// RunCompleted implements run.Notifier.
func (d *Discord) RunCompleted(_ context.Context, run *models.Run) {
	if _, err := d.session.ChannelMessageSend(d.channelID, formatSummary(run)); err != nil {
		log.Printf("notify: discord send failed: %v", err)
	}
}
