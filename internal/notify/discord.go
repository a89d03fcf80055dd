package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/platform/rest"
)

// discordMaxContent is the webhook message limit.
const discordMaxContent = 2000

// DiscordSender posts to a Discord webhook.
type DiscordSender struct {
	rest *rest.Client
}

// NewDiscordSender creates a DiscordSender for webhookURL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{rest: rest.New(webhookURL, 10*time.Second)}
}

// Send renders the title in bold. Discord answers 204 on success.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	content := fmt.Sprintf("**%s**\n%s", title, message)
	if len(content) > discordMaxContent {
		content = content[:discordMaxContent]
	}
	if err := d.rest.PostJSON(ctx, "", map[string]string{"content": content}, nil); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func (d *DiscordSender) Name() string { return "discord" }
