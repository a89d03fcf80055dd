package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/platform/rest"
)

// DefaultTelegramURL is the Bot API root.
const DefaultTelegramURL = "https://api.telegram.org"

// TelegramSender delivers through the Bot API sendMessage call.
type TelegramSender struct {
	rest   *rest.Client
	token  string
	chatID string
}

// NewTelegramSender creates a TelegramSender. baseURL may be empty.
func NewTelegramSender(baseURL, token, chatID string) *TelegramSender {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	return &TelegramSender{
		rest:   rest.New(baseURL, 10*time.Second),
		token:  token,
		chatID: chatID,
	}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Send posts the message with a bold title using legacy Markdown.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n%s", markdownEscaper.Replace(title), markdownEscaper.Replace(message)),
		"parse_mode": "Markdown",
	}
	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := t.rest.PostJSON(ctx, "/bot"+t.token+"/sendMessage", payload, &resp); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram: %s", resp.Description)
	}
	return nil
}

func (t *TelegramSender) Name() string { return "telegram" }
