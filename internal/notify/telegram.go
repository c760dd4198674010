package notify

import (
	"context"
	"fmt"
	"net/http"
)

// TelegramAPI is the Bot API root.
const TelegramAPI = "https://api.telegram.org"

// TelegramSender posts to a chat through the Telegram Bot API.
type TelegramSender struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender.
func NewTelegramSender(token, chatID string, client *http.Client) *TelegramSender {
	return &TelegramSender{apiBase: TelegramAPI, token: token, chatID: chatID, client: client}
}

// Send posts "*title*\nmessage" with Markdown parsing.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n%s", title, message),
		"parse_mode": "Markdown",
	}
	if err := postJSON(ctx, t.client, url, payload); err != nil {
		// url.Error embeds the request URL, which carries the token
		return fmt.Errorf("telegram: %w", redactToken(err, t.token))
	}
	return nil
}

func (t *TelegramSender) Name() string { return "telegram" }
