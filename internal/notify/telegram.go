package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

const defaultTelegramAPIURL = "https://api.telegram.org"

// TelegramNotifier implements Notifier via the Telegram Bot API. The
// subscription's user id is the chat id.
type TelegramNotifier struct {
	token    string
	apiURL   string
	currency string
	client   *http.Client
}

// TelegramOption configures a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithTelegramAPIURL overrides the Bot API base URL.
func WithTelegramAPIURL(u string) TelegramOption {
	return func(n *TelegramNotifier) {
		if u != "" {
			n.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTelegramHTTPClient sets a custom HTTP client.
func WithTelegramHTTPClient(c *http.Client) TelegramOption {
	return func(n *TelegramNotifier) {
		n.client = c
	}
}

// WithTelegramCurrency sets the currency code appended to prices.
func WithTelegramCurrency(c string) TelegramOption {
	return func(n *TelegramNotifier) {
		n.currency = c
	}
}

// NewTelegramNotifier creates a notifier for the bot identified by token.
func NewTelegramNotifier(token string, opts ...TelegramOption) *TelegramNotifier {
	n := &TelegramNotifier{
		token:  token,
		apiURL: defaultTelegramAPIURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type telegramSendMessage struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendDrop implements Notifier.
func (n *TelegramNotifier) SendDrop(
	ctx context.Context,
	userID int64,
	event domain.DropEvent,
	_ domain.Subscription,
) error {
	msg := telegramSendMessage{
		ChatID: userID,
		Text:   RenderDropMessage(event, n.currency),
	}

	body, err := postJSON(ctx, n.client, "telegram", n.apiURL+"/bot"+n.token+"/sendMessage", msg)
	if err != nil {
		return n.redact(err)
	}

	var resp telegramResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decoding telegram response: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram rejected message: %s", resp.Description)
	}
	return nil
}

// redact keeps the bot token out of error strings; transport errors embed
// the request URL.
func (n *TelegramNotifier) redact(err error) error {
	if n.token == "" || !strings.Contains(err.Error(), n.token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), n.token, "<redacted>"))
}
