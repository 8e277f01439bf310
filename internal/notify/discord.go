package notify

import (
	"context"
	"fmt"
	"net/http"

	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

const (
	colorGreen  = 0x2ECC71 // drop of 25% or more
	colorYellow = 0xF1C40F // drop of 15-25%
	colorOrange = 0xE67E22 // smaller drops
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	currency   string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// WithCurrency sets the currency code appended to prices.
func WithCurrency(c string) DiscordOption {
	return func(d *DiscordNotifier) {
		d.currency = c
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// SendDrop sends one drop as a Discord embed.
func (d *DiscordNotifier) SendDrop(
	ctx context.Context,
	userID int64,
	event domain.DropEvent,
	_ domain.Subscription,
) error {
	payload := discordWebhookPayload{
		Embeds: []discordEmbed{d.buildEmbed(userID, &event)},
	}
	_, err := postJSON(ctx, d.client, "discord", d.webhookURL, payload)
	return err
}

func (d *DiscordNotifier) buildEmbed(userID int64, event *domain.DropEvent) discordEmbed {
	pct := event.DropFraction().Shift(2)
	return discordEmbed{
		Title:       fmt.Sprintf("Price drop: %s", event.Query),
		URL:         event.Listing.URL,
		Color:       dropColor(pct.IntPart()),
		Description: event.Listing.Title,
		Fields: []discordEmbedField{
			{Name: "Was", Value: FormatPrice(event.OldPrice, d.currency), Inline: true},
			{Name: "Now", Value: FormatPrice(event.NewPrice, d.currency), Inline: true},
			{Name: "Drop", Value: pct.StringFixed(1) + "%", Inline: true},
			{Name: "User", Value: fmt.Sprintf("%d", userID), Inline: true},
		},
	}
}

func dropColor(pct int64) int {
	switch {
	case pct >= 25:
		return colorGreen
	case pct >= 15:
		return colorYellow
	default:
		return colorOrange
	}
}
