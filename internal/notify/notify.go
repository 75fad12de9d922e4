// Package notify delivers price alerts to chat channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/pkg/errors"
)

// Dispatcher sends an alert to its recipients. Delivery is not confirmed.
type Dispatcher interface {
	SendAlert(ctx context.Context, recipients []string, payload model.AlertPayload) error
}

// FormatAlert renders the chat message for an alert.
func FormatAlert(recipients []string, payload model.AlertPayload) string {
	mentions := lo.Map(recipients, func(id string, _ int) string { return "<@" + id + ">" })

	var b strings.Builder
	if len(mentions) > 0 {
		b.WriteString(strings.Join(mentions, " "))
		b.WriteString(" ")
	}
	b.WriteString("🚨 PRICE ALERT! 🚨\n")
	fmt.Fprintf(&b, "Item: %s (Condition: %s)\n", payload.ItemName, payload.Condition)
	fmt.Fprintf(&b, "Base Price: $%s\n", payload.BasePrice.StringFixed(2))
	fmt.Fprintf(&b, "Total Price: $%s!\n", payload.TotalPrice.StringFixed(2))
	fmt.Fprintf(&b, "Threshold: $%s\n", payload.Threshold.StringFixed(2))
	fmt.Fprintf(&b, "Link: %s", payload.URL)
	return b.String()
}

type allowedMentions struct {
	Users []string `json:"users"`
}

type createMessage struct {
	Content         string          `json:"content"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
}

// DiscordDispatcher posts alerts to a Discord channel through the REST API.
type DiscordDispatcher struct {
	client    *resty.Client
	channelID string
	logger    *logger.Logger
}

// NewDiscordDispatcher creates a dispatcher authenticated with a bot token.
func NewDiscordDispatcher(baseURL, token, channelID string) *DiscordDispatcher {
	client := resty.New()
	client.SetTimeout(15 * time.Second)
	client.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	client.SetHeader("Authorization", "Bot "+token)
	client.SetHeader("Content-Type", "application/json")

	return &DiscordDispatcher{
		client:    client,
		channelID: channelID,
		logger:    logger.ForNotifier(),
	}
}

// SendAlert posts one message mentioning every recipient.
func (d *DiscordDispatcher) SendAlert(ctx context.Context, recipients []string, payload model.AlertPayload) error {
	body := createMessage{
		Content:         FormatAlert(recipients, payload),
		AllowedMentions: allowedMentions{Users: recipients},
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/channels/" + d.channelID + "/messages")
	if err != nil {
		return errors.NewNetwork("discord", "send alert", err)
	}
	if resp.StatusCode() == 429 {
		return errors.NewRateLimit("discord", retryAfter(resp.Header().Get("Retry-After")))
	}
	if resp.IsError() {
		return errors.NewNetwork("discord", fmt.Sprintf("send alert: unexpected status code: %d", resp.StatusCode()), nil)
	}

	d.logger.Info().
		Str("item", payload.ItemName).
		Int("recipients", len(recipients)).
		Msg("Price alert sent")
	return nil
}

func retryAfter(header string) time.Duration {
	if d, err := time.ParseDuration(header + "s"); err == nil && d > 0 {
		return d
	}
	return time.Second
}

// LogDispatcher writes alerts to the log instead of a chat channel. Used when
// no Discord credentials are configured.
type LogDispatcher struct {
	logger *logger.Logger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{logger: logger.ForNotifier()}
}

func (d *LogDispatcher) SendAlert(_ context.Context, recipients []string, payload model.AlertPayload) error {
	d.logger.Info().Strs("recipients", recipients).Msg(FormatAlert(recipients, payload))
	return nil
}
