// internal/notify/notifier.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/events"
)

// Message is the body posted to the webhook.
type Message struct {
	UserID string           `json:"user_id"`
	Type   events.EventType `json:"type"`
	Text   string           `json:"text"`
	Link   string           `json:"link,omitempty"`
	Time   time.Time        `json:"time"`
}

// Config for the webhook notifier. An empty WebhookURL only logs.
type Config struct {
	WebhookURL string
	Timeout    time.Duration
	Retries    uint
}

// Notifier turns engine events into user-facing messages.
type Notifier struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("notify"),
	}
}

// Attach subscribes the notifier to every event on the bus.
func (n *Notifier) Attach(bus *events.Bus) events.Subscription {
	return bus.SubscribeAll(events.HandlerFunc(n.Handle))
}

// Handle formats the event and delivers it. Unknown events are ignored.
func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	msg, ok := Format(event)
	if !ok {
		return nil
	}
	n.logger.Info("Notification",
		zap.String("user_id", msg.UserID),
		zap.String("type", string(msg.Type)),
		zap.String("text", msg.Text))

	if n.cfg.WebhookURL == "" {
		return nil
	}
	return n.deliver(ctx, msg)
}

func (n *Notifier) deliver(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	op := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return struct{}{}, fmt.Errorf("webhook returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return struct{}{}, backoff.Permanent(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}
		return struct{}{}, nil
	}

	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(n.cfg.Retries),
		backoff.WithMaxElapsedTime(n.cfg.Timeout*time.Duration(n.cfg.Retries)))
	if err != nil {
		n.logger.Warn("Webhook delivery failed", zap.String("user_id", msg.UserID), zap.Error(err))
		return fmt.Errorf("deliver notification: %w", err)
	}
	return nil
}

// Format renders an event as a chat message.
func Format(event events.Event) (Message, bool) {
	msg := Message{Type: event.Type(), Time: event.Timestamp()}

	switch e := event.(type) {
	case events.TradeEvent:
		msg.UserID, msg.Link = e.UserID, e.ExplorerURL
		if e.Error != "" {
			msg.Text = fmt.Sprintf("%s failed: %s", titleCase(e.Action), e.Error)
		} else {
			msg.Text = fmt.Sprintf("%s sent: %s", titleCase(e.Action), e.ExplorerURL)
		}
	case events.BundleEvent:
		msg.UserID, msg.Link = e.UserID, e.ExplorerURL
		if e.Error != "" {
			msg.Text = fmt.Sprintf("Token launch failed: %s", e.Error)
		} else {
			msg.Text = fmt.Sprintf("Token %s launched: %s", e.Mint, e.ExplorerURL)
		}
	case events.ScheduleEvent:
		msg.UserID, msg.Link = e.UserID, e.ExplorerURL
		switch e.EventType {
		case events.ScheduleStarted:
			if e.Replaced {
				msg.Text = fmt.Sprintf("Recurring buy of %s restarted", e.Mint)
			} else {
				msg.Text = fmt.Sprintf("Recurring buy of %s started", e.Mint)
			}
		case events.ScheduleStopped:
			msg.Text = fmt.Sprintf("Recurring buy of %s stopped", e.Mint)
		default:
			if e.Success {
				msg.Text = fmt.Sprintf("Recurring buy #%d of %s: %s", e.Iteration, e.Mint, e.ExplorerURL)
			} else {
				msg.Text = fmt.Sprintf("Recurring buy #%d of %s failed: %s", e.Iteration, e.Mint, e.Error)
			}
		}
	default:
		return Message{}, false
	}
	return msg, true
}

func titleCase(s string) string {
	if s == "" {
		return "Trade"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
