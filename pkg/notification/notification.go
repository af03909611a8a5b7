// Package notification fans a message out over one or more channels.
//
//	type OrderConfirmed struct{ Order *models.Order }
//	func (n *OrderConfirmed) Via() []string { return []string{notification.ChannelMail} }
//	func (n *OrderConfirmed) ToMail() (notification.MailData, error) { ... }
//
//	errs := notification.Send(ctx, order.Billing.Email, &OrderConfirmed{Order: order})
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/mail"
	"github.com/usgears/storefront/pkg/metrics"
)

const (
	ChannelMail  = "mail"
	ChannelSlack = "slack"
)

// ErrSlackNotConfigured is returned when SLACK_WEBHOOK_URL is empty.
var ErrSlackNotConfigured = errors.New("notification: slack webhook URL not configured")

type MailData struct {
	To      string // overrides the notifiable address if set
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

type SlackData struct {
	Text        string
	Attachments []SlackAttachment
}

type SlackAttachment struct {
	Color  string `json:"color,omitempty"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Footer string `json:"footer,omitempty"`
}

// Notification names the channels it should go out on.
type Notification interface {
	Via() []string
}

type Mailable interface {
	ToMail() (MailData, error)
}

type Slackable interface {
	ToSlack() SlackData
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// Send dispatches n through every channel from Via and collects failures.
func Send(ctx context.Context, address string, n Notification) []error {
	var errs []error
	for _, channel := range n.Via() {
		if err := dispatch(ctx, address, channel, n); err != nil {
			logger.WithCtx(ctx).Error("notification: channel failed",
				"channel", channel, "notification", fmt.Sprintf("%T", n), "error", err)
			errs = append(errs, err)
		}
	}
	return errs
}

// Join folds Send's result into a single error.
func Join(errs []error) error { return errors.Join(errs...) }

func dispatch(ctx context.Context, address, channel string, n Notification) error {
	switch channel {
	case ChannelMail:
		m, ok := n.(Mailable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Mailable", n)
		}
		data, err := m.ToMail()
		if err != nil {
			return fmt.Errorf("notification: render mail: %w", err)
		}
		return sendMail(ctx, address, data)

	case ChannelSlack:
		s, ok := n.(Slackable)
		if !ok {
			return fmt.Errorf("notification: %T does not implement Slackable", n)
		}
		return sendSlack(ctx, config.SlackWebhookURL(), s.ToSlack())

	default:
		return fmt.Errorf("notification: unknown channel %q", channel)
	}
}

func sendMail(ctx context.Context, address string, d MailData) error {
	to := d.To
	if to == "" {
		to = address
	}
	msg := mail.To(to).Subject(d.Subject).Text(d.Text).HTML(d.HTML)
	if d.ReplyTo != "" {
		msg.ReplyTo(d.ReplyTo)
	}
	err := msg.Send(ctx)
	if err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return err
	}
	metrics.EmailsSent.WithLabelValues("sent").Inc()
	return nil
}

type slackPayload struct {
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

func sendSlack(ctx context.Context, url string, d SlackData) error {
	if url == "" {
		return ErrSlackNotConfigured
	}

	raw, err := json.Marshal(slackPayload{Text: d.Text, Attachments: d.Attachments})
	if err != nil {
		return fmt.Errorf("notification: slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("notification: slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification: slack post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification: slack returned HTTP %d", resp.StatusCode)
	}
	return nil
}
