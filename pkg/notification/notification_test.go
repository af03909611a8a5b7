package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/mail"
	"github.com/usgears/storefront/pkg/notification"
)

type confirmed struct{ channels []string }

func (n confirmed) Via() []string { return n.channels }

func (confirmed) ToMail() (notification.MailData, error) {
	return notification.MailData{Subject: "Your Order Has Been Confirmed - US Gears", Text: "Dear Asha", HTML: "<p>Dear Asha</p>"}, nil
}

func (confirmed) ToSlack() notification.SlackData {
	return notification.SlackData{Text: "Order confirmed"}
}

type broken struct{}

func (broken) Via() []string { return []string{notification.ChannelMail} }
func (broken) ToMail() (notification.MailData, error) {
	return notification.MailData{}, errors.New("template exploded")
}

func TestSendMail(t *testing.T) {
	rec := &mail.Recorder{}
	defer mail.SetTransport(rec)()

	errs := notification.Send(context.Background(), "asha@example.com", confirmed{channels: []string{notification.ChannelMail}})
	require.Empty(t, errs)
	require.Len(t, rec.Sent(), 1)

	msg := rec.Sent()[0]
	assert.Equal(t, []string{"asha@example.com"}, msg.Recipients())
	assert.Equal(t, "Your Order Has Been Confirmed - US Gears", msg.SubjectLine())
	assert.Equal(t, "<p>Dear Asha</p>", msg.HTMLBody())
}

func TestSendSlack(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	config.Set("SLACK_WEBHOOK_URL", srv.URL)
	defer config.Set("SLACK_WEBHOOK_URL", "")

	errs := notification.Send(context.Background(), "", confirmed{channels: []string{notification.ChannelSlack}})
	require.Empty(t, errs)
	assert.Equal(t, "Order confirmed", got["text"])
}

func TestSlackWithoutWebhook(t *testing.T) {
	config.Set("SLACK_WEBHOOK_URL", "")
	errs := notification.Send(context.Background(), "", confirmed{channels: []string{notification.ChannelSlack}})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], notification.ErrSlackNotConfigured)
}

func TestRenderFailureAndUnknownChannel(t *testing.T) {
	defer mail.SetTransport(&mail.Recorder{})()

	errs := notification.Send(context.Background(), "a@b.co", broken{})
	assert.Len(t, errs, 1)

	errs = notification.Send(context.Background(), "a@b.co", confirmed{channels: []string{"sms"}})
	assert.Len(t, errs, 1)
	assert.Error(t, notification.Join(errs))
}
