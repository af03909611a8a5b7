package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMultipartAlternative(t *testing.T) {
	m := To("rider@example.com").
		Subject("Your Order Has Been Confirmed - US Gears").
		Text("Dear Asha,").
		HTML("<p>Dear Asha,</p>").
		ReplyTo("support@usgears.com").
		UseConfig(SMTP{From: "shop@usgears.com", FromName: "US Gears"})

	raw := string(m.build(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	assert.Contains(t, raw, `From: "US Gears" <shop@usgears.com>`)
	assert.Contains(t, raw, "To: rider@example.com\r\n")
	assert.Contains(t, raw, "Reply-To: support@usgears.com\r\n")
	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "Content-Type: text/plain")
	assert.Contains(t, raw, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(raw), "--"), "closing boundary")
}

func TestSendUsesTransport(t *testing.T) {
	rec := &Recorder{}
	restore := SetTransport(rec)
	defer restore()

	err := To("rider@example.com").Subject("hi").Text("body").Send(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.Sent(), 1)
	assert.Equal(t, []string{"rider@example.com"}, rec.Sent()[0].Recipients())
}

func TestSendRejectsBadInput(t *testing.T) {
	rec := &Recorder{}
	defer SetTransport(rec)()

	assert.Error(t, To().Text("x").Send(context.Background()))
	assert.Error(t, To("not an address").Text("x").Send(context.Background()))
	assert.Error(t, To("rider@example.com").Send(context.Background()))
	assert.Empty(t, rec.Sent())
}

func TestTransportErrorPropagates(t *testing.T) {
	boom := errors.New("smtp down")
	defer SetTransport(&Recorder{Err: boom})()

	err := To("rider@example.com").Text("x").Send(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSMTPRequiresUsername(t *testing.T) {
	err := smtpTransport{}.Deliver(context.Background(), To("a@b.co").Text("x").UseConfig(SMTP{}))
	assert.ErrorIs(t, err, ErrNotConfigured)
}
