package notifications_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/notifications"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/notification"
)

func sampleOrder() *models.Order {
	return &models.Order{
		ID:      primitive.NewObjectID(),
		Billing: models.Billing{FirstName: "Asha", LastName: "Rai", Email: "asha@example.com", Phone: "980", Note: "Ring <twice>"},
		CartItems: []models.CartItem{
			{Name: "Helmet", Category: "helmets", Price: 150, Quantity: 2, Image: "img1"},
		},
		ShippingMethod: "outside",
		TrackingID:     "USG-20260101-ABCDEF12",
		Total:          549.99,
	}
}

func TestOrderConfirmedMail(t *testing.T) {
	o := sampleOrder()
	n := &notifications.OrderConfirmed{Order: o, BaseURL: "https://usgears.test/", Now: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, []string{notification.ChannelMail}, n.Via())
	m, err := n.ToMail()
	require.NoError(t, err)

	assert.Equal(t, "Your Order Has Been Confirmed - US Gears", m.Subject)
	assert.Equal(t, "Dear Asha Rai,\n\nYour order (#"+o.ID.Hex()+") has been confirmed.\nTracking ID: USG-20260101-ABCDEF12\n\nThank you for shopping with US Gears!", m.Text)

	assert.Contains(t, m.HTML, "March 4, 2026")
	assert.Contains(t, m.HTML, "https://usgears.test/api/file/img1")
	assert.Contains(t, m.HTML, "https://usgears.test/checkout/success/"+o.ID.Hex())
	assert.Contains(t, m.HTML, "Rs 300.00")
	assert.Contains(t, m.HTML, "Shipping (Outside Valley):")
	assert.Contains(t, m.HTML, "Rs 249.99")
	assert.Contains(t, m.HTML, "Rs 549.99")
	assert.Contains(t, m.HTML, "Ring &lt;twice&gt;")
	assert.Contains(t, m.HTML, "Outside")
}

func TestOrderConfirmedTrackingOverride(t *testing.T) {
	n := &notifications.OrderConfirmed{Order: sampleOrder(), TrackingID: "T-9"}
	m, err := n.ToMail()
	require.NoError(t, err)
	assert.Contains(t, m.Text, "Dear Asha Rai,")
	assert.Contains(t, m.Text, "Tracking ID: T-9")
}

func TestNewOrderAlert(t *testing.T) {
	n := &notifications.NewOrderAlert{Order: sampleOrder()}

	config.Set("SLACK_WEBHOOK_URL", "")
	assert.Empty(t, n.Via())

	config.Set("SLACK_WEBHOOK_URL", "https://hooks.example/x")
	t.Cleanup(func() { config.Set("SLACK_WEBHOOK_URL", "") })
	assert.Equal(t, []string{notification.ChannelSlack}, n.Via())

	s := n.ToSlack()
	assert.Contains(t, s.Text, "Asha Rai")
	require.Len(t, s.Attachments, 1)
	assert.Contains(t, s.Attachments[0].Title, "549.99")
}
