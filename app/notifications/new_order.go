package notifications

import (
	"fmt"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/notification"
)

// NewOrderAlert tells the shop's Slack channel about a checkout. It goes
// nowhere when no webhook is configured.
type NewOrderAlert struct {
	Order *models.Order
}

func (n *NewOrderAlert) Via() []string {
	if config.SlackWebhookURL() == "" {
		return nil
	}
	return []string{notification.ChannelSlack}
}

func (n *NewOrderAlert) ToSlack() notification.SlackData {
	o := n.Order
	return notification.SlackData{
		Text: fmt.Sprintf("New order #%s from %s", o.ID.Hex(), o.Billing.FullName()),
		Attachments: []notification.SlackAttachment{{
			Color:  "#dc2626",
			Title:  fmt.Sprintf("Rs %.2f · %d item(s)", o.Total, len(o.CartItems)),
			Text:   fmt.Sprintf("%s · %s · %s", o.Billing.Email, o.Billing.Phone, o.ShippingMethod),
			Footer: "Awaiting payment verification",
		}},
	}
}
