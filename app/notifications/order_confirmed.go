// Package notifications holds the storefront's outgoing messages.
package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/notification"
)

//go:embed templates/*.html
var templateFS embed.FS

var confirmedTmpl = template.Must(template.ParseFS(templateFS, "templates/order_confirmed.html"))

const ConfirmedSubject = "Your Order Has Been Confirmed - US Gears"

// OrderConfirmed is the customer email sent once an order ships.
type OrderConfirmed struct {
	Order      *models.Order
	TrackingID string // overrides the order's tracking id when set
	BaseURL    string
	Now        time.Time
}

func (n *OrderConfirmed) Via() []string { return []string{notification.ChannelMail} }

type confirmedItem struct {
	Name      string
	Category  string
	Quantity  int
	ImageURL  string
	LineTotal string
}

type confirmedView struct {
	Date           string
	Year           int
	OrderID        string
	TrackingID     string
	Customer       string
	TrackURL       string
	Items          []confirmedItem
	Subtotal       string
	Shipping       string
	ShippingLabel  string
	Total          string
	ShippingMethod string
	Billing        models.Billing
}

func (n *OrderConfirmed) tracking() string {
	if n.TrackingID != "" {
		return n.TrackingID
	}
	return n.Order.TrackingID
}

func (n *OrderConfirmed) ToMail() (notification.MailData, error) {
	o := n.Order
	base := strings.TrimRight(n.BaseURL, "/")
	now := n.Now
	if now.IsZero() {
		now = time.Now()
	}

	method := o.ShippingMethod
	if method == "" {
		method = o.DeliveryMethod
	}

	view := confirmedView{
		Date:           now.Format("January 2, 2006"),
		Year:           now.Year(),
		OrderID:        o.ID.Hex(),
		TrackingID:     n.tracking(),
		Customer:       o.Billing.FullName(),
		TrackURL:       base + "/checkout/success/" + o.ID.Hex(),
		ShippingMethod: capitalize(method),
		Billing:        o.Billing,
	}
	lines := make([]services.LinePrice, 0, len(o.CartItems))
	for _, it := range o.CartItems {
		view.Items = append(view.Items, confirmedItem{
			Name:      it.Name,
			Category:  it.Category,
			Quantity:  it.Quantity,
			ImageURL:  base + "/api/file/" + it.Image,
			LineTotal: services.LineTotal(it.Price, it.Quantity).StringFixed(2),
		})
		lines = append(lines, services.LinePrice{Price: it.Price, Quantity: it.Quantity})
	}
	t := services.ComputeTotals(lines, method)
	view.Subtotal = t.Subtotal.StringFixed(2)
	view.Shipping = t.Shipping.StringFixed(2)
	view.ShippingLabel = t.ShippingLabel
	view.Total = t.Total.StringFixed(2)

	var html bytes.Buffer
	if err := confirmedTmpl.Execute(&html, view); err != nil {
		return notification.MailData{}, fmt.Errorf("order confirmed template: %w", err)
	}

	text := fmt.Sprintf("Dear %s,\n\nYour order (#%s) has been confirmed.\nTracking ID: %s\n\nThank you for shopping with US Gears!",
		o.Billing.FullName(), o.ID.Hex(), n.tracking())

	return notification.MailData{
		Subject: ConfirmedSubject,
		ReplyTo: config.MailReplyTo(),
		HTML:    html.String(),
		Text:    text,
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
