// Package listeners reacts to order events: the admin feed, metrics, the
// Slack alert and the confirmation email.
package listeners

import (
	"context"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/notifications"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/event"
	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/metrics"
	"github.com/usgears/storefront/pkg/notification"
)

// Publisher is the admin live feed.
type Publisher interface {
	Publish(eventType string, data any)
}

type Deps struct {
	Feed          Publisher
	Confirmations services.ConfirmationQueue
}

// FeedOrder is what admins see on the live feed.
type FeedOrder struct {
	OrderID    string             `json:"orderId"`
	Customer   string             `json:"customer"`
	Total      float64            `json:"total"`
	Status     models.OrderStatus `json:"status"`
	From       models.OrderStatus `json:"from,omitempty"`
	TrackingID string             `json:"trackingId,omitempty"`
}

func feedOrder(ev services.OrderEvent) FeedOrder {
	return FeedOrder{
		OrderID:    ev.Order.ID.Hex(),
		Customer:   ev.Order.Billing.FullName(),
		Total:      ev.Order.Total,
		Status:     ev.To,
		From:       ev.From,
		TrackingID: ev.Order.TrackingID,
	}
}

// Register wires every order listener onto the event bus.
func Register(d Deps) {
	event.Listen(services.EventOrderCreated, func(ctx context.Context, payload any) {
		ev, ok := payload.(services.OrderEvent)
		if !ok {
			return
		}
		metrics.OrdersPlaced.Inc()
		if d.Feed != nil {
			d.Feed.Publish(services.EventOrderCreated, feedOrder(ev))
		}
		// Slack is slow; checkout should not wait for it.
		go notification.Send(context.WithoutCancel(ctx), "", &notifications.NewOrderAlert{Order: ev.Order})
	})

	event.Listen(services.EventOrderStatusChanged, func(_ context.Context, payload any) {
		ev, ok := payload.(services.OrderEvent)
		if !ok {
			return
		}
		metrics.OrderTransitions.WithLabelValues(string(ev.From), string(ev.To)).Inc()
		if d.Feed != nil {
			d.Feed.Publish(services.EventOrderStatusChanged, feedOrder(ev))
		}
	})

	event.Listen(services.EventOrderConfirmed, func(ctx context.Context, payload any) {
		ev, ok := payload.(services.OrderEvent)
		if !ok || d.Confirmations == nil {
			return
		}
		o := ev.Order
		err := d.Confirmations.QueueConfirmation(ctx, services.ConfirmationRequest{
			OrderID:    o.ID.Hex(),
			Email:      o.Billing.Email,
			Name:       o.Billing.FullName(),
			TrackingID: o.TrackingID,
		})
		if err != nil {
			logger.WithCtx(ctx).Error("listeners: queue confirmation failed", "order_id", o.ID.Hex(), "error", err)
		}
	})
}
