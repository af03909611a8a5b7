// Package jobs holds the storefront's queued background work.
package jobs

import (
	"context"
	"fmt"

	"github.com/usgears/storefront/app/notifications"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/notification"
	"github.com/usgears/storefront/pkg/queue"
)

const SendOrderConfirmationName = "send_order_confirmation"

// SendOrderConfirmation emails the customer that their order was confirmed.
// The order is reloaded when the job runs, so the mail goes to the current
// billing address and shows the current lines.
type SendOrderConfirmation struct {
	OrderID    string `json:"orderId"`
	TrackingID string `json:"trackingId"`

	orders services.OrderRepository
}

func (j *SendOrderConfirmation) JobName() string { return SendOrderConfirmationName }

func (j *SendOrderConfirmation) Handle(ctx context.Context) error {
	if j.orders == nil {
		return fmt.Errorf("jobs: %s has no order repository", SendOrderConfirmationName)
	}
	id, err := services.ParseID(j.OrderID)
	if err != nil {
		return err
	}
	order, err := j.orders.Find(ctx, id)
	if err != nil {
		return fmt.Errorf("load order %s: %w", j.OrderID, err)
	}

	to := order.Billing.Email
	if to == "" {
		return fmt.Errorf("order %s has no billing email", j.OrderID)
	}
	n := &notifications.OrderConfirmed{
		Order:      order,
		TrackingID: j.TrackingID,
		BaseURL:    config.BaseURL(),
	}
	if err := notification.Join(notification.Send(ctx, to, n)); err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("order confirmation sent", "order_id", j.OrderID, "to", to)
	return nil
}

// Register installs every job on m. Jobs get their dependencies here rather
// than through the encoded payload.
func Register(m *queue.Manager, orders services.OrderRepository) {
	m.Register(SendOrderConfirmationName, func() queue.Job {
		return &SendOrderConfirmation{orders: orders}
	})
}

// Confirmations queues confirmation emails on a queue manager.
type Confirmations struct {
	Queue *queue.Manager
}

func (c Confirmations) QueueConfirmation(ctx context.Context, req services.ConfirmationRequest) error {
	return c.Queue.Dispatch(ctx, &SendOrderConfirmation{
		OrderID:    req.OrderID,
		TrackingID: req.TrackingID,
	})
}

var _ services.ConfirmationQueue = Confirmations{}
