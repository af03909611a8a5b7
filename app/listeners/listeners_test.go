package listeners_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/usgears/storefront/app/listeners"
	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/event"
	"github.com/usgears/storefront/pkg/metrics"
)

type feed struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (f *feed) Publish(eventType string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	f.data = append(f.data, data)
}

type confirmations struct {
	reqs []services.ConfirmationRequest
}

func (c *confirmations) QueueConfirmation(_ context.Context, req services.ConfirmationRequest) error {
	c.reqs = append(c.reqs, req)
	return nil
}

func TestOrderListeners(t *testing.T) {
	t.Cleanup(event.Flush)
	f := &feed{}
	c := &confirmations{}
	listeners.Register(listeners.Deps{Feed: f, Confirmations: c})

	o := &models.Order{
		ID:         primitive.NewObjectID(),
		Billing:    models.Billing{FirstName: "Asha", LastName: "Rai", Email: "asha@example.com"},
		Total:      120,
		Status:     models.StatusConfirmed,
		TrackingID: "USG-1",
	}
	ctx := context.Background()
	placedBefore := testutil.ToFloat64(metrics.OrdersPlaced)
	confirmedBefore := testutil.ToFloat64(metrics.OrderTransitions.WithLabelValues("verified", "confirmed"))

	event.Fire(ctx, services.EventOrderCreated, services.OrderEvent{Order: o, To: models.StatusUnverified})
	ev := services.OrderEvent{Order: o, From: models.StatusVerified, To: models.StatusConfirmed}
	event.Fire(ctx, services.EventOrderStatusChanged, ev)
	event.Fire(ctx, services.EventOrderConfirmed, ev)

	assert.Equal(t, []string{services.EventOrderCreated, services.EventOrderStatusChanged}, f.events)
	last := f.data[1].(listeners.FeedOrder)
	assert.Equal(t, models.StatusVerified, last.From)
	assert.Equal(t, "Asha Rai", last.Customer)

	assert.Equal(t, placedBefore+1, testutil.ToFloat64(metrics.OrdersPlaced))
	assert.Equal(t, confirmedBefore+1, testutil.ToFloat64(metrics.OrderTransitions.WithLabelValues("verified", "confirmed")))

	require.Len(t, c.reqs, 1)
	assert.Equal(t, services.ConfirmationRequest{
		OrderID:    o.ID.Hex(),
		Email:      "asha@example.com",
		Name:       "Asha Rai",
		TrackingID: "USG-1",
	}, c.reqs[0])
}
