package jobs_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/usgears/storefront/app/jobs"
	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/mail"
	"github.com/usgears/storefront/pkg/queue"
)

// oneOrder serves a single order; the write methods are unused by jobs.
type oneOrder struct {
	services.OrderRepository
	order *models.Order
}

func (r oneOrder) Find(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	if r.order == nil || r.order.ID != id {
		return nil, services.ErrNotFound
	}
	return r.order, nil
}

func setup(t *testing.T, o *models.Order) (*queue.Manager, *queue.MemoryDriver, *mail.Recorder) {
	t.Helper()
	driver := queue.NewMemoryDriver()
	m := queue.NewManager(driver)
	m.SetRetry(2, time.Millisecond)
	jobs.Register(m, oneOrder{order: o})

	rec := &mail.Recorder{}
	t.Cleanup(mail.SetTransport(rec))
	return m, driver, rec
}

func popAndRun(t *testing.T, m *queue.Manager, d *queue.MemoryDriver) {
	t.Helper()
	raw, err := d.Pop(context.Background())
	require.NoError(t, err)
	m.Process(context.Background(), raw)
}

func TestConfirmationEmailIsQueuedAndSent(t *testing.T) {
	o := &models.Order{
		ID:        primitive.NewObjectID(),
		Billing:   models.Billing{FirstName: "Asha", LastName: "Rai", Email: "asha@example.com"},
		CartItems: []models.CartItem{{Name: "Helmet", Price: 150, Quantity: 1}},
	}
	m, driver, rec := setup(t, o)

	err := jobs.Confirmations{Queue: m}.QueueConfirmation(context.Background(), services.ConfirmationRequest{
		OrderID:    o.ID.Hex(),
		Email:      "asha@example.com",
		Name:       "Asha Rai",
		TrackingID: "USG-1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, driver.Len())

	popAndRun(t, m, driver)

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"asha@example.com"}, sent[0].Recipients())
	assert.Equal(t, "Your Order Has Been Confirmed - US Gears", sent[0].SubjectLine())
	assert.Contains(t, sent[0].TextBody(), "Tracking ID: USG-1")
	assert.Empty(t, m.FailedJobs())
}

func TestConfirmationGoesToBillingContact(t *testing.T) {
	o := &models.Order{
		ID:      primitive.NewObjectID(),
		Billing: models.Billing{FirstName: "Bikash", LastName: "Thapa", Email: "bikash@example.com"},
	}
	m, driver, rec := setup(t, o)

	err := jobs.Confirmations{Queue: m}.QueueConfirmation(context.Background(), services.ConfirmationRequest{
		OrderID:    o.ID.Hex(),
		Email:      "someone-else@example.com",
		Name:       "Hey",
		TrackingID: "T1",
	})
	require.NoError(t, err)
	popAndRun(t, m, driver)

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"bikash@example.com"}, sent[0].Recipients())
	assert.True(t, strings.HasPrefix(sent[0].TextBody(), "Dear Bikash Thapa,"), sent[0].TextBody())
}

func TestConfirmationWithoutBillingEmailFails(t *testing.T) {
	o := &models.Order{ID: primitive.NewObjectID(), Billing: models.Billing{FirstName: "Asha"}}
	m, driver, rec := setup(t, o)

	require.NoError(t, m.Dispatch(context.Background(), &jobs.SendOrderConfirmation{OrderID: o.ID.Hex()}))
	popAndRun(t, m, driver)

	assert.Empty(t, rec.Sent())
	require.Len(t, m.FailedJobs(), 1)
}

func TestConfirmationForMissingOrderFails(t *testing.T) {
	m, driver, rec := setup(t, nil)

	require.NoError(t, m.Dispatch(context.Background(), &jobs.SendOrderConfirmation{OrderID: primitive.NewObjectID().Hex()}))
	popAndRun(t, m, driver)

	assert.Empty(t, rec.Sent())
	failed := m.FailedJobs()
	require.Len(t, failed, 1)
	assert.Equal(t, jobs.SendOrderConfirmationName, failed[0].JobType)
	assert.Equal(t, 2, failed[0].Attempts)
}

func TestConfirmationRetriesMailFailures(t *testing.T) {
	o := &models.Order{ID: primitive.NewObjectID(), Billing: models.Billing{Email: "a@b.co"}}
	m, driver, rec := setup(t, o)
	rec.Err = errors.New("smtp down")

	require.NoError(t, m.Dispatch(context.Background(), &jobs.SendOrderConfirmation{OrderID: o.ID.Hex(), TrackingID: "T"}))
	popAndRun(t, m, driver)

	failed := m.FailedJobs()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "smtp down")
}
