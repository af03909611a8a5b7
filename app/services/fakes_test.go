package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/services"
)

type stubDashboard struct {
	byStatus  map[models.OrderStatus]int64
	sales     float64
	monthly   []models.MonthlySales
	customers []models.Customer
	since     time.Time
}

func (s *stubDashboard) OrderTotals(context.Context) (map[models.OrderStatus]int64, float64, error) {
	return s.byStatus, s.sales, nil
}

func (s *stubDashboard) MonthlySales(_ context.Context, since time.Time) ([]models.MonthlySales, error) {
	s.since = since
	return s.monthly, nil
}

func (s *stubDashboard) Customers(context.Context) ([]models.Customer, error) {
	return s.customers, nil
}

type recordedConfirmations struct {
	mu   sync.Mutex
	reqs []services.ConfirmationRequest
}

func (r *recordedConfirmations) QueueConfirmation(_ context.Context, req services.ConfirmationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return nil
}

// catalogCache counts invalidations.
type catalogCache struct {
	mu    sync.Mutex
	drops int
}

func (c *catalogCache) InvalidateCatalog(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drops++
}

func (c *catalogCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drops
}

func (r *recordedConfirmations) all() []services.ConfirmationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]services.ConfirmationRequest(nil), r.reqs...)
}
