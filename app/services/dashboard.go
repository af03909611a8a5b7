package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/usgears/storefront/app/models"
)

const salesMonths = 6

type DashboardService struct {
	stats    DashboardRepository
	products ProductRepository
	now      func() time.Time
}

func NewDashboardService(stats DashboardRepository, products ProductRepository) *DashboardService {
	return &DashboardService{stats: stats, products: products, now: func() time.Time { return time.Now().UTC() }}
}

// Stats summarises sales. Only confirmed orders count as sales; the average
// order value is over confirmed orders too.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var (
		byStatus  map[models.OrderStatus]int64
		sales     float64
		products  int64
		customers []models.Customer
		monthly   []models.MonthlySales
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byStatus, sales, err = s.stats.OrderTotals(gctx)
		return err
	})
	g.Go(func() (err error) {
		products, err = s.products.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		customers, err = s.stats.Customers(gctx)
		return err
	})
	g.Go(func() (err error) {
		monthly, err = s.stats.MonthlySales(gctx, s.salesWindowStart())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &models.DashboardStats{
		TotalSales:     Float(decimal.NewFromFloat(sales)),
		OrdersByStatus: map[models.OrderStatus]int64{},
		ProductCount:   products,
		CustomerCount:  int64(len(customers)),
		MonthlySales:   fillMonths(monthly, s.salesWindowStart(), salesMonths),
	}
	for _, st := range []models.OrderStatus{models.StatusUnverified, models.StatusVerified, models.StatusConfirmed} {
		out.OrdersByStatus[st] = byStatus[st]
		out.TotalOrders += byStatus[st]
	}
	if n := byStatus[models.StatusConfirmed]; n > 0 {
		out.AverageOrderValue = Float(decimal.NewFromFloat(sales).Div(decimal.NewFromInt(n)))
	}
	return out, nil
}

// salesWindowStart is the first day of the month five months back, so the
// window covers the current month plus the five before it.
func (s *DashboardService) salesWindowStart() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month()-salesMonths+1, 1, 0, 0, 0, 0, time.UTC)
}

// fillMonths returns one entry per month from start, zero-filling gaps.
func fillMonths(got []models.MonthlySales, start time.Time, n int) []models.MonthlySales {
	byMonth := make(map[string]models.MonthlySales, len(got))
	for _, m := range got {
		byMonth[m.Month] = m
	}
	out := make([]models.MonthlySales, 0, n)
	for i := 0; i < n; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = models.MonthlySales{Month: key}
		}
		out = append(out, m)
	}
	return out
}

func (s *DashboardService) Customers(ctx context.Context) ([]models.Customer, error) {
	list, err := s.stats.Customers(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Customer{}
	}
	return list, nil
}
