package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/repositories/memory"
	"github.com/usgears/storefront/app/services"
)

func TestDashboardStats(t *testing.T) {
	stub := &stubDashboard{
		byStatus: map[models.OrderStatus]int64{models.StatusUnverified: 2, models.StatusConfirmed: 3},
		sales:    1000,
		monthly: []models.MonthlySales{
			{Month: time.Now().UTC().Format("2006-01"), Sales: 400, Orders: 1},
		},
		customers: []models.Customer{{Email: "a@x.com"}, {Email: "b@x.com"}},
	}
	products := memory.NewProducts(models.Product{Name: "A"}, models.Product{Name: "B"}, models.Product{Name: "C"})
	svc := services.NewDashboardService(stub, products)

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1000.0, st.TotalSales)
	assert.Equal(t, int64(5), st.TotalOrders)
	assert.Equal(t, int64(0), st.OrdersByStatus[models.StatusVerified])
	assert.Equal(t, int64(3), st.ProductCount)
	assert.Equal(t, int64(2), st.CustomerCount)
	assert.Equal(t, 333.33, st.AverageOrderValue)

	require.Len(t, st.MonthlySales, 6)
	assert.Equal(t, 400.0, st.MonthlySales[5].Sales)
	assert.Equal(t, 0.0, st.MonthlySales[0].Sales)
	assert.Equal(t, 1, stub.since.Day())
	assert.Equal(t, stub.since.Format("2006-01"), st.MonthlySales[0].Month)
}

func TestDashboardCustomersNeverNil(t *testing.T) {
	svc := services.NewDashboardService(&stubDashboard{}, memory.NewProducts())
	list, err := svc.Customers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
}
