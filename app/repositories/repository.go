// Package repositories implements the service storage interfaces on MongoDB.
package repositories

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/metrics"
)

// observe times one query; use as defer observe(col, "find")().
func observe(col *mongo.Collection, op string) func() {
	start := time.Now()
	return func() { metrics.ObserveDBQuery(col.Name(), op, start) }
}

// mapErr turns driver errors the services care about into their sentinels.
func mapErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return services.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, services.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}

var (
	_ services.ProductRepository   = (*ProductRepository)(nil)
	_ services.OrderRepository     = (*OrderRepository)(nil)
	_ services.DashboardRepository = (*OrderRepository)(nil)
	_ services.ContactRepository   = (*ContactRepository)(nil)
	_ services.FileRepository      = (*FileRepository)(nil)
	_ services.UserRepository      = (*UserRepository)(nil)
)
