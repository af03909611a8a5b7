package seeders

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/usgears/storefront/app/repositories"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/auth"
)

func init() {
	Register("admin", SeedAdmin)
}

// ErrAdminNotConfigured is returned when ADMIN_EMAIL or ADMIN_PASSWORD is
// unset.
var ErrAdminNotConfigured = errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set")

// SeedAdmin creates the back-office account from ADMIN_EMAIL and
// ADMIN_PASSWORD, or resets its password if it already exists.
func SeedAdmin(ctx context.Context, db *mongo.Database, out io.Writer) error {
	email, password := config.AdminEmail(), config.AdminPassword()
	if email == "" || password == "" {
		return ErrAdminNotConfigured
	}
	svc := services.NewAuthService(repositories.NewUserRepository(db))
	_, created, err := svc.EnsureUser(ctx, email, "Administrator", password, auth.RoleAdmin)
	if err != nil {
		return err
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	fmt.Fprintf(out, "(%s %s) ", verb, email)
	return nil
}
