package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usgears/storefront/app/repositories/memory"
	"github.com/usgears/storefront/app/services"
)

func TestContacts(t *testing.T) {
	repo := &memory.Contacts{}
	svc := services.NewContactService(repo)
	ctx := context.Background()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)

	_, err = svc.Create(ctx, services.ContactInput{Name: "Ravi", Email: "r@x.com", Phone: " ", Message: "Hi"})
	assert.ErrorIs(t, err, services.ErrMissingFields)

	c, err := svc.Create(ctx, services.ContactInput{Name: " Ravi ", Email: "r@x.com", Phone: "98", Message: "Do you stock chains?"})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", c.Name)
	assert.False(t, c.CreatedAt.IsZero())

	require.NoError(t, svc.Delete(ctx, c.ID.Hex()))
	assert.ErrorIs(t, svc.Delete(ctx, c.ID.Hex()), services.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "x"), services.ErrInvalidID)
}
