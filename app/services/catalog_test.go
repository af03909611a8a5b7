package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/app/repositories/memory"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/workerpool"
)

type fakeImages struct {
	mu      sync.Mutex
	known   map[string]bool
	deleted []string
}

func (f *fakeImages) DeleteUpload(_ context.Context, id string) (*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[id] {
		return nil, services.ErrNotFound
	}
	f.deleted = append(f.deleted, id)
	return &models.Upload{}, nil
}

func newCatalog(t *testing.T, products *memory.Products, images services.ImageDeleter) *services.CatalogService {
	t.Helper()
	pool := workerpool.New(2)
	t.Cleanup(pool.Shutdown)
	return services.NewCatalogService(products, images, pool)
}

func decodeInput(t *testing.T, raw string) services.ProductInput {
	t.Helper()
	var in services.ProductInput
	require.NoError(t, json.Unmarshal([]byte(raw), &in))
	return in
}

func TestCreateProductParsesLooseForm(t *testing.T) {
	svc := newCatalog(t, memory.NewProducts(), &fakeImages{})

	p, err := svc.Create(context.Background(), decodeInput(t, `{
		"name": "Riding Jacket", "category": "jackets", "price": "89.50",
		"stock": "4", "description": "Mesh", "specifications": "CE armour, Mesh ,",
		"inStock": "false"
	}`))
	require.NoError(t, err)

	assert.False(t, p.ID.IsZero())
	assert.Equal(t, 89.5, p.Price)
	assert.Equal(t, 4, p.Stock)
	assert.Equal(t, []string{"CE armour", "Mesh"}, p.Specifications)
	assert.False(t, p.InStock)
	assert.Equal(t, []string{}, p.AdditionalImages)
}

func TestCreateProductDefaults(t *testing.T) {
	svc := newCatalog(t, memory.NewProducts(), &fakeImages{})

	p, err := svc.Create(context.Background(), decodeInput(t, `{
		"name": "Visor", "category": "helmets", "price": 12, "description": "Tinted",
		"specifications": ["Anti-fog"]
	}`))
	require.NoError(t, err)
	assert.True(t, p.InStock)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, []string{"Anti-fog"}, p.Specifications)
}

func TestCreateProductMissingFields(t *testing.T) {
	svc := newCatalog(t, memory.NewProducts(), &fakeImages{})

	for _, raw := range []string{
		`{"category":"a","price":1,"description":"d"}`,
		`{"name":"n","category":"a","description":"d"}`,
		`{"name":"n","category":"a","price":"","description":"d"}`,
		`{"name":"n","category":"a","price":1,"description":"  "}`,
	} {
		_, err := svc.Create(context.Background(), decodeInput(t, raw))
		assert.ErrorIs(t, err, services.ErrMissingFields, raw)
	}

	_, err := svc.Create(context.Background(), decodeInput(t, `{"name":"n","category":"a","price":-1,"description":"d"}`))
	assert.ErrorIs(t, err, services.ErrInvalidPrice)
}

func TestProductPriceMustBeFinite(t *testing.T) {
	products := memory.NewProducts()
	svc := newCatalog(t, products, &fakeImages{})
	ctx := context.Background()

	for _, price := range []string{`"NaN"`, `"Inf"`, `"-Inf"`} {
		_, err := svc.Create(ctx, decodeInput(t, `{"name":"n","category":"a","description":"d","price":`+price+`}`))
		assert.ErrorIs(t, err, services.ErrInvalidPrice, price)
	}

	var in services.ProductInput
	assert.Error(t, json.Unmarshal([]byte(`{"price":"1e400"}`), &in))
	assert.Error(t, json.Unmarshal([]byte(`{"stock":"NaN"}`), &in))

	orig := models.Product{Name: "Boots", Price: 100}
	require.NoError(t, products.Create(ctx, &orig))
	_, err := svc.Update(ctx, orig.ID.Hex(), decodeInput(t, `{"price":"NaN"}`))
	assert.ErrorIs(t, err, services.ErrInvalidPrice)
	assert.Equal(t, 100.0, products.Get(orig.ID).Price)

	page, err := svc.List(ctx, services.ProductFilter{}, nil)
	require.NoError(t, err)
	_, err = json.Marshal(page)
	assert.NoError(t, err)
}

func TestUpdateRestockPutsProductBackInStock(t *testing.T) {
	products := memory.NewProducts()
	svc := newCatalog(t, products, &fakeImages{})
	ctx := context.Background()
	sold := models.Product{Name: "Gloves", Price: 35, Stock: 0, InStock: false}
	require.NoError(t, products.Create(ctx, &sold))

	p, err := svc.Update(ctx, sold.ID.Hex(), decodeInput(t, `{"stock":"6"}`))
	require.NoError(t, err)
	assert.Equal(t, 6, p.Stock)
	assert.True(t, p.InStock)

	p, err = svc.Update(ctx, sold.ID.Hex(), decodeInput(t, `{"stock":8,"inStock":false}`))
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)
	assert.False(t, p.InStock, "an explicit inStock wins")

	p, err = svc.Update(ctx, sold.ID.Hex(), decodeInput(t, `{"price":40}`))
	require.NoError(t, err)
	assert.False(t, p.InStock)
}

func TestUpdateProductPartial(t *testing.T) {
	products := memory.NewProducts()
	svc := newCatalog(t, products, &fakeImages{})
	orig := models.Product{Name: "Boots", Price: 100, Stock: 2, InStock: true}
	require.NoError(t, products.Create(context.Background(), &orig))

	p, err := svc.Update(context.Background(), orig.ID.Hex(), decodeInput(t, `{"price":"120","inStock":false}`))
	require.NoError(t, err)
	assert.Equal(t, "Boots", p.Name)
	assert.Equal(t, 120.0, p.Price)
	assert.Equal(t, 2, p.Stock)
	assert.False(t, p.InStock)

	_, err = svc.Update(context.Background(), primitive.NewObjectID().Hex(), decodeInput(t, `{"name":"x"}`))
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = svc.Update(context.Background(), "123", decodeInput(t, `{"name":"x"}`))
	assert.ErrorIs(t, err, services.ErrInvalidID)
}

func TestFindAndList(t *testing.T) {
	products := memory.NewProducts(
		models.Product{Name: "A", Category: "helmets", InStock: true},
		models.Product{Name: "B", Category: "gloves", InStock: false},
	)
	svc := newCatalog(t, products, &fakeImages{})
	ctx := context.Background()

	page, err := svc.List(ctx, services.ProductFilter{Category: "helmets"}, nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "A", page.Items[0].Name)

	inStock := false
	page, err = svc.List(ctx, services.ProductFilter{InStock: &inStock}, nil)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "B", page.Items[0].Name)

	p, err := svc.Find(ctx, page.Items[0].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "B", p.Name)

	_, err = svc.Find(ctx, "zz")
	assert.ErrorIs(t, err, services.ErrInvalidID)
	_, err = svc.Find(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteProductRemovesImages(t *testing.T) {
	main := primitive.NewObjectID().Hex()
	extra := primitive.NewObjectID().Hex()
	missing := primitive.NewObjectID().Hex()
	images := &fakeImages{known: map[string]bool{main: true, extra: true}}

	products := memory.NewProducts()
	p := models.Product{
		Name:             "Exhaust",
		Image:            main,
		AdditionalImages: []string{"/api/file?fileId=" + extra, "legacy.jpg", missing},
	}
	require.NoError(t, products.Create(context.Background(), &p))
	svc := newCatalog(t, products, images)

	res, err := svc.Delete(context.Background(), p.ID.Hex())
	require.NoError(t, err)

	require.NotNil(t, res.Main)
	assert.Equal(t, services.ImageDeletion{FileID: main, Deleted: true}, *res.Main)
	assert.Equal(t, []services.ImageDeletion{
		{FileID: extra, Deleted: true},
		{FileID: missing, Deleted: false},
	}, res.Additional)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.ElementsMatch(t, []string{main, extra}, images.deleted)

	_, err = products.Find(context.Background(), p.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteProductWithoutImages(t *testing.T) {
	products := memory.NewProducts()
	p := models.Product{Name: "Plain"}
	require.NoError(t, products.Create(context.Background(), &p))
	svc := newCatalog(t, products, &fakeImages{})

	res, err := svc.Delete(context.Background(), p.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, res.Main)
	assert.Empty(t, res.Additional)

	_, err = svc.Delete(context.Background(), p.ID.Hex())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestExtractFileID(t *testing.T) {
	id := "64b7f0c2e4b0a1a2b3c4d5e6"
	assert.Equal(t, id, services.ExtractFileID(id))
	assert.Equal(t, id, services.ExtractFileID("/api/file?fileId="+id+"&w=200"))
	assert.Equal(t, "", services.ExtractFileID("/media/photo/general/a.jpg"))
}
