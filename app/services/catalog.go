package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/cache"
	"github.com/usgears/storefront/pkg/database"
	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/workerpool"
)

const catalogCachePrefix = "products:"

var (
	ErrInvalidPrice = errors.New("price must be a non-negative number")

	objectIDRE = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	fileIDRE   = regexp.MustCompile(`fileId=([^&]+)`)
)

// ImageDeleter removes an upload and its stored file.
type ImageDeleter interface {
	DeleteUpload(ctx context.Context, id string) (*models.Upload, error)
}

type CatalogService struct {
	products ProductRepository
	images   ImageDeleter
	pool     *workerpool.Pool
	ttl      time.Duration
}

func NewCatalogService(products ProductRepository, images ImageDeleter, pool *workerpool.Pool) *CatalogService {
	return &CatalogService{products: products, images: images, pool: pool, ttl: config.CatalogCacheTTL()}
}

// ParseID accepts a 24-hex ObjectID.
func ParseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

type ProductPage struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
}

// List returns matching products newest first. page may be nil for the
// whole listing.
func (s *CatalogService) List(ctx context.Context, f ProductFilter, page *database.Page) (ProductPage, error) {
	key := catalogCachePrefix + "list:" + f.Category + "|" + f.Query + "|" + boolKey(f.InStock)
	if page != nil {
		key += "|" + strconv.Itoa(page.Number) + "|" + strconv.Itoa(page.PerPage)
	}
	return cache.Remember(ctx, key, s.ttl, func() (ProductPage, error) {
		items, total, err := s.products.List(ctx, f, page)
		if err != nil {
			return ProductPage{}, err
		}
		if items == nil {
			items = []models.Product{}
		}
		return ProductPage{Items: items, Total: total}, nil
	})
}

func boolKey(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func (s *CatalogService) Find(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	p, err := cache.Remember(ctx, catalogCachePrefix+"id:"+id.Hex(), s.ttl, func() (models.Product, error) {
		p, err := s.products.Find(ctx, id)
		if err != nil {
			return models.Product{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if str(in.Name) == "" || str(in.Category) == "" || !in.Price.Set || str(in.Description) == "" {
		return nil, ErrMissingFields
	}
	if !validPrice(in.Price.Value) {
		return nil, ErrInvalidPrice
	}

	now := time.Now().UTC()
	p := &models.Product{
		Name:             str(in.Name),
		Category:         str(in.Category),
		Price:            in.Price.Value,
		Stock:            max(in.Stock.Value, 0),
		Description:      str(in.Description),
		Specifications:   in.Specifications.Value,
		InStock:          true,
		Image:            str(in.Image),
		AdditionalImages: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p.Specifications == nil {
		p.Specifications = []string{}
	}
	if in.InStock.Set {
		p.InStock = in.InStock.Value
	}
	if in.AdditionalImages != nil {
		p.AdditionalImages = trimAll(*in.AdditionalImages)
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.InvalidateCatalog(ctx)
	return p, nil
}

// Update applies only the fields present in the input. A positive stock
// without an explicit inStock puts the product back in stock.
func (s *CatalogService) Update(ctx context.Context, rawID string, in ProductInput) (*models.Product, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	if in.Price.Set && !validPrice(in.Price.Value) {
		return nil, ErrInvalidPrice
	}

	var u ProductUpdate
	u.Name, u.Category, u.Description, u.Image = in.Name, in.Category, in.Description, in.Image
	if in.Price.Set {
		u.Price = &in.Price.Value
	}
	if in.Stock.Set {
		stock := max(in.Stock.Value, 0)
		u.Stock = &stock
	}
	if in.Specifications.Set {
		u.Specifications = &in.Specifications.Value
	}
	switch {
	case in.InStock.Set:
		u.InStock = &in.InStock.Value
	case u.Stock != nil && *u.Stock > 0:
		restocked := true
		u.InStock = &restocked
	}
	if in.AdditionalImages != nil {
		imgs := trimAll(*in.AdditionalImages)
		u.AdditionalImages = &imgs
	}

	p, err := s.products.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.InvalidateCatalog(ctx)
	return p, nil
}

// validPrice accepts finite, non-negative prices.
func validPrice(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

type ImageDeletion struct {
	FileID  string `json:"fileId"`
	Deleted bool   `json:"deleted"`
}

type ImageResults struct {
	Main         *ImageDeletion  `json:"main"`
	Additional   []ImageDeletion `json:"additional"`
	DeletedCount int             `json:"deletedCount"`
	FailedCount  int             `json:"failedCount"`
}

// Delete removes the product and then its images. Image failures are
// reported in the result, not returned as an error.
func (s *CatalogService) Delete(ctx context.Context, rawID string) (ImageResults, error) {
	res := ImageResults{Additional: []ImageDeletion{}}
	id, err := ParseID(rawID)
	if err != nil {
		return res, err
	}
	p, err := s.products.Find(ctx, id)
	if err != nil {
		return res, err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return res, err
	}
	s.InvalidateCatalog(ctx)

	refs := make([]string, 0, 1+len(p.AdditionalImages))
	mainIdx := -1
	if fid := ExtractFileID(p.Image); fid != "" {
		mainIdx = 0
		refs = append(refs, fid)
	}
	for _, img := range p.AdditionalImages {
		if fid := ExtractFileID(img); fid != "" {
			refs = append(refs, fid)
		}
	}

	errs := s.pool.Map(ctx, len(refs), func(ctx context.Context, i int) error {
		_, err := s.images.DeleteUpload(ctx, refs[i])
		return err
	})
	for i, fid := range refs {
		d := ImageDeletion{FileID: fid, Deleted: errs[i] == nil}
		if d.Deleted {
			res.DeletedCount++
		} else {
			res.FailedCount++
			logger.WithCtx(ctx).Warn("catalog: image delete failed", "product_id", id.Hex(), "file_id", fid, "error", errs[i])
		}
		if i == mainIdx {
			res.Main = &d
		} else {
			res.Additional = append(res.Additional, d)
		}
	}
	return res, nil
}

// ExtractFileID returns the upload id an image reference points to, or ""
// when it carries none.
func ExtractFileID(ref string) string {
	if objectIDRE.MatchString(ref) {
		return ref
	}
	if m := fileIDRE.FindStringSubmatch(ref); m != nil {
		return m[1]
	}
	return ""
}

// InvalidateCatalog forgets every cached listing and product.
func (s *CatalogService) InvalidateCatalog(ctx context.Context) {
	if err := cache.ForgetPrefix(ctx, catalogCachePrefix); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache invalidation failed", "error", err)
	}
}
