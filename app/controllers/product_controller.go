package controllers

import (
	"net/http"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/ctx"
	"github.com/usgears/storefront/pkg/database"
)

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

// Index lists products, or shows one when ?id= is given. The listing is a
// bare array unless ?page= asks for a paginated envelope.
func (pc *ProductController) Index(c *ctx.Context) {
	if c.Query("id") != "" {
		pc.Show(c)
		return
	}

	f := services.ProductFilter{Category: c.Query("category"), Query: c.Query("q")}
	if b, ok := c.QueryBool("inStock"); ok {
		f.InStock = &b
	}

	page, paged := database.PageFromQuery(c.R.URL.Query())
	var p *database.Page
	if paged {
		p = &page
	}

	res, err := pc.catalog.List(c.Context(), f, p)
	if err != nil {
		fail(c, err, "Product")
		return
	}
	if paged {
		c.Paginated(res.Items, page.Meta(res.Total))
		return
	}
	c.JSON(http.StatusOK, res.Items)
}

func (pc *ProductController) Show(c *ctx.Context) {
	p, err := pc.catalog.Find(c.Context(), c.ParamOrQuery("id"))
	if err != nil {
		fail(c, err, "Product")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.DecodeJSON(&in) {
		return
	}
	p, err := pc.catalog.Create(c.Context(), in)
	if err != nil {
		fail(c, err, "Product")
		return
	}
	c.Created(p)
}

func (pc *ProductController) Update(c *ctx.Context) {
	id := c.ParamOrQuery("id")
	if id == "" {
		c.BadRequest("Product ID is required")
		return
	}
	var in services.ProductInput
	if !c.DecodeJSON(&in) {
		return
	}
	p, err := pc.catalog.Update(c.Context(), id, in)
	if err != nil {
		fail(c, err, "Product")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) Destroy(c *ctx.Context) {
	id := c.ParamOrQuery("id")
	if id == "" {
		c.BadRequest("Product ID is required")
		return
	}
	images, err := pc.catalog.Delete(c.Context(), id)
	if err != nil {
		fail(c, err, "Product")
		return
	}
	c.JSON(http.StatusOK, map[string]any{
		"message":   "Product deleted successfully",
		"productId": id,
		"images":    images,
	})
}
