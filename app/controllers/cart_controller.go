package controllers

import (
	"net/http"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/ctx"
)

type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

// Quote prices the browser cart against the live catalog.
func (cc *CartController) Quote(c *ctx.Context) {
	var req services.QuoteRequest
	if !c.DecodeJSON(&req) {
		return
	}
	q, err := cc.cart.Quote(c.Context(), req)
	if err != nil {
		fail(c, err, "Product")
		return
	}
	c.JSON(http.StatusOK, q)
}
