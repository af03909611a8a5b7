package controllers

import (
	"errors"
	"net/http"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/ctx"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// Store places an order from checkout.
func (oc *OrderController) Store(c *ctx.Context) {
	var in services.PlaceOrderInput
	if !c.BindJSON(&in) {
		return
	}
	o, err := oc.orders.Place(c.Context(), in)
	if err != nil {
		fail(c, err, "Order")
		return
	}
	c.Created(map[string]any{"success": true, "orderId": o.ID.Hex()})
}

func (oc *OrderController) Index(c *ctx.Context) {
	list, err := oc.orders.List(c.Context(), c.Query("status"))
	if err != nil {
		fail(c, err, "Order")
		return
	}
	c.JSON(http.StatusOK, list)
}

// Update advances the lifecycle and/or sets the tracking id.
func (oc *OrderController) Update(c *ctx.Context) {
	id := c.Query("orderId")
	if id == "" {
		c.BadRequest("Order ID is required")
		return
	}
	var req services.StatusUpdate
	if !c.DecodeJSON(&req) {
		return
	}
	if _, err := oc.orders.UpdateStatus(c.Context(), id, req); err != nil {
		fail(c, err, "Order")
		return
	}
	c.JSON(http.StatusOK, success)
}

func (oc *OrderController) Destroy(c *ctx.Context) {
	id := c.Query("orderId")
	if id == "" {
		c.BadRequest("Order ID is required")
		return
	}
	if err := oc.orders.Delete(c.Context(), id); err != nil {
		fail(c, err, "Order")
		return
	}
	c.JSON(http.StatusOK, success)
}

// Info is the public order summary shown after checkout. Without an id it
// answers an empty list, which the success page treats as "nothing yet".
func (oc *OrderController) Info(c *ctx.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusOK, []any{})
		return
	}
	info, err := oc.orders.Info(c.Context(), id)
	if err != nil {
		fail(c, err, "Order")
		return
	}
	c.JSON(http.StatusOK, info)
}

// Confirm queues the confirmation email again.
func (oc *OrderController) Confirm(c *ctx.Context) {
	var req services.ConfirmationRequest
	if !c.DecodeJSON(&req) {
		return
	}
	if err := oc.orders.ResendConfirmation(c.Context(), req); err != nil {
		if errors.Is(err, services.ErrMissingFields) {
			c.BadRequest("Email, tracking ID and order ID are required")
			return
		}
		fail(c, err, "Order")
		return
	}
	c.JSON(http.StatusOK, success)
}
