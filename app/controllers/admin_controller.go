package controllers

import (
	"net/http"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/ctx"
)

type AdminController struct {
	dashboard *services.DashboardService
}

func NewAdminController(dashboard *services.DashboardService) *AdminController {
	return &AdminController{dashboard: dashboard}
}

func (ac *AdminController) Stats(c *ctx.Context) {
	stats, err := ac.dashboard.Stats(c.Context())
	if err != nil {
		fail(c, err, "Stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (ac *AdminController) Customers(c *ctx.Context) {
	list, err := ac.dashboard.Customers(c.Context())
	if err != nil {
		fail(c, err, "Customer")
		return
	}
	c.JSON(http.StatusOK, list)
}
