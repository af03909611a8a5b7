package routes

import (
	"net/http"
	"time"

	gql "github.com/graphql-go/graphql"

	"github.com/usgears/storefront/app/controllers"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/ctx"
	pkggraphql "github.com/usgears/storefront/pkg/graphql"
	"github.com/usgears/storefront/pkg/middleware"
	"github.com/usgears/storefront/pkg/rbac"
	"github.com/usgears/storefront/pkg/router"
	"github.com/usgears/storefront/pkg/sse"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Catalog   *services.CatalogService
	Cart      *services.CartService
	Orders    *services.OrderService
	Contacts  *services.ContactService
	Files     *services.FileService
	Auth      *services.AuthService
	Dashboard *services.DashboardService

	// Feed serves the admin websocket; nil leaves the route out.
	Feed http.Handler
	// Events is the same feed over server-sent events.
	Events sse.Source
	// Catalog GraphQL schema; nil leaves /graphql out.
	Schema *gql.Schema
}

func RegisterAPI(r *router.Router, s Services) {
	products := controllers.NewProductController(s.Catalog)
	cart := controllers.NewCartController(s.Cart)
	orders := controllers.NewOrderController(s.Orders)
	contacts := controllers.NewContactController(s.Contacts)
	uploads := controllers.NewUploadController(s.Files)
	files := controllers.NewFileController(s.Files)
	authc := controllers.NewAuthController(s.Auth)
	admin := controllers.NewAdminController(s.Dashboard)

	api := r.Group("/api")

	// Storefront.
	api.Get("/product", "product.index", ctx.Wrap(products.Index))
	api.Get("/product/{id}", "product.show", ctx.Wrap(products.Show))
	api.Post("/cart/quote", "cart.quote", ctx.Wrap(cart.Quote))
	api.Post("/order", "order.store", ctx.Wrap(orders.Store),
		middleware.RateLimit("order", 20, time.Minute))
	api.Get("/order/info", "order.info", ctx.Wrap(orders.Info))
	api.Post("/public-upload", "upload.proofs", ctx.Wrap(uploads.StoreProofs),
		middleware.RateLimit("public-upload", 20, time.Minute))
	api.Post("/contacts", "contacts.store", ctx.Wrap(contacts.Store),
		middleware.RateLimit("contacts", 10, time.Minute))
	api.Get("/file/{id}", "file.show", ctx.Wrap(files.Show))

	// Auth.
	api.Post("/auth/login", "auth.login", ctx.Wrap(authc.Login),
		middleware.RateLimit("login", 10, time.Minute))
	api.Post("/auth/refresh", "auth.refresh", ctx.Wrap(authc.Refresh))
	api.Get("/auth/me", "auth.me", ctx.Wrap(authc.Me), middleware.AuthMiddleware)

	// Back office.
	adm := api.Group("", middleware.AuthMiddleware, rbac.Admin)
	adm.Post("/product", "product.store", ctx.Wrap(products.Store))
	adm.Put("/product", "product.update", ctx.Wrap(products.Update))
	adm.Put("/product/{id}", "product.update.path", ctx.Wrap(products.Update))
	adm.Delete("/product", "product.destroy", ctx.Wrap(products.Destroy))
	adm.Delete("/product/{id}", "product.destroy.path", ctx.Wrap(products.Destroy))

	adm.Get("/order", "order.index", ctx.Wrap(orders.Index))
	adm.Patch("/order", "order.update", ctx.Wrap(orders.Update))
	adm.Patch("/order/manage", "order.manage", ctx.Wrap(orders.Update))
	adm.Delete("/order", "order.destroy", ctx.Wrap(orders.Destroy))
	adm.Post("/order/confirm", "order.confirm", ctx.Wrap(orders.Confirm))

	adm.Get("/contacts", "contacts.index", ctx.Wrap(contacts.Index))
	adm.Delete("/contacts", "contacts.destroy", ctx.Wrap(contacts.Destroy))

	adm.Post("/upload", "upload.store", ctx.Wrap(uploads.Store))
	adm.Delete("/upload", "upload.destroy", ctx.Wrap(uploads.Destroy))

	adm.Get("/admin/stats", "admin.stats", ctx.Wrap(admin.Stats))
	adm.Get("/admin/customers", "admin.customers", ctx.Wrap(admin.Customers))
	if s.Feed != nil {
		adm.Get("/admin/feed", "admin.feed", s.Feed.ServeHTTP)
	}
	if s.Events != nil {
		adm.Get("/admin/events", "admin.events", sse.Handler(s.Events))
	}

	if s.Schema != nil {
		h := pkggraphql.Handler(*s.Schema)
		r.Get("/graphql", "graphql.get", h)
		r.Post("/graphql", "graphql.post", h)
	}
}
