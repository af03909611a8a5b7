// Package app assembles the HTTP side of the service:
//
//	a := app.New().
//	    Health(database.Ping).
//	    Routes(func(r *router.Router) { routes.RegisterAPI(r, svcs) })
//
//	err := a.Serve(ctx, ":"+config.AppPort())
//
// Route callbacks run in order each time Handler is built, so `usgears
// route:list` can list routes without a live database.
package app

import (
	"context"
	"net/http"

	"github.com/usgears/storefront/internal/server"
	"github.com/usgears/storefront/pkg/router"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Application struct {
	routesFns []func(*router.Router)
	health    HealthCheck
}

func New() *Application {
	return &Application{}
}

// Routes adds a route-registration callback. May be called several times.
func (a *Application) Routes(fn func(*router.Router)) *Application {
	a.routesFns = append(a.routesFns, fn)
	return a
}

// Health sets the check behind GET /health.
func (a *Application) Health(check HealthCheck) *Application {
	a.health = check
	return a
}

// RouteList returns every route the callbacks register, including the
// framework endpoints.
func (a *Application) RouteList() []router.RouteInfo {
	return a.build().Routes()
}

// Serve builds the handler and serves it on addr until ctx is cancelled.
func (a *Application) Serve(ctx context.Context, addr string) error {
	return server.Run(ctx, addr, a.Handler())
}

func (a *Application) Handler() http.Handler {
	return a.build().Handler()
}
