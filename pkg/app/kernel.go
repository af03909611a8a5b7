package app

import (
	"net/http"
	"time"

	"github.com/usgears/storefront/pkg/ctx"
	"github.com/usgears/storefront/pkg/metrics"
	"github.com/usgears/storefront/pkg/middleware"
	"github.com/usgears/storefront/pkg/reqid"
	"github.com/usgears/storefront/pkg/response"
	"github.com/usgears/storefront/pkg/router"
)

// build wires the global middleware, the framework endpoints and then the
// application routes.
func (a *Application) build() *router.Router {
	r := router.New()

	// Outermost first: metrics see total latency, recovery catches panics
	// before anything else runs, the request id exists before logging.
	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS(middleware.CORSOptionsFromConfig()),
		middleware.RateLimit("global", 600, time.Minute),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) { response.MethodNotAllowed(w) })

	r.Handle("/metrics", "metrics", metrics.Handler())
	r.Get("/health", "health", ctx.Wrap(a.healthz))

	for _, fn := range a.routesFns {
		fn(r)
	}
	return r
}

func (a *Application) healthz(c *ctx.Context) {
	if a.health != nil {
		if err := a.health(c.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
