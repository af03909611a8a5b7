package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/usgears/storefront/pkg/app"
	"github.com/usgears/storefront/pkg/router"
)

func newApp(check app.HealthCheck) *app.Application {
	return app.New().
		Health(check).
		Routes(func(r *router.Router) {
			r.Get("/api/ping", "ping", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		})
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRoutesAreMounted(t *testing.T) {
	h := newApp(nil).Handler()

	rec := serve(h, http.MethodGet, "/api/ping")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestUnknownRouteIsJSON(t *testing.T) {
	h := newApp(nil).Handler()

	rec := serve(h, http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = serve(h, http.MethodDelete, "/api/ping")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	ok := newApp(func(context.Context) error { return nil }).Handler()
	assert.Equal(t, http.StatusOK, serve(ok, http.MethodGet, "/health").Code)

	down := newApp(func(context.Context) error { return errors.New("mongo unreachable") }).Handler()
	rec := serve(down, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "mongo unreachable")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newApp(nil).Handler(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouteList(t *testing.T) {
	names := map[string]bool{}
	for _, ri := range newApp(nil).RouteList() {
		names[ri.Name] = true
	}
	assert.True(t, names["ping"])
	assert.True(t, names["health"])
	assert.True(t, names["metrics"])
}
