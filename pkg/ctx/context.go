// Package ctx gives handlers a single *Context instead of the
// (http.ResponseWriter, *http.Request) pair:
//
//	func (pc *ProductController) Show(c *ctx.Context) {
//	    p, err := pc.catalog.Find(c.Context(), c.Param("id"))
//	    ...
//	    c.JSON(http.StatusOK, p)
//	}
//
//	r.Get("/product/{id}", "product.show", ctx.Wrap(pc.Show))
package ctx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/usgears/storefront/pkg/bind"
	"github.com/usgears/storefront/pkg/validate"
)

type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc to http.HandlerFunc for the router.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	mu     sync.RWMutex
	store  map[string]any
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{store: make(map[string]any)} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	for k := range c.store {
		delete(c.store, k)
	}
	return c
}

func release(c *Context) {
	if c.R != nil && c.R.MultipartForm != nil {
		_ = c.R.MultipartForm.RemoveAll()
	}
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request ──────────────────────────────────────────────────────────────────

// Param returns a chi path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// QueryBool parses a boolean query value. ok is false when absent or invalid.
func (c *Context) QueryBool(key string) (value, ok bool) {
	b, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return false, false
	}
	return b, true
}

// ParamOrQuery prefers the path parameter and falls back to ?key=.
func (c *Context) ParamOrQuery(key string) string {
	if v := c.Param(key); v != "" {
		return v
	}
	return c.Query(key)
}

func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

func (c *Context) Method() string { return c.R.Method }

func (c *Context) Path() string { return c.R.URL.Path }

// ClientIP honours X-Forwarded-For and X-Real-Ip before RemoteAddr.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	if real := c.R.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(c.R.RemoteAddr); err == nil {
		return host
	}
	return c.R.RemoteAddr
}

func (c *Context) Context() context.Context { return c.R.Context() }

// ─── Multipart ────────────────────────────────────────────────────────────────

// ErrBodyTooLarge is returned by ParseMultipart when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// ParseMultipart caps the body at maxBytes and parses the form, keeping up to
// 8 MB in memory and spilling the rest to temp files.
func (c *Context) ParseMultipart(maxBytes int64) error {
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, maxBytes)
	if err := c.R.ParseMultipartForm(8 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("parse multipart: %w", err)
	}
	return nil
}

// Files returns the uploaded files of the first non-empty field among names.
func (c *Context) Files(names ...string) []*multipart.FileHeader {
	if c.R.MultipartForm == nil {
		return nil
	}
	for _, name := range names {
		if fs := c.R.MultipartForm.File[name]; len(fs) > 0 {
			return fs
		}
	}
	return nil
}

// FormValue reads a multipart or urlencoded field.
func (c *Context) FormValue(key string) string {
	return c.R.FormValue(key)
}

// ─── Per-request store ────────────────────────────────────────────────────────

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes and validates into dest. On failure it has already written
// a 400 (bad JSON) or 422 (rules) response and returns false.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// DecodeJSON decodes without running validation rules.
func (c *Context) DecodeJSON(dest any) bool {
	if err := bind.Decode(c.R, dest); err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// ─── Responses ────────────────────────────────────────────────────────────────

func (c *Context) SetHeader(key, value string) {
	c.W.Header().Set(key, value)
}

func (c *Context) Status(code int) {
	c.status = code
	c.W.WriteHeader(code)
}

// JSON writes v as-is. Storefront clients rely on the raw shapes
// ({success, orderId}, arrays of products), so success bodies are not wrapped.
func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	c.status = code
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

// Success sends {"status":200,"data":...}.
func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, envelope{Status: http.StatusOK, Data: data})
}

// Paginated sends a page of items with its metadata.
func (c *Context) Paginated(items any, pagination any) {
	c.JSON(http.StatusOK, map[string]any{"items": items, "pagination": pagination})
}

func (c *Context) Created(data any) {
	c.JSON(http.StatusCreated, data)
}

// Error sends {"status":code,"message":msg,"error":msg}. The duplicate "error"
// key keeps older storefront builds that read res.error working.
func (c *Context) Error(code int, message string) {
	c.JSON(code, envelope{Status: code, Message: message, Error: message})
}

func (c *Context) ValidationError(errs map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, envelope{
		Status:  http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Error:   "Validation failed",
		Errors:  errs,
	})
}

func (c *Context) BadRequest(message string) { c.Error(http.StatusBadRequest, message) }

func (c *Context) Unauthorized(message ...string) {
	c.Error(http.StatusUnauthorized, first(message, "Unauthorized"))
}

func (c *Context) Forbidden(message ...string) {
	c.Error(http.StatusForbidden, first(message, "Forbidden"))
}

func (c *Context) NotFound(message ...string) {
	c.Error(http.StatusNotFound, first(message, "Not found"))
}

// ServerError logs nothing; callers log with context before calling it.
func (c *Context) ServerError(message ...string) {
	c.Error(http.StatusInternalServerError, first(message, "Internal server error"))
}

// Stream copies r to the response with the given content type.
func (c *Context) Stream(code int, contentType string, r io.Reader) error {
	c.W.Header().Set("Content-Type", contentType)
	c.W.WriteHeader(code)
	c.status = code
	_, err := io.Copy(c.W, r)
	return err
}

// WrittenStatus is the status code sent so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }

func first(msgs []string, def string) string {
	if len(msgs) > 0 && msgs[0] != "" {
		return msgs[0]
	}
	return def
}

type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}
