// Package event is an in-process dispatcher for domain events such as
// "order.created" or "order.confirmed".
package event

import (
	"context"
	"sync"

	"github.com/usgears/storefront/pkg/logger"
)

type Handler func(ctx context.Context, payload any)

var (
	mu       sync.RWMutex
	handlers = map[string][]Handler{}
)

// Listen registers a handler for the given event name.
func Listen(event string, handler Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers[event] = append(handlers[event], handler)
}

func listeners(event string) []Handler {
	mu.RLock()
	defer mu.RUnlock()
	return append([]Handler(nil), handlers[event]...)
}

// Fire runs every listener in registration order on the caller's goroutine.
// A panicking listener is logged and does not stop the others.
func Fire(ctx context.Context, event string, payload any) {
	for _, h := range listeners(event) {
		call(ctx, event, h, payload)
	}
}

// FireAsync runs listeners on their own goroutines. They get a context that
// is not cancelled when the request ends.
func FireAsync(ctx context.Context, event string, payload any) {
	detached := context.WithoutCancel(ctx)
	for _, h := range listeners(event) {
		go call(detached, event, h, payload)
	}
}

func call(ctx context.Context, event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", event, "panic", r)
		}
	}()
	h(ctx, payload)
}

// Flush removes all listeners.
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	handlers = map[string][]Handler{}
}
