// Package sse relays feed events to EventSource clients. The admin dashboard
// falls back to it when a proxy between it and the API drops websocket
// upgrades.
//
//	r.Get("/admin/events", "admin.events", sse.Handler(hub))
package sse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/response"
)

// Heartbeat is how often an idle stream writes a comment line so proxies
// keep the connection open.
var Heartbeat = 25 * time.Second

// ErrNoFlush means the ResponseWriter cannot stream.
var ErrNoFlush = errors.New("sse: response writer does not support flushing")

// Source hands out subscriptions to pre-encoded event frames.
type Source interface {
	Subscribe(ctx context.Context) (<-chan []byte, func())
}

// Stream writes events to one client.
type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// New sets the event-stream headers. Nothing is written until the first
// event or comment.
func New(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNoFlush
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &Stream{w: w, flusher: flusher}, nil
}

// Send writes one named event. Multi-line data is split into data: lines.
func (s *Stream) Send(event string, data []byte) error {
	var b bytes.Buffer
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return s.write(b.Bytes())
}

func (s *Stream) Comment(msg string) error {
	return s.write([]byte(": " + msg + "\n\n"))
}

func (s *Stream) write(p []byte) error {
	if _, err := s.w.Write(p); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Handler streams every frame from src as a "feed" event until the client
// goes away or src closes the subscription.
func Handler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stream, err := New(w)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "Streaming not supported")
			return
		}

		msgs, cancel := src.Subscribe(r.Context())
		defer cancel()

		w.WriteHeader(http.StatusOK)
		if err := stream.Comment("connected"); err != nil {
			return
		}

		tick := time.NewTicker(Heartbeat)
		defer tick.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if err := stream.Send("feed", msg); err != nil {
					logger.WithCtx(r.Context()).Debug("sse: client gone", "error", err)
					return
				}
			case <-tick.C:
				if err := stream.Comment("ping"); err != nil {
					return
				}
			}
		}
	}
}
