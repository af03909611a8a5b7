package mail

import (
	"context"
	"sync"
)

// Recorder is a Transport that keeps messages in memory. Err, when set, is
// returned from every delivery.
type Recorder struct {
	mu   sync.Mutex
	sent []*Message
	Err  error
}

func (r *Recorder) Deliver(_ context.Context, m *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, m)
	return nil
}

func (r *Recorder) Sent() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Message(nil), r.sent...)
}
