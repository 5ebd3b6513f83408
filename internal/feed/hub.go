// Package feed consumes the platform event channel and fans envelopes out
// to screens. The transport connection is owned once, by the Supervisor;
// screens hold their own Subscription, so tearing one down never severs
// another screen's stream or the shared connection.
package feed

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

// Handler processes one envelope. A nil return lets the transport ack.
type Handler func(ctx context.Context, env pos.Envelope) error

// Feed is one transport delivering envelopes until ctx ends or the
// connection drops.
type Feed interface {
	Run(ctx context.Context, h Handler) error
}

// Subscription is one screen's attachment to the hub. Close detaches only
// this subscription.
type Subscription struct {
	hub   *Hub
	types map[string]struct{} // empty = all event types
	ch    chan pos.Envelope
	once  sync.Once
}

func (s *Subscription) Events() <-chan pos.Envelope { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

func (s *Subscription) wants(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

type Hub struct {
	log zerolog.Logger

	mu        sync.RWMutex
	subs      map[*Subscription]struct{}
	reconnect []func(context.Context)
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:  log.With().Str("component", "feed-hub").Logger(),
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe attaches a new screen. buf bounds the per-subscriber queue;
// a full queue drops events rather than backpressuring the feed (the
// subscriber recovers on its next snapshot).
func (h *Hub) Subscribe(buf int, types ...string) *Subscription {
	if buf <= 0 {
		buf = 64
	}
	s := &Subscription{
		hub: h,
		ch:  make(chan pos.Envelope, buf),
	}
	if len(types) > 0 {
		s.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Dispatch fans one envelope out to every matching subscriber. It is the
// Handler given to the transport.
func (h *Hub) Dispatch(ctx context.Context, env pos.Envelope) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if !s.wants(env.EventType) {
			continue
		}
		select {
		case s.ch <- env:
		default:
			h.log.Debug().Str("event_type", env.EventType).Msg("slow subscriber, event dropped")
		}
	}
	return nil
}

// OnReconnect registers a hook run after the transport re-establishes.
// Boards use it to re-fetch a snapshot: gap recovery is snapshot-based,
// the channel keeps no offset to replay from.
func (h *Hub) OnReconnect(fn func(context.Context)) {
	h.mu.Lock()
	h.reconnect = append(h.reconnect, fn)
	h.mu.Unlock()
}

func (h *Hub) NotifyReconnect(ctx context.Context) {
	h.mu.RLock()
	fns := make([]func(context.Context), len(h.reconnect))
	copy(fns, h.reconnect)
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx)
	}
}
