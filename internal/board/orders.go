// Package board keeps displayed collections of backend-owned entities
// eventually consistent via the snapshot + incremental events protocol.
// Events are applied idempotently, keyed on stable ids, never on position.
// Last event wins per id; no ordering is assumed across events. This is a
// UI convenience layer, not a ledger.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-pos-gateway.git/internal/backend"
	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

// Deduper short-circuits events already processed, keyed by event id.
// Optional: the merge below is idempotent on its own.
type Deduper interface {
	SeenEvent(ctx context.Context, scope, eventID string) (bool, error)
}

// OrderSnapshots fetches the authoritative order list used for seeding
// and reconnect gap recovery.
type OrderSnapshots interface {
	FetchOrders(ctx context.Context, scope backend.Scope) ([]pos.RemoteOrder, error)
}

type OrderBoard struct {
	src   OrderSnapshots
	dedup Deduper // may be nil
	log   zerolog.Logger

	mu   sync.RWMutex
	byID map[string]pos.RemoteOrder
}

func NewOrderBoard(src OrderSnapshots, dedup Deduper, log zerolog.Logger) *OrderBoard {
	return &OrderBoard{
		src:   src,
		dedup: dedup,
		log:   log.With().Str("component", "order-board").Logger(),
		byID:  make(map[string]pos.RemoteOrder),
	}
}

// Seed replaces the collection with an authoritative snapshot.
func (b *OrderBoard) Seed(orders []pos.RemoteOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID = make(map[string]pos.RemoteOrder, len(orders))
	for _, o := range orders {
		b.byID[o.ID] = o
	}
}

// Resync re-fetches a fresh snapshot and reseeds. Invoked after a feed
// reconnect: events missed while disconnected are corrected wholesale,
// since the channel has no offset to replay from.
func (b *OrderBoard) Resync(ctx context.Context) error {
	orders, err := b.src.FetchOrders(ctx, backend.ScopeRunning)
	if err != nil {
		return fmt.Errorf("order board resync: %w", err)
	}
	b.Seed(orders)
	b.log.Info().Int("orders", len(orders)).Msg("board reseeded from snapshot")
	return nil
}

// Apply merges one envelope. Payloads carry the full entity, so merges are
// replace-by-id. Created events for known ids are ignored (duplicate
// delivery); updates for unknown ids are inserted (self-healing against a
// missed created). Channel hiccups degrade silently, never to the user.
func (b *OrderBoard) Apply(ctx context.Context, env pos.Envelope) error {
	if !env.OrderEvent() {
		return nil
	}

	var o pos.RemoteOrder
	if err := json.Unmarshal(env.Payload, &o); err != nil {
		return fmt.Errorf("decode order payload: %w", err)
	}
	if o.ID == "" {
		return fmt.Errorf("order event %s without id", env.EventID)
	}

	// dedup only after a clean decode: a redelivery of an event whose
	// first delivery failed to decode must still get applied
	if b.seen(ctx, "orders", env.EventID) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch env.EventType {
	case pos.EventOrderCreated:
		if _, ok := b.byID[o.ID]; ok {
			return nil
		}
		b.byID[o.ID] = o
	case pos.EventOrderDeleted:
		delete(b.byID, o.ID)
	default: // updated, statusUpdated, completed
		if prev, ok := b.byID[o.ID]; ok && prev.Status != o.Status && !pos.CanTransition(prev.Status, o.Status) {
			// last event wins by id; an out-of-order delivery is
			// accepted at face value, just noted
			b.log.Debug().
				Str("order_id", o.ID).
				Str("from", string(prev.Status)).
				Str("to", string(o.Status)).
				Msg("out-of-order status transition")
		}
		b.byID[o.ID] = o
	}
	return nil
}

// Running is the active view: terminal orders (completed, cancelled, paid)
// are filtered out here but stay in the backend's history projection,
// which is fetched independently.
func (b *OrderBoard) Running() []pos.RemoteOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]pos.RemoteOrder, 0, len(b.byID))
	for _, o := range b.byID {
		if o.Status.Terminal() {
			continue
		}
		out = append(out, o)
	}
	sortOrders(out)
	return out
}

func (b *OrderBoard) Get(id string) (pos.RemoteOrder, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.byID[id]
	return o, ok
}

func (b *OrderBoard) seen(ctx context.Context, scope, eventID string) bool {
	if b.dedup == nil || eventID == "" {
		return false
	}
	seen, err := b.dedup.SeenEvent(ctx, scope, eventID)
	if err != nil {
		// dedup is an optimization on top of an idempotent merge
		b.log.Debug().Err(err).Msg("dedup check failed, applying anyway")
		return false
	}
	return seen
}

func sortOrders(orders []pos.RemoteOrder) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
