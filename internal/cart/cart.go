// Package cart holds the single cart-in-progress of a terminal session.
// Mutations are synchronous and strictly ordered behind one mutex; pricing
// is fully recomputed on every change. The backend is the durable store —
// the only thing persisted here is a best-effort convenience snapshot.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
	"github.com/ariefcatur/go-pos-gateway.git/internal/pricing"
)

var (
	ErrOrderInProgress = errors.New("an order is already in progress")
	ErrNoActiveOrder   = errors.New("no active order")
	ErrItemNotFound    = errors.New("line item not found")
	ErrSubmitInFlight  = errors.New("a submission is already in flight")
)

// ValidationError is rejected locally, before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Submitter sends a finished cart upstream and returns the backend's
// authoritative order.
type Submitter interface {
	SubmitOrder(ctx context.Context, o pos.Order) (pos.RemoteOrder, error)
}

// SnapshotCache is the per-tenant convenience cache. Failures are logged
// and ignored: losing the snapshot degrades UX, never correctness.
type SnapshotCache interface {
	SaveCart(ctx context.Context, o pos.Order) error
	ClearCart(ctx context.Context) error
}

type Store struct {
	taxRate   decimal.Decimal
	submitter Submitter
	cache     SnapshotCache // may be nil
	log       zerolog.Logger

	mu       sync.Mutex
	order    *pos.Order
	inFlight bool
}

func NewStore(taxRate decimal.Decimal, sub Submitter, cache SnapshotCache, log zerolog.Logger) *Store {
	return &Store{
		taxRate:   taxRate,
		submitter: sub,
		cache:     cache,
		log:       log.With().Str("component", "cart").Logger(),
	}
}

// Start initializes an empty order. It fails if one is already live;
// callers must Reset explicitly first.
func (s *Store) Start(ctx context.Context, typ pos.OrderType, tableRef, roomRef, bookingRef string) error {
	if !typ.Valid() {
		return &ValidationError{Field: "order_type", Reason: "unknown order type"}
	}
	switch typ {
	case pos.OrderDineIn:
		if tableRef == "" {
			return &ValidationError{Field: "table_ref", Reason: "required for dine-in"}
		}
	case pos.OrderRoomService:
		if roomRef == "" {
			return &ValidationError{Field: "room_ref", Reason: "required for room-service"}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order != nil {
		return ErrOrderInProgress
	}
	s.order = &pos.Order{
		Type:       typ,
		TableRef:   tableRef,
		RoomRef:    roomRef,
		BookingRef: bookingRef,
	}
	s.recompute(ctx)
	return nil
}

// AddItem merges into an existing (ItemID, Variant) line by bumping its
// quantity, or appends a new line with quantity 1.
func (s *Store) AddItem(ctx context.Context, itemID, variant, name string, unitPriceCents int, instructions string) error {
	if itemID == "" {
		return &ValidationError{Field: "item_id", Reason: "must not be empty"}
	}
	if unitPriceCents < 0 {
		return &ValidationError{Field: "unit_price_cents", Reason: "must be non-negative"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return ErrNoActiveOrder
	}
	for i := range s.order.Items {
		it := &s.order.Items[i]
		if it.ItemID == itemID && it.Variant == variant {
			it.Qty++
			s.recompute(ctx)
			return nil
		}
	}
	s.order.Items = append(s.order.Items, pos.LineItem{
		ItemID:              itemID,
		Name:                name,
		Variant:             variant,
		UnitPriceCents:      unitPriceCents,
		Qty:                 1,
		SpecialInstructions: instructions,
	})
	s.recompute(ctx)
	return nil
}

// RemoveItem decrements quantity; a line reaching zero is deleted from the
// sequence entirely, never stored with qty 0.
func (s *Store) RemoveItem(ctx context.Context, itemID, variant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return ErrNoActiveOrder
	}
	for i := range s.order.Items {
		it := &s.order.Items[i]
		if it.ItemID != itemID || it.Variant != variant {
			continue
		}
		it.Qty--
		if it.Qty <= 0 {
			s.order.Items = append(s.order.Items[:i], s.order.Items[i+1:]...)
		}
		s.recompute(ctx)
		return nil
	}
	return ErrItemNotFound
}

func (s *Store) ApplyDiscount(ctx context.Context, cents int) error {
	if cents < 0 {
		return &ValidationError{Field: "discount_cents", Reason: "must be non-negative"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return ErrNoActiveOrder
	}
	s.order.DiscountCents = cents
	s.recompute(ctx)
	return nil
}

// SetPaymentMode attaches the mode chosen by a cashier flow; it rides
// along with the next submission.
func (s *Store) SetPaymentMode(ctx context.Context, mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return ErrNoActiveOrder
	}
	s.order.PaymentMode = mode
	s.saveSnapshot(ctx)
	return nil
}

// Restore seeds the store from a cached snapshot, e.g. after a gateway
// restart. Pricing is recomputed rather than trusted from the cache, and
// a live order is never overwritten.
func (s *Store) Restore(ctx context.Context, o pos.Order) error {
	if !o.Type.Valid() {
		return &ValidationError{Field: "order_type", Reason: "unknown order type"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order != nil {
		return ErrOrderInProgress
	}
	restored := copyOrder(o)
	s.order = &restored
	s.recompute(ctx)
	return nil
}

// Reset clears the live order. Called after a successful submission ack,
// or explicitly by the user abandoning the cart.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
}

// Snapshot returns a copy of the live order; ok is false when none is live.
func (s *Store) Snapshot() (pos.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return pos.Order{}, false
	}
	return copyOrder(*s.order), true
}

// Submit sends the cart upstream as one request. Guarded by an in-flight
// flag so a double-click cannot create duplicate backend orders. On
// success the local order is reset; on any failure it is preserved
// unchanged so the user can retry without re-entering items.
func (s *Store) Submit(ctx context.Context) (pos.RemoteOrder, error) {
	s.mu.Lock()
	if s.order == nil {
		s.mu.Unlock()
		return pos.RemoteOrder{}, ErrNoActiveOrder
	}
	if s.inFlight {
		s.mu.Unlock()
		return pos.RemoteOrder{}, ErrSubmitInFlight
	}
	if len(s.order.Items) == 0 {
		s.mu.Unlock()
		return pos.RemoteOrder{}, &ValidationError{Field: "items", Reason: "order has no items"}
	}
	s.inFlight = true
	out := copyOrder(*s.order)
	s.mu.Unlock()

	remote, err := s.submitter.SubmitOrder(ctx, out)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if err != nil {
		s.log.Warn().Err(err).Msg("submission failed, cart preserved")
		return pos.RemoteOrder{}, err
	}
	s.clearLocked(ctx)
	s.log.Info().Str("order_id", remote.ID).Msg("order submitted")
	return remote, nil
}

// recompute refreshes line subtotals and the derived pricing, then writes
// the convenience snapshot through. Callers hold s.mu.
func (s *Store) recompute(ctx context.Context) {
	for i := range s.order.Items {
		s.order.Items[i].LineSubtotalCents = pricing.LineSubtotal(s.order.Items[i])
	}
	s.order.Pricing = pricing.Compute(s.order.Items, s.order.DiscountCents, s.taxRate)
	s.saveSnapshot(ctx)
}

func (s *Store) saveSnapshot(ctx context.Context) {
	if s.cache == nil || s.order == nil {
		return
	}
	if err := s.cache.SaveCart(ctx, *s.order); err != nil {
		s.log.Warn().Err(err).Msg("cart snapshot save failed")
	}
}

func (s *Store) clearLocked(ctx context.Context) {
	s.order = nil
	if s.cache != nil {
		if err := s.cache.ClearCart(ctx); err != nil {
			s.log.Warn().Err(err).Msg("cart snapshot clear failed")
		}
	}
}

func copyOrder(o pos.Order) pos.Order {
	items := make([]pos.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
