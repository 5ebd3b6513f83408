package pos

import "time"

type OrderType string

const (
	OrderDineIn      OrderType = "dine-in"
	OrderTakeaway    OrderType = "takeaway"
	OrderRoomService OrderType = "room-service"
	OrderDelivery    OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderDineIn, OrderTakeaway, OrderRoomService, OrderDelivery:
		return true
	}
	return false
}

// LineItem is one priced entry in an order. (ItemID, Variant) is unique
// within an order; two entries with the same ItemID but different Variant
// are distinct lines.
type LineItem struct {
	ItemID              string `json:"item_id"`
	Name                string `json:"name"`
	Variant             string `json:"variant,omitempty"`
	UnitPriceCents      int    `json:"unit_price_cents"`
	Qty                 int    `json:"qty"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
	LineSubtotalCents   int    `json:"line_subtotal_cents"`
}

// Pricing is always derived from the item list, never hand-edited.
type Pricing struct {
	SubtotalCents int `json:"subtotal_cents"`
	DiscountCents int `json:"discount_cents"`
	TaxCents      int `json:"tax_cents"`
	TotalCents    int `json:"total_cents"`
}

// Order is the cart-in-progress held by a terminal session. The context
// refs are mutually contextual: which one is set depends on Type.
type Order struct {
	Type          OrderType  `json:"order_type"`
	TableRef      string     `json:"table_ref,omitempty"`
	RoomRef       string     `json:"room_ref,omitempty"`
	BookingRef    string     `json:"booking_ref,omitempty"`
	Items         []LineItem `json:"items"`
	DiscountCents int        `json:"discount_cents"`
	PaymentMode   string     `json:"payment_mode,omitempty"`
	Pricing       Pricing    `json:"pricing"`
}

// RemoteOrder is a server-confirmed order. The backend owns it; the
// gateway holds a read-mostly cached copy reconciled via snapshot + events.
// Items and Pricing are server-priced and may differ from the cart that
// produced them.
type RemoteOrder struct {
	ID         string      `json:"id"`
	Status     OrderStatus `json:"status"`
	Type       OrderType   `json:"order_type"`
	TableRef   string      `json:"table_ref,omitempty"`
	RoomRef    string      `json:"room_ref,omitempty"`
	BookingRef string      `json:"booking_ref,omitempty"`
	Items      []LineItem  `json:"items"`
	Pricing    Pricing     `json:"pricing"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type Table struct {
	TableID  string      `json:"table_id"`
	Status   TableStatus `json:"status"`
	Capacity int         `json:"capacity"`
}
