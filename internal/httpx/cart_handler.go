package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-pos-gateway.git/internal/backend"
	"github.com/ariefcatur/go-pos-gateway.git/internal/cart"
	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

type CartHandler struct {
	Store *cart.Store
}

type startReq struct {
	OrderType  string `json:"order_type"`
	TableRef   string `json:"table_ref"`
	RoomRef    string `json:"room_ref"`
	BookingRef string `json:"booking_ref"`
}

type addItemReq struct {
	ItemID              string `json:"item_id"`
	Variant             string `json:"variant"`
	Name                string `json:"name"`
	UnitPriceCents      int    `json:"unit_price_cents"`
	SpecialInstructions string `json:"special_instructions"`
}

type removeItemReq struct {
	ItemID  string `json:"item_id"`
	Variant string `json:"variant"`
}

type discountReq struct {
	DiscountCents int `json:"discount_cents"`
}

type paymentModeReq struct {
	Mode string `json:"mode"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Post("/start", h.start)
		r.Post("/items", h.addItem)
		r.Delete("/items", h.removeItem)
		r.Post("/discount", h.discount)
		r.Post("/payment-mode", h.paymentMode)
		r.Post("/submit", h.submit)
		r.Post("/reset", h.reset)
	})
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	o, ok := h.Store.Snapshot()
	if !ok {
		writeErr(w, cart.ErrNoActiveOrder)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *CartHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	err := h.Store.Start(r.Context(), pos.OrderType(req.OrderType), req.TableRef, req.RoomRef, req.BookingRef)
	if err != nil {
		writeErr(w, err)
		return
	}
	o, _ := h.Store.Snapshot()
	writeJSON(w, http.StatusCreated, o)
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	err := h.Store.AddItem(r.Context(), req.ItemID, req.Variant, req.Name, req.UnitPriceCents, req.SpecialInstructions)
	if err != nil {
		writeErr(w, err)
		return
	}
	o, _ := h.Store.Snapshot()
	writeJSON(w, http.StatusOK, o)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	var req removeItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Store.RemoveItem(r.Context(), req.ItemID, req.Variant); err != nil {
		writeErr(w, err)
		return
	}
	o, _ := h.Store.Snapshot()
	writeJSON(w, http.StatusOK, o)
}

func (h *CartHandler) discount(w http.ResponseWriter, r *http.Request) {
	var req discountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Store.ApplyDiscount(r.Context(), req.DiscountCents); err != nil {
		writeErr(w, err)
		return
	}
	o, _ := h.Store.Snapshot()
	writeJSON(w, http.StatusOK, o)
}

func (h *CartHandler) paymentMode(w http.ResponseWriter, r *http.Request) {
	var req paymentModeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Store.SetPaymentMode(r.Context(), req.Mode); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) submit(w http.ResponseWriter, r *http.Request) {
	remote, err := h.Store.Submit(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, remote)
}

func (h *CartHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.Store.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// writeErr maps the error taxonomy onto status codes: validation -> 400,
// cart state conflicts -> 409, invalid session -> 401 (forced logout),
// backend rejections and transport failures -> 502 (retryable by the
// user; never retried here).
func writeErr(w http.ResponseWriter, err error) {
	var verr *cart.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
		return
	}
	switch {
	case errors.Is(err, cart.ErrNoActiveOrder):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, cart.ErrOrderInProgress), errors.Is(err, cart.ErrSubmitInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, cart.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, backend.ErrSessionInvalid):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session invalid"})
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			// backend message goes to the user verbatim
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": apiErr.Message})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "request failed, please retry"})
	}
}
