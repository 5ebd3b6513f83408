package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-pos-gateway.git/internal/backend"
	"github.com/ariefcatur/go-pos-gateway.git/internal/board"
	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

type BoardHandler struct {
	Orders *board.OrderBoard
	Tables *board.TableBoard
	// History is fetched through the backend on every request: the running
	// board and the history view are independent projections over the same
	// backend state.
	History board.OrderSnapshots
}

func (h *BoardHandler) Register(r *chi.Mux) {
	r.Route("/board", func(r chi.Router) {
		r.Get("/orders", h.orders)
		r.Get("/tables", h.tables)
	})
}

func (h *BoardHandler) orders(w http.ResponseWriter, r *http.Request) {
	switch view := r.URL.Query().Get("view"); view {
	case "", "running":
		writeJSON(w, http.StatusOK, h.Orders.Running())
	case "history":
		orders, err := h.History.FetchOrders(r.Context(), backend.ScopeHistory)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown view: " + view})
	}
}

func (h *BoardHandler) tables(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" {
		writeJSON(w, http.StatusOK, h.Tables.ByStatus(pos.TableStatus(status)))
		return
	}
	writeJSON(w, http.StatusOK, h.Tables.All())
}
