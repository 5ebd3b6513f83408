package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-pos-gateway.git/internal/backend"
)

// TokenCache persists the session token across gateway restarts. Cache
// failures are logged and ignored: the in-memory store is authoritative
// for the running process.
type TokenCache interface {
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// SessionHandler gives the token its explicit lifecycle: the UI hands the
// backend-issued token over on login and revokes it on logout. The 401/403
// teardown path clears the same two stores.
type SessionHandler struct {
	Tokens *backend.TokenStore
	Cache  TokenCache // may be nil
	Log    zerolog.Logger
}

type sessionReq struct {
	Token string `json:"token"`
}

func (h *SessionHandler) Register(r *chi.Mux) {
	r.Put("/session", h.put)
	r.Delete("/session", h.delete)
}

func (h *SessionHandler) put(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing token", "field": "token"})
		return
	}
	h.Tokens.Set(req.Token)
	if h.Cache != nil {
		if err := h.Cache.SaveToken(r.Context(), req.Token); err != nil {
			h.Log.Warn().Err(err).Msg("token cache save failed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	h.Tokens.Clear()
	if h.Cache != nil {
		if err := h.Cache.ClearToken(r.Context()); err != nil {
			h.Log.Warn().Err(err).Msg("token cache clear failed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
