package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *TokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := &TokenStore{}
	tokens.Set("tok-123")
	return NewClient(srv.URL, tokens, zerolog.Nop()), tokens
}

func TestSubmitOrderWireFormat(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": pos.RemoteOrder{ID: "ord-9", Status: pos.StatusPending},
		})
	})

	remote, err := c.SubmitOrder(context.Background(), pos.Order{
		Type:        pos.OrderDineIn,
		TableRef:    "T7",
		PaymentMode: "card",
		Items: []pos.LineItem{
			{ItemID: "m-1", Variant: "large", Qty: 2, SpecialInstructions: "no onion"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-9", remote.ID)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "dine-in", gotBody["orderType"])
	assert.Equal(t, "T7", gotBody["tableNumber"])
	assert.Equal(t, "card", gotBody["paymentMode"])

	items, ok := gotBody["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "m-1", item["menuItem"])
	assert.Equal(t, "large", item["variant"])
	assert.Equal(t, float64(2), item["quantity"])
	assert.Equal(t, "no onion", item["specialInstructions"])
}

func TestBackendErrorMessageSurfacedVerbatim(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "stale price for m-1"})
	})

	_, err := c.SubmitOrder(context.Background(), pos.Order{Type: pos.OrderTakeaway})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "stale price for m-1", apiErr.Message)
}

func TestSessionTeardownOn401(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	var hookCalled bool
	c.OnSessionInvalid(func(context.Context) { hookCalled = true })

	_, err := c.FetchOrders(context.Background(), ScopeRunning)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.Empty(t, tokens.Get(), "401 must clear the session token")
	assert.True(t, hookCalled, "persisted token teardown must run on 401")
}

func TestFetchOrdersDecodesEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "history", r.URL.Query().Get("scope"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []pos.RemoteOrder{
				{ID: "o1", Status: pos.StatusCompleted},
				{ID: "o2", Status: pos.StatusCancelled},
			},
		})
	})

	got, err := c.FetchOrders(context.Background(), ScopeHistory)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "o1", got[0].ID)
}

func TestTransportErrorWrapped(t *testing.T) {
	tokens := &TokenStore{}
	c := NewClient("http://127.0.0.1:1", tokens, zerolog.Nop())
	_, err := c.FetchTables(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failure is not a backend rejection")
}
