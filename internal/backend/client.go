// Package backend is the typed client for the platform REST API. The
// backend's response envelope (success carries `data`, errors carry
// `message`) is decoded in exactly one place; call sites never probe
// alternative nesting paths.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

// ErrSessionInvalid means the backend answered 401/403. The token has
// already been cleared; callers must force a logout, not retry.
var ErrSessionInvalid = errors.New("session invalid")

// APIError is a structured rejection from the backend. Its message is
// surfaced to the user verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend rejected request (%d): %s", e.StatusCode, e.Message)
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type Client struct {
	baseURL    string
	httpc      *http.Client
	tokens     *TokenStore
	invalidate func(context.Context)
	log        zerolog.Logger
}

func NewClient(baseURL string, tokens *TokenStore, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		tokens:  tokens,
		log:     log.With().Str("component", "backend").Logger(),
	}
}

// OnSessionInvalid registers a hook run alongside the in-memory token
// clear on 401/403, so any persisted copy of the token is torn down with
// the session and cannot resurrect it on restart.
func (c *Client) OnSessionInvalid(fn func(context.Context)) {
	c.invalidate = fn
}

// Scope selects which projection of backend orders to snapshot. Running
// and history are independent views over the same backend state.
type Scope string

const (
	ScopeRunning Scope = "running"
	ScopeHistory Scope = "history"
)

// submission body per the platform contract: menuItem/variant/quantity/
// specialInstructions plus the context fields for the order type.
type submitItem struct {
	MenuItem            string `json:"menuItem"`
	Variant             string `json:"variant,omitempty"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

type submitOrderReq struct {
	OrderType   string       `json:"orderType"`
	TableNumber string       `json:"tableNumber,omitempty"`
	Room        string       `json:"room,omitempty"`
	Booking     string       `json:"booking,omitempty"`
	PaymentMode string       `json:"paymentMode,omitempty"`
	Discount    int          `json:"discountCents,omitempty"`
	Items       []submitItem `json:"items"`
}

// SubmitOrder sends the cart as a single request and returns the backend's
// authoritative order. No automatic retry: retries are user-initiated.
func (c *Client) SubmitOrder(ctx context.Context, o pos.Order) (pos.RemoteOrder, error) {
	req := submitOrderReq{
		OrderType:   string(o.Type),
		TableNumber: o.TableRef,
		Room:        o.RoomRef,
		Booking:     o.BookingRef,
		PaymentMode: o.PaymentMode,
		Discount:    o.DiscountCents,
		Items:       make([]submitItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		req.Items = append(req.Items, submitItem{
			MenuItem:            it.ItemID,
			Variant:             it.Variant,
			Quantity:            it.Qty,
			SpecialInstructions: it.SpecialInstructions,
		})
	}

	var out pos.RemoteOrder
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &out); err != nil {
		return pos.RemoteOrder{}, err
	}
	return out, nil
}

func (c *Client) FetchOrders(ctx context.Context, scope Scope) ([]pos.RemoteOrder, error) {
	var out []pos.RemoteOrder
	path := fmt.Sprintf("/api/orders?scope=%s", scope)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchTables(ctx context.Context) ([]pos.Table, error) {
	var out []pos.Table
	if err := c.do(ctx, http.MethodGet, "/api/tables", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.tokens.Get(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// forced session teardown, never a retry
		c.tokens.Clear()
		if c.invalidate != nil {
			c.invalidate(ctx)
		}
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("session invalidated")
		return ErrSessionInvalid
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
