package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client talks to the commerce platform's REST admin API over an
// authenticated session.
type Client struct {
	baseURL  string
	token    string
	tokenHdr string
	http     *http.Client
}

func NewClientFromEnv() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("SHOPIFY_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("SHOPIFY_API_BASE_URL is empty")
	}
	token := strings.TrimSpace(os.Getenv("SHOPIFY_ACCESS_TOKEN"))
	if token == "" {
		return nil, errors.New("SHOPIFY_ACCESS_TOKEN is empty")
	}
	tokenHeader := strings.TrimSpace(os.Getenv("SHOPIFY_TOKEN_HEADER"))
	if tokenHeader == "" {
		tokenHeader = "X-Shopify-Access-Token"
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		tokenHdr: tokenHeader,
		http:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload any, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set(c.tokenHdr, c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify api error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// GetOrder fetches the order projection needed for reconciliation.
func (c *Client) GetOrder(ctx context.Context, orderId int64) (*Order, error) {
	params := url.Values{}
	params.Set("fields", "id,name,email,tags,fulfillments")

	var parsed struct {
		Order *Order `json:"order"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d.json", orderId), params, nil, &parsed)
	if err != nil {
		return nil, err
	}
	if parsed.Order == nil {
		return nil, fmt.Errorf("order %d not found", orderId)
	}
	return parsed.Order, nil
}

// FindOrderByName looks an order up by its human-readable name, e.g. "#1001".
// Returns at most one match.
func (c *Client) FindOrderByName(ctx context.Context, name string) (*Order, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("status", "any")
	params.Set("limit", "1")
	params.Set("fields", "id,name,email,tags,fulfillments")

	var parsed struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders.json", params, nil, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Orders) == 0 {
		return nil, fmt.Errorf("no order found with name %q", name)
	}
	return &parsed.Orders[0], nil
}

// UpdateOrderTags replaces the order's tags field. Tags travel as one
// comma-joined string.
func (c *Client) UpdateOrderTags(ctx context.Context, orderId int64, tags string) error {
	payload := map[string]any{
		"order": map[string]any{
			"id":   orderId,
			"tags": tags,
		},
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d.json", orderId), nil, payload, nil)
}

func (c *Client) ListFulfillmentOrders(ctx context.Context, orderId int64) ([]FulfillmentOrder, error) {
	var parsed struct {
		FulfillmentOrders []FulfillmentOrder `json:"fulfillment_orders"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d/fulfillment_orders.json", orderId), nil, nil, &parsed)
	if err != nil {
		return nil, err
	}
	return parsed.FulfillmentOrders, nil
}

// CreateFulfillmentEvent records a delivery-status transition on an existing
// fulfillment.
func (c *Client) CreateFulfillmentEvent(ctx context.Context, orderId, fulfillmentId int64, status string) error {
	payload := map[string]any{
		"event": map[string]any{
			"status": status,
		},
	}
	path := fmt.Sprintf("/orders/%d/fulfillments/%d/events.json", orderId, fulfillmentId)
	return c.do(ctx, http.MethodPost, path, nil, payload, nil)
}

func (c *Client) CreateFulfillment(ctx context.Context, req FulfillmentRequest) (*Fulfillment, error) {
	payload := map[string]any{
		"fulfillment": req,
	}
	var parsed struct {
		Fulfillment *Fulfillment `json:"fulfillment"`
	}
	if err := c.do(ctx, http.MethodPost, "/fulfillments.json", nil, payload, &parsed); err != nil {
		return nil, err
	}
	if parsed.Fulfillment == nil {
		return nil, errors.New("fulfillment creation returned no fulfillment")
	}
	return parsed.Fulfillment, nil
}

// ReopenFulfillment moves a closed fulfillment back to open. Best effort;
// not every remote state supports the transition.
func (c *Client) ReopenFulfillment(ctx context.Context, orderId, fulfillmentId int64) error {
	path := fmt.Sprintf("/orders/%d/fulfillments/%d/open.json", orderId, fulfillmentId)
	return c.do(ctx, http.MethodPost, path, nil, struct{}{}, nil)
}

// MarkFulfillmentOrderAction sets a pre-delivery badge state directly on the
// fulfillment order, bypassing fulfillment-record creation.
func (c *Client) MarkFulfillmentOrderAction(ctx context.Context, fulfillmentOrderId int64, action string) error {
	payload := map[string]any{
		"action": action,
	}
	path := fmt.Sprintf("/fulfillment_orders/%d/actions.json", fulfillmentOrderId)
	return c.do(ctx, http.MethodPost, path, nil, payload, nil)
}
