package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"bakery-storefront/models"

	"go.uber.org/zap"
)

const (
	OrderCreatePath = "/orders/create/"

	maxResponseBody = 1 << 20

	msgOrderPlaced   = "Order placed successfully!"
	msgOrderFailed   = "Order failed. Please try again."
	msgNetworkFailed = "Network error. Please try again."
	msgCartEmpty     = "Your cart is empty"
)

var ErrEmptyCart = errors.New("cart is empty")

// CheckoutResult is the outcome of a submission. Message is the text to show
// the customer.
type CheckoutResult struct {
	OK       bool
	Message  string
	Fallback bool // the form-encoded attempt was used
}

// CheckoutClient posts orders to the order endpoint: first as JSON, then, only
// if no response was received, once more as multipart form fields.
type CheckoutClient struct {
	endpoint string
	http     *http.Client
	csrf     TokenSource
	logger   *zap.Logger
}

func NewCheckoutClient(baseURL string, hc *http.Client, csrf TokenSource, logger *zap.Logger) *CheckoutClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	if csrf == nil {
		csrf = StaticToken("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutClient{
		endpoint: strings.TrimRight(baseURL, "/") + OrderCreatePath,
		http:     hc,
		csrf:     csrf,
		logger:   logger,
	}
}

type orderItemPayload struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

type orderPayload struct {
	OrderItems      []orderItemPayload `json:"order_items"`
	OrderTotal      json.Number        `json:"order_total"`
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerEmail   string             `json:"customer_email"`
	DeliveryType    string             `json:"delivery_type"`
	DeliveryAddress string             `json:"delivery_address"`
}

func newOrderPayload(o models.Order) orderPayload {
	items := make([]orderItemPayload, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemPayload{
			ID:       it.ID,
			Name:     it.Name,
			Price:    json.Number(it.Price.String()),
			Quantity: it.Quantity,
		}
	}
	return orderPayload{
		OrderItems:      items,
		OrderTotal:      json.Number(o.Total.StringFixed(2)),
		CustomerName:    o.Customer.Name,
		CustomerPhone:   o.Customer.Phone,
		CustomerEmail:   o.Customer.Email,
		DeliveryType:    o.Delivery.Type,
		DeliveryAddress: o.Delivery.Address,
	}
}

// orderResponse is the optional JSON body of the endpoint.
type orderResponse struct {
	OK      *bool  `json:"ok"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (r *orderResponse) text() string {
	if r == nil {
		return ""
	}
	if r.Error != "" {
		return r.Error
	}
	return r.Message
}

// readOrderResponse returns nil when the body is empty or not JSON.
func readOrderResponse(body io.Reader) *orderResponse {
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var r orderResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil
	}
	return &r
}

// Submit runs the two-step submission. It never returns an error: every
// outcome is expressed as a CheckoutResult.
func (c *CheckoutClient) Submit(ctx context.Context, order models.Order) CheckoutResult {
	payload := newOrderPayload(order)

	res, err := c.submitJSON(ctx, payload)
	if err == nil {
		return res
	}
	c.logger.Warn("json order submit failed, trying form fallback", zap.Error(err))

	return c.submitForm(ctx, payload)
}

// submitJSON returns an error only when no response was received.
func (c *CheckoutClient) submitJSON(ctx context.Context, p orderPayload) (CheckoutResult, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return CheckoutResult{Message: msgOrderFailed}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return CheckoutResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(CSRFHeader, c.csrf.CSRFToken())

	resp, err := c.http.Do(req)
	if err != nil {
		return CheckoutResult{}, err
	}
	defer resp.Body.Close()

	data := readOrderResponse(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CheckoutResult{Message: statusFailure(resp.StatusCode, data)}, nil
	}
	if data != nil && data.OK != nil && !*data.OK {
		msg := data.text()
		if msg == "" {
			msg = msgOrderFailed
		}
		return CheckoutResult{Message: msg}, nil
	}
	return CheckoutResult{OK: true, Message: msgOrderPlaced}, nil
}

func (c *CheckoutClient) submitForm(ctx context.Context, p orderPayload) CheckoutResult {
	items, err := json.Marshal(p.OrderItems)
	if err != nil {
		return CheckoutResult{Message: msgOrderFailed, Fallback: true}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"order_items", string(items)},
		{"order_total", p.OrderTotal.String()},
		{"customer_name", p.CustomerName},
		{"customer_phone", p.CustomerPhone},
		{"customer_email", p.CustomerEmail},
		{"delivery_type", p.DeliveryType},
		{"delivery_address", p.DeliveryAddress},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return CheckoutResult{Message: msgOrderFailed, Fallback: true}
		}
	}
	if err := w.Close(); err != nil {
		return CheckoutResult{Message: msgOrderFailed, Fallback: true}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return CheckoutResult{Message: msgNetworkFailed, Fallback: true}
	}
	// the multipart writer owns the boundary, so it supplies the content type
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(CSRFHeader, c.csrf.CSRFToken())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("form order submit failed", zap.Error(err))
		return CheckoutResult{Message: msgNetworkFailed, Fallback: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CheckoutResult{Message: statusFailure(resp.StatusCode, readOrderResponse(resp.Body)), Fallback: true}
	}
	return CheckoutResult{OK: true, Message: msgOrderPlaced, Fallback: true}
}

func statusFailure(status int, data *orderResponse) string {
	if msg := data.text(); msg != "" {
		return msg
	}
	return fmt.Sprintf("Order failed (status %d).", status)
}
