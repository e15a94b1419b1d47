package shopify

import "strings"

// Order is the projection of a remote order used by the reconciliation flow.
// Tags arrive as a single comma-joined string, per platform convention.
type Order struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Tags         string        `json:"tags"`
	Fulfillments []Fulfillment `json:"fulfillments"`
}

func (o *Order) TagList() []string {
	if strings.TrimSpace(o.Tags) == "" {
		return nil
	}
	parts := strings.Split(o.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// HasTag matches case-sensitively on trimmed tokens.
func (o *Order) HasTag(tag string) bool {
	for _, existing := range o.TagList() {
		if existing == tag {
			return true
		}
	}
	return false
}

type Fulfillment struct {
	ID              int64  `json:"id"`
	OrderID         int64  `json:"order_id"`
	Status          string `json:"status"`
	Service         string `json:"service"`
	TrackingCompany string `json:"tracking_company"`
	TrackingNumber  string `json:"tracking_number"`
	CreatedAt       string `json:"created_at"`
}

// Actionable reports whether the fulfillment still accepts status-transition
// events. An absent status must not block reconciliation, so empty counts.
func (f *Fulfillment) Actionable() bool {
	switch f.Status {
	case "success", "open", "processing", "":
		return true
	default:
		return false
	}
}

type FulfillmentOrder struct {
	ID             int64          `json:"id"`
	OrderID        int64          `json:"order_id"`
	Status         string         `json:"status"`
	DeliveryMethod DeliveryMethod `json:"delivery_method"`
}

type DeliveryMethod struct {
	MethodType string `json:"method_type"`
}

// Open reports whether the fulfillment order can still accept a fulfillment.
func (fo *FulfillmentOrder) Open() bool {
	return fo.Status == "open" || fo.Status == "in_progress"
}

type TrackingInfo struct {
	Number  string `json:"number"`
	Company string `json:"company"`
	URL     string `json:"url,omitempty"`
}

type FulfillmentOrderLineItems struct {
	FulfillmentOrderID int64 `json:"fulfillment_order_id"`
}

// FulfillmentRequest creates a fulfillment scoped to one or more fulfillment
// orders.
type FulfillmentRequest struct {
	LineItemsByFulfillmentOrder []FulfillmentOrderLineItems `json:"line_items_by_fulfillment_order"`
	TrackingInfo                *TrackingInfo               `json:"tracking_info,omitempty"`
	NotifyCustomer              bool                        `json:"notify_customer"`
}

// Actions accepted by MarkFulfillmentOrderAction. These set the in-progress
// delivery badge directly on the fulfillment order without creating a
// fulfillment record.
const (
	ActionReadyForDelivery = "ready_for_delivery"
	ActionOutForDelivery   = "out_for_delivery"
)
