package fulfillment

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/rahulkrishna-web/homerun-shipping-app/shopify"
)

// ErrMissingOrderID is terminal for the invocation: no retry, no fulfillment
// logic runs.
var ErrMissingOrderID = errors.New("missing order identifier in payload")

// ResolveOrderID extracts an order id from the recognized payload shapes, in
// order: top-level `id`, then nested `data.order.id`. Each check appends one
// trace entry.
func ResolveOrderID(payload map[string]any, tracer *FlowTracer) (int64, error) {
	if id, ok := toInt64(payload["id"]); ok {
		tracer.Add("identity.top_level_id", id)
		return id, nil
	}
	tracer.Add("identity.top_level_id", "absent")

	if data, ok := payload["data"].(map[string]any); ok {
		if order, ok := data["order"].(map[string]any); ok {
			if id, ok := toInt64(order["id"]); ok {
				tracer.Add("identity.data_order_id", id)
				return id, nil
			}
		}
	}
	tracer.Add("identity.data_order_id", "absent")

	return 0, ErrMissingOrderID
}

// ExtractTracking pulls tracking info from the triggering payload, with
// fallback constants when the provider sent none.
func ExtractTracking(payload map[string]any) shopify.TrackingInfo {
	info := shopify.TrackingInfo{
		Number:  "PENDING",
		Company: "Local Delivery",
	}
	if v := stringField(payload, "tracking_number"); v != "" {
		info.Number = v
	}
	if v := stringField(payload, "tracking_company"); v != "" {
		info.Company = v
	} else if v := stringField(payload, "courier_name"); v != "" {
		info.Company = v
	}
	info.URL = stringField(payload, "tracking_url")
	return info
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
