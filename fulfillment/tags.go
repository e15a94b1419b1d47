package fulfillment

import (
	"context"
	"strings"

	"github.com/rahulkrishna-web/homerun-shipping-app/shopify"
)

// EnsureTag idempotently makes sure the policy's tag is present on the order.
// A remote failure yields a failed outcome but never aborts the invocation:
// tagging and fulfillment reconciliation are failure-isolated.
func EnsureTag(ctx context.Context, api CommerceAPI, order *shopify.Order, policy Policy, tracer *FlowTracer) TagOutcome {
	tagName := strings.TrimSpace(policy.TagName)
	if !policy.TaggingEnabled || tagName == "" {
		tracer.Add("tag.skipped", map[string]any{"taggingEnabled": policy.TaggingEnabled, "tagName": tagName})
		return TagOutcome{Status: TagStatusSkipped, TagName: tagName}
	}

	if order.HasTag(tagName) {
		tracer.Add("tag.exists", tagName)
		return TagOutcome{Status: TagStatusExists, TagName: tagName}
	}

	tags := strings.Join(append(order.TagList(), tagName), ", ")
	if err := api.UpdateOrderTags(ctx, order.ID, tags); err != nil {
		tracer.Add("tag.update_failed", err.Error())
		return TagOutcome{Status: TagStatusFailed, TagName: tagName, Error: err.Error()}
	}

	tracer.Add("tag.added", tagName)
	return TagOutcome{Status: TagStatusSuccess, TagName: tagName}
}
