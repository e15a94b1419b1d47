package fulfillment

import (
	"context"
	"time"

	"github.com/rahulkrishna-web/homerun-shipping-app/shopify"
)

const overrideSettleDelay = 3 * time.Second

// ForceStatus is the human-triggered recovery path. Unlike the webhook path
// it runs a single attempt with no retry loop, but pauses after fulfillment
// creation so the remote system can catch up before the status event lands.
//
// For pre-terminal ("blue badge") targets it first tries to mark an open
// fulfillment order directly, without creating a fulfillment record at all:
// creating one would visually close out the pre-delivery state in the remote
// UI.
func (r *Reconciler) ForceStatus(ctx context.Context, orderId int64, order *shopify.Order, target TargetStatus) FulfillmentOutcome {
	r.tracer.Add("override.start", map[string]any{"orderId": orderId, "target": string(target)})

	if order == nil {
		order = r.refreshOrder(ctx, orderId, nil, 1)
	}

	if target.PreTerminal() && r.badgeStrategy(ctx, orderId, target) {
		return FulfillmentOutcome{Status: FulfillStatusSuccess, Retries: 0, TargetStatus: target}
	}

	r.reopenTerminal = true
	r.settleDelay = overrideSettleDelay

	if r.strategyLegacy(ctx, orderId, order, target) {
		return FulfillmentOutcome{Status: FulfillStatusSuccess, Retries: 0, TargetStatus: target}
	}
	if r.strategyFulfillmentOrder(ctx, orderId, target) {
		return FulfillmentOutcome{Status: FulfillStatusSuccess, Retries: 0, TargetStatus: target}
	}

	r.tracer.Add("override.exhausted", nil)
	return FulfillmentOutcome{
		Status:       FulfillStatusFailed,
		Retries:      0,
		TargetStatus: target,
		Error:        "no actionable fulfillment target found",
	}
}

// badgeStrategy sets the delivery badge on the first open fulfillment order
// via the direct action endpoint.
func (r *Reconciler) badgeStrategy(ctx context.Context, orderId int64, target TargetStatus) bool {
	fulfillmentOrders, err := r.api.ListFulfillmentOrders(ctx, orderId)
	if err != nil {
		r.tracer.Add("badge.list_failed", err.Error())
		return false
	}

	var open *shopify.FulfillmentOrder
	for i := range fulfillmentOrders {
		if fulfillmentOrders[i].Open() {
			open = &fulfillmentOrders[i]
			break
		}
	}
	if open == nil {
		r.tracer.Add("badge.none", nil)
		return false
	}

	action := shopify.ActionOutForDelivery
	if target == StatusReadyForDelivery {
		action = shopify.ActionReadyForDelivery
	}

	if err := r.api.MarkFulfillmentOrderAction(ctx, open.ID, action); err != nil {
		r.tracer.Add("badge.mark_failed", err.Error())
		return false
	}
	r.tracer.Add("badge.marked", map[string]any{"fulfillmentOrderId": open.ID, "action": action})
	return true
}
