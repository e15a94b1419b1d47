package fulfillment

import (
	"context"
	"time"

	"github.com/rahulkrishna-web/homerun-shipping-app/shopify"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 3 * time.Second

	errNoOpenFulfillment = "no open fulfillment found after retries"
)

// reconcileState enumerates the states of one reconciliation run. Keeping the
// control flow as an explicit machine lets the backoff policy and the two
// strategies change independently of each other.
type reconcileState int

const (
	stateAttemptStart reconcileState = iota
	stateStrategyA
	stateStrategyB
	stateWait
	stateSucceeded
	stateExhausted
)

// Reconciler drives an order's fulfillment toward a target delivery status.
// One Reconciler serves one invocation; it shares no state across runs.
type Reconciler struct {
	api    CommerceAPI
	tracer *FlowTracer

	maxAttempts int
	delay       time.Duration
	sleep       func(time.Duration)

	tracking shopify.TrackingInfo

	// override-path behavior, see ForceStatus
	settleDelay    time.Duration
	reopenTerminal bool
}

func NewReconciler(api CommerceAPI, tracer *FlowTracer) *Reconciler {
	return &Reconciler{
		api:         api,
		tracer:      tracer,
		maxAttempts: defaultMaxAttempts,
		delay:       defaultRetryDelay,
		sleep:       time.Sleep,
		tracking: shopify.TrackingInfo{
			Number:  "PENDING",
			Company: "Local Delivery",
		},
	}
}

// SetTracking overrides the fallback tracking info with values extracted from
// the triggering payload.
func (r *Reconciler) SetTracking(info shopify.TrackingInfo) {
	r.tracking = info
}

// Reconcile runs the bounded-attempt loop. The snapshot may be nil; attempt 1
// reuses it when present, later attempts always re-fetch because the remote
// system's fulfillment list is not instantaneously consistent.
func (r *Reconciler) Reconcile(ctx context.Context, orderId int64, snapshot *shopify.Order, target TargetStatus) FulfillmentOutcome {
	attempt := 0
	order := snapshot
	state := stateAttemptStart

	for {
		switch state {
		case stateAttemptStart:
			attempt++
			r.tracer.Add("attempt.start", attempt)
			order = r.refreshOrder(ctx, orderId, order, attempt)
			state = stateStrategyA

		case stateStrategyA:
			if r.strategyLegacy(ctx, orderId, order, target) {
				state = stateSucceeded
			} else {
				state = stateStrategyB
			}

		case stateStrategyB:
			if r.strategyFulfillmentOrder(ctx, orderId, target) {
				state = stateSucceeded
			} else if attempt < r.maxAttempts {
				state = stateWait
			} else {
				state = stateExhausted
			}

		case stateWait:
			r.tracer.Add("attempt.wait", r.delay.String())
			r.sleep(r.delay)
			state = stateAttemptStart

		case stateSucceeded:
			return FulfillmentOutcome{
				Status:       FulfillStatusSuccess,
				Retries:      attempt - 1,
				TargetStatus: target,
			}

		case stateExhausted:
			r.tracer.Add("attempt.exhausted", attempt)
			return FulfillmentOutcome{
				Status:       FulfillStatusFailed,
				Retries:      r.maxAttempts,
				TargetStatus: target,
				Error:        errNoOpenFulfillment,
			}
		}
	}
}

// refreshOrder returns the freshest order snapshot available. A fetch error
// never aborts the attempt: the engine degrades to the last known snapshot.
func (r *Reconciler) refreshOrder(ctx context.Context, orderId int64, last *shopify.Order, attempt int) *shopify.Order {
	if attempt == 1 && last != nil {
		r.tracer.Add("order.snapshot_reused", orderId)
		return last
	}
	order, err := r.api.GetOrder(ctx, orderId)
	if err != nil {
		r.tracer.Add("order.refetch_failed", err.Error())
		return last
	}
	r.tracer.Add("order.fetched", map[string]any{"orderId": orderId, "fulfillments": len(order.Fulfillments)})
	return order
}

// strategyLegacy targets the first actionable legacy fulfillment record.
func (r *Reconciler) strategyLegacy(ctx context.Context, orderId int64, order *shopify.Order, target TargetStatus) bool {
	var found *shopify.Fulfillment
	if order != nil {
		for i := range order.Fulfillments {
			if order.Fulfillments[i].Actionable() {
				found = &order.Fulfillments[i]
				break
			}
		}
	}
	if found == nil {
		r.tracer.Add("strategyA.none", nil)
		return false
	}
	r.tracer.Add("strategyA.found", map[string]any{"fulfillmentId": found.ID, "status": found.Status})

	if r.reopenTerminal && found.Status == "success" && target.PreTerminal() {
		// A closed fulfillment cannot show the blue badge; try re-opening it
		// first. Best effort; not all remote states support the transition.
		if err := r.api.ReopenFulfillment(ctx, orderId, found.ID); err != nil {
			r.tracer.Add("strategyA.reopen_failed", err.Error())
		} else {
			r.tracer.Add("strategyA.reopened", found.ID)
		}
	}

	if err := r.api.CreateFulfillmentEvent(ctx, orderId, found.ID, string(target)); err != nil {
		r.tracer.Add("strategyA.event_failed", err.Error())
		return false
	}
	r.tracer.Add("strategyA.event_created", string(target))
	return true
}

// strategyFulfillmentOrder creates a fulfillment scoped to the first open
// fulfillment order, then issues the status event against it.
func (r *Reconciler) strategyFulfillmentOrder(ctx context.Context, orderId int64, target TargetStatus) bool {
	fulfillmentOrders, err := r.api.ListFulfillmentOrders(ctx, orderId)
	if err != nil {
		r.tracer.Add("strategyB.list_failed", err.Error())
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
		r.tracer.Add("strategyB.none", nil)
		return false
	}
	r.tracer.Add("strategyB.found", map[string]any{"fulfillmentOrderId": open.ID, "status": open.Status})

	request := shopify.FulfillmentRequest{
		LineItemsByFulfillmentOrder: []shopify.FulfillmentOrderLineItems{
			{FulfillmentOrderID: open.ID},
		},
	}
	if target == StatusInTransit || target == StatusOutForDelivery {
		tracking := r.tracking
		request.TrackingInfo = &tracking
		request.NotifyCustomer = true
	}

	created, err := r.api.CreateFulfillment(ctx, request)
	if err != nil {
		r.tracer.Add("strategyB.create_failed", err.Error())
		return false
	}
	r.tracer.Add("strategyB.fulfillment_created", created.ID)

	if r.settleDelay > 0 {
		// Give the remote system time to propagate the new fulfillment before
		// hitting it with a status event.
		r.tracer.Add("strategyB.settle", r.settleDelay.String())
		r.sleep(r.settleDelay)
	}

	if err := r.api.CreateFulfillmentEvent(ctx, orderId, created.ID, string(target)); err != nil {
		r.tracer.Add("strategyB.event_failed", err.Error())
		return false
	}
	r.tracer.Add("strategyB.event_created", string(target))
	return true
}
