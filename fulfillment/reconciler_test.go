package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rahulkrishna-web/homerun-shipping-app/shopify"
)

// fakeAPI is an in-memory stand-in for the remote commerce platform.
type fakeAPI struct {
	order         *shopify.Order
	orderErr      error
	getOrderCalls int
	ordersByName  map[string]*shopify.Order

	fulfillmentOrders []shopify.FulfillmentOrder
	listErr           error
	listCalls         int

	updatedTags []string
	tagErr      error

	eventFulfillmentIds []int64
	eventStatuses       []string
	eventErrById        map[int64]error

	created           []shopify.FulfillmentRequest
	createErr         error
	nextFulfillmentId int64

	reopened  []int64
	reopenErr error

	markedIds     []int64
	markedActions []string
	markErr       error
}

func (f *fakeAPI) GetOrder(ctx context.Context, orderId int64) (*shopify.Order, error) {
	f.getOrderCalls++
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	if f.order == nil {
		return &shopify.Order{ID: orderId}, nil
	}
	copied := *f.order
	return &copied, nil
}

func (f *fakeAPI) FindOrderByName(ctx context.Context, name string) (*shopify.Order, error) {
	if order, ok := f.ordersByName[name]; ok {
		return order, nil
	}
	return nil, errors.New("no order found")
}

func (f *fakeAPI) UpdateOrderTags(ctx context.Context, orderId int64, tags string) error {
	if f.tagErr != nil {
		return f.tagErr
	}
	f.updatedTags = append(f.updatedTags, tags)
	return nil
}

func (f *fakeAPI) ListFulfillmentOrders(ctx context.Context, orderId int64) ([]shopify.FulfillmentOrder, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.fulfillmentOrders, nil
}

func (f *fakeAPI) CreateFulfillmentEvent(ctx context.Context, orderId, fulfillmentId int64, status string) error {
	if err := f.eventErrById[fulfillmentId]; err != nil {
		return err
	}
	f.eventFulfillmentIds = append(f.eventFulfillmentIds, fulfillmentId)
	f.eventStatuses = append(f.eventStatuses, status)
	return nil
}

func (f *fakeAPI) CreateFulfillment(ctx context.Context, req shopify.FulfillmentRequest) (*shopify.Fulfillment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	id := f.nextFulfillmentId
	if id == 0 {
		id = 900
	}
	return &shopify.Fulfillment{ID: id, Status: "open"}, nil
}

func (f *fakeAPI) ReopenFulfillment(ctx context.Context, orderId, fulfillmentId int64) error {
	f.reopened = append(f.reopened, fulfillmentId)
	return f.reopenErr
}

func (f *fakeAPI) MarkFulfillmentOrderAction(ctx context.Context, fulfillmentOrderId int64, action string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedIds = append(f.markedIds, fulfillmentOrderId)
	f.markedActions = append(f.markedActions, action)
	return nil
}

func newTestReconciler(api CommerceAPI, flow *FlowTracer) (*Reconciler, *[]time.Duration) {
	r := NewReconciler(api, flow)
	waits := &[]time.Duration{}
	r.sleep = func(d time.Duration) { *waits = append(*waits, d) }
	return r, waits
}

func traceSteps(flow *FlowTracer) []string {
	entries := flow.Entries()
	steps := make([]string, 0, len(entries))
	for _, entry := range entries {
		steps = append(steps, entry.Step)
	}
	return steps
}

func containsStep(flow *FlowTracer, step string) bool {
	for _, s := range traceSteps(flow) {
		if s == step {
			return true
		}
	}
	return false
}

func TestReconcileExhaustsRetryBudget(t *testing.T) {
	api := &fakeAPI{order: &shopify.Order{ID: 789}}
	flow := NewFlowTracer()
	r, waits := newTestReconciler(api, flow)

	outcome := r.Reconcile(context.Background(), 789, nil, StatusInTransit)

	if outcome.Status != FulfillStatusFailed {
		t.Fatalf("expected failed outcome, got %s", outcome.Status)
	}
	if outcome.Retries != 3 {
		t.Errorf("expected retries=3, got %d", outcome.Retries)
	}
	if outcome.Error != errNoOpenFulfillment {
		t.Errorf("unexpected error message: %q", outcome.Error)
	}
	if api.getOrderCalls != 3 {
		t.Errorf("expected 3 fetch cycles, got %d", api.getOrderCalls)
	}
	if len(*waits) != 2 {
		t.Errorf("expected 2 inter-attempt waits, got %d", len(*waits))
	}
	if !containsStep(flow, "attempt.wait") {
		t.Error("expected attempt.wait trace entry")
	}
}

func TestReconcileEarlySuccessStopsRetrying(t *testing.T) {
	api := &fakeAPI{order: &shopify.Order{
		ID:           123,
		Fulfillments: []shopify.Fulfillment{{ID: 11, Status: "open"}},
	}}
	flow := NewFlowTracer()
	r, waits := newTestReconciler(api, flow)

	outcome := r.Reconcile(context.Background(), 123, nil, StatusDelivered)

	if outcome.Status != FulfillStatusSuccess {
		t.Fatalf("expected success, got %s: %s", outcome.Status, outcome.Error)
	}
	if outcome.Retries != 0 {
		t.Errorf("expected retries=0, got %d", outcome.Retries)
	}
	if api.getOrderCalls != 1 {
		t.Errorf("expected exactly 1 fetch cycle, got %d", api.getOrderCalls)
	}
	if len(*waits) != 0 {
		t.Errorf("expected no waits, got %d", len(*waits))
	}
	if len(api.eventFulfillmentIds) != 1 || api.eventFulfillmentIds[0] != 11 {
		t.Errorf("expected event against fulfillment 11, got %v", api.eventFulfillmentIds)
	}
	if api.eventStatuses[0] != "delivered" {
		t.Errorf("expected delivered status, got %q", api.eventStatuses[0])
	}
}

func TestReconcileReusesSnapshotOnFirstAttempt(t *testing.T) {
	api := &fakeAPI{}
	snapshot := &shopify.Order{
		ID:           55,
		Fulfillments: []shopify.Fulfillment{{ID: 7, Status: ""}},
	}
	flow := NewFlowTracer()
	r, _ := newTestReconciler(api, flow)

	outcome := r.Reconcile(context.Background(), 55, snapshot, StatusFulfilled)

	if outcome.Status != FulfillStatusSuccess {
		t.Fatalf("expected success, got %s", outcome.Status)
	}
	if api.getOrderCalls != 0 {
		t.Errorf("expected snapshot reuse on attempt 1, got %d fetches", api.getOrderCalls)
	}
}

// A fulfillment with no status at all must not block reconciliation.
func TestReconcileTreatsMissingStatusAsActionable(t *testing.T) {
	f := shopify.Fulfillment{ID: 1}
	if !f.Actionable() {
		t.Error("fulfillment with empty status should be actionable")
	}
	cancelled := shopify.Fulfillment{ID: 2, Status: "cancelled"}
	if cancelled.Actionable() {
		t.Error("cancelled fulfillment should not be actionable")
	}
}

func TestReconcileFallsBackToFulfillmentOrders(t *testing.T) {
	api := &fakeAPI{
		order: &shopify.Order{ID: 42},
		fulfillmentOrders: []shopify.FulfillmentOrder{
			{ID: 21, Status: "closed"},
			{ID: 22, Status: "open"},
		},
	}
	flow := NewFlowTracer()
	r, _ := newTestReconciler(api, flow)

	outcome := r.Reconcile(context.Background(), 42, nil, StatusInTransit)

	if outcome.Status != FulfillStatusSuccess {
		t.Fatalf("expected success, got %s: %s", outcome.Status, outcome.Error)
	}
	if outcome.Retries != 0 {
		t.Errorf("expected retries=0, got %d", outcome.Retries)
	}
	if len(api.created) != 1 {
		t.Fatalf("expected 1 fulfillment created, got %d", len(api.created))
	}
	created := api.created[0]
	if created.LineItemsByFulfillmentOrder[0].FulfillmentOrderID != 22 {
		t.Errorf("expected creation scoped to open FO 22, got %d", created.LineItemsByFulfillmentOrder[0].FulfillmentOrderID)
	}
	if created.TrackingInfo == nil || created.TrackingInfo.Number != "PENDING" {
		t.Errorf("expected fallback tracking info, got %+v", created.TrackingInfo)
	}
	if !created.NotifyCustomer {
		t.Error("expected customer notification for in_transit")
	}
	if len(api.eventFulfillmentIds) != 1 || api.eventFulfillmentIds[0] != 900 {
		t.Errorf("expected event against created fulfillment, got %v", api.eventFulfillmentIds)
	}

	// strategy ordering: A scanned and found nothing before B ran
	steps := traceSteps(flow)
	sawANone, sawBFound := -1, -1
	for i, step := range steps {
		if step == "strategyA.none" && sawANone == -1 {
			sawANone = i
		}
		if step == "strategyB.found" && sawBFound == -1 {
			sawBFound = i
		}
	}
	if sawANone == -1 || sawBFound == -1 || sawANone > sawBFound {
		t.Errorf("expected strategy A scan before strategy B, steps: %v", steps)
	}
}

func TestReconcileStrategyAFailureFallsThroughSameAttempt(t *testing.T) {
	api := &fakeAPI{
		order: &shopify.Order{
			ID:           42,
			Fulfillments: []shopify.Fulfillment{{ID: 11, Status: "open"}},
		},
		fulfillmentOrders: []shopify.FulfillmentOrder{{ID: 21, Status: "open"}},
		eventErrById:      map[int64]error{11: errors.New("event rejected")},
	}
	flow := NewFlowTracer()
	r, waits := newTestReconciler(api, flow)

	outcome := r.Reconcile(context.Background(), 42, nil, StatusDelivered)

	if outcome.Status != FulfillStatusSuccess {
		t.Fatalf("expected success via strategy B, got %s: %s", outcome.Status, outcome.Error)
	}
	if api.getOrderCalls != 1 {
		t.Errorf("expected fallback within the same attempt, got %d fetches", api.getOrderCalls)
	}
	if len(*waits) != 0 {
		t.Errorf("expected no inter-attempt wait, got %d", len(*waits))
	}
	if !containsStep(flow, "strategyA.event_failed") {
		t.Error("expected strategyA.event_failed in trace")
	}
	if len(api.created) != 1 {
		t.Errorf("expected strategy B creation, got %d", len(api.created))
	}
	// delivered is terminal: no tracking info attached on creation
	if api.created[0].TrackingInfo != nil {
		t.Errorf("expected no tracking info for delivered target, got %+v", api.created[0].TrackingInfo)
	}
}

func TestReconcileRefetchErrorDegradesToSnapshot(t *testing.T) {
	api := &fakeAPI{orderErr: errors.New("remote unavailable")}
	snapshot := &shopify.Order{
		ID:           77,
		Fulfillments: []shopify.Fulfillment{{ID: 9, Status: "cancelled"}},
	}
	flow := NewFlowTracer()
	r, _ := newTestReconciler(api, flow)

	outcome := r.Reconcile(context.Background(), 77, snapshot, StatusDelivered)

	if outcome.Status != FulfillStatusFailed {
		t.Fatalf("expected failed outcome, got %s", outcome.Status)
	}
	// attempts 2 and 3 tried to re-fetch and failed; the run still completed
	if api.getOrderCalls != 2 {
		t.Errorf("expected 2 re-fetch attempts, got %d", api.getOrderCalls)
	}
	if !containsStep(flow, "order.refetch_failed") {
		t.Error("expected order.refetch_failed in trace")
	}
}

func TestReconcileTraceTimestampsNonDecreasing(t *testing.T) {
	api := &fakeAPI{order: &shopify.Order{ID: 5}}
	flow := NewFlowTracer()
	r, _ := newTestReconciler(api, flow)

	r.Reconcile(context.Background(), 5, nil, StatusInTransit)

	entries := flow.Entries()
	if len(entries) == 0 {
		t.Fatal("expected trace entries")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Fatalf("trace timestamps decreased at entry %d", i)
		}
	}
}
