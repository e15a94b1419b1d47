package fulfillment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/rahulkrishna-web/homerun-shipping-app/shopify"
)

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "shh"
	body := []byte(`{"id":1}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(secret, body, valid) {
		t.Error("expected valid signature to verify")
	}
	if VerifyWebhookSignature(secret, body, "bogus") {
		t.Error("expected bogus signature to fail")
	}
	if VerifyWebhookSignature(secret, body, "") {
		t.Error("expected empty signature to fail")
	}
}

// payload {id:123, tags:""} with tagging on and fulfillment updates off:
// tag success, fulfillment skipped.
func TestRunReconciliationTagOnlyPolicy(t *testing.T) {
	api := &fakeAPI{}
	order := &shopify.Order{ID: 123, Tags: ""}
	policy := Policy{
		Enabled:        true,
		TaggingEnabled: true,
		TagName:        "ofd",
	}
	flow := NewFlowTracer()

	tagOutcome, fulfillOutcome := runReconciliation(context.Background(), api, order, map[string]any{"id": float64(123)}, policy, flow)

	if tagOutcome.Status != TagStatusSuccess || tagOutcome.TagName != "ofd" {
		t.Errorf("unexpected tag outcome: %+v", tagOutcome)
	}
	if fulfillOutcome.Status != FulfillStatusSkipped {
		t.Errorf("expected fulfillment skipped, got %s", fulfillOutcome.Status)
	}
	if !containsStep(flow, "fulfillment.skipped") {
		t.Error("expected fulfillment.skipped in trace")
	}
}

// A tag failure must not prevent fulfillment reconciliation from running.
func TestRunReconciliationFailureIsolation(t *testing.T) {
	api := &fakeAPI{
		tagErr: errors.New("tags endpoint down"),
		order: &shopify.Order{
			ID:           50,
			Fulfillments: []shopify.Fulfillment{{ID: 12, Status: "open"}},
		},
	}
	order := &shopify.Order{
		ID:           50,
		Fulfillments: []shopify.Fulfillment{{ID: 12, Status: "open"}},
	}
	policy := Policy{
		Enabled:                  true,
		TaggingEnabled:           true,
		TagName:                  "ofd",
		FulfillmentUpdateEnabled: true,
		TargetStatus:             StatusOutForDelivery,
	}
	flow := NewFlowTracer()

	tagOutcome, fulfillOutcome := runReconciliation(context.Background(), api, order, map[string]any{}, policy, flow)

	if tagOutcome.Status != TagStatusFailed {
		t.Fatalf("expected tag failure, got %s", tagOutcome.Status)
	}
	if fulfillOutcome.Status != FulfillStatusSuccess {
		t.Fatalf("expected fulfillment success despite tag failure, got %s: %s", fulfillOutcome.Status, fulfillOutcome.Error)
	}
	if len(api.eventFulfillmentIds) != 1 {
		t.Errorf("expected fulfillment event issued, got %v", api.eventFulfillmentIds)
	}
}

func TestSummarize(t *testing.T) {
	flow := NewFlowTracer()
	flow.Add("a", nil)
	flow.Add("b", nil)

	outcome := Summarize(
		TagOutcome{Status: TagStatusExists, TagName: "ofd"},
		FulfillmentOutcome{Status: FulfillStatusFailed, Retries: 3, Error: errNoOpenFulfillment},
		flow.Entries(),
	)

	if outcome.Tag.Status != TagStatusExists {
		t.Errorf("unexpected tag summary: %+v", outcome.Tag)
	}
	if outcome.Fulfillment.Retries != 3 || outcome.Fulfillment.Error != errNoOpenFulfillment {
		t.Errorf("unexpected fulfillment summary: %+v", outcome.Fulfillment)
	}
	if outcome.Steps != 2 {
		t.Errorf("expected 2 steps, got %d", outcome.Steps)
	}
}
