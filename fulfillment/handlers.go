package fulfillment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rahulkrishna-web/homerun-shipping-app/config"
	"github.com/rahulkrishna-web/homerun-shipping-app/models"
	"github.com/rahulkrishna-web/homerun-shipping-app/shopify"
	"github.com/rahulkrishna-web/homerun-shipping-app/utils"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("homerun-shipping-app")

// WebhookHandler accepts a shipping-provider event and runs one complete
// reconciliation: policy gate, tag, fulfillment status, persisted audit log.
func WebhookHandler(api CommerceAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
			return
		}
		if secret := strings.TrimSpace(os.Getenv("SHOPIFY_WEBHOOK_SECRET")); secret != "" {
			if !VerifyWebhookSignature(secret, body, c.GetHeader("X-Shopify-Hmac-Sha256")) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
				return
			}
		}

		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		correlationId := uuid.NewString()
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		ctx, span := tracer.Start(ctx, "shipping-webhook")
		defer span.End()

		flow := NewFlowTracer()
		policy := LoadPolicy(ctx)
		flow.Add("policy.loaded", policy)

		if !policy.Enabled {
			flow.Add("policy.disabled", nil)
			models.InsertWebhookLog(ctx, &models.WebhookLog{
				Status:        models.WebhookLogStatusInfo,
				Message:       "app disabled, webhook ignored",
				CorrelationId: correlationId,
				RawPayload:    body,
				FlowLogJSON:   flow.JSON(),
			})
			c.JSON(http.StatusOK, gin.H{"accepted": true, "reason": "disabled"})
			return
		}

		orderId, err := ResolveOrderID(payload, flow)
		if err != nil {
			models.InsertWebhookLog(ctx, &models.WebhookLog{
				Status:        models.WebhookLogStatusError,
				Message:       err.Error(),
				CorrelationId: correlationId,
				RawPayload:    body,
				FlowLogJSON:   flow.JSON(),
			})
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := api.GetOrder(ctx, orderId)
		if err != nil {
			flow.Add("order.fetch_failed", err.Error())
			config.LogError(logger, "handlers.go", "WebhookHandler", "api.GetOrder", orderId, err)
			models.InsertWebhookLog(ctx, &models.WebhookLog{
				Status:        models.WebhookLogStatusError,
				Message:       fmt.Sprintf("order %d lookup failed: %s", orderId, err.Error()),
				CorrelationId: correlationId,
				RawPayload:    body,
				FlowLogJSON:   flow.JSON(),
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order lookup failed"})
			return
		}
		flow.Add("order.loaded", map[string]any{"orderId": order.ID, "name": order.Name})

		if policy.TestEmail != "" && !strings.EqualFold(strings.TrimSpace(order.Email), policy.TestEmail) {
			flow.Add("policy.test_email_filtered", order.Email)
			models.InsertWebhookLog(ctx, &models.WebhookLog{
				Status:        models.WebhookLogStatusInfo,
				Message:       fmt.Sprintf("order %d skipped by test email filter", orderId),
				CorrelationId: correlationId,
				RawPayload:    body,
				FlowLogJSON:   flow.JSON(),
			})
			c.JSON(http.StatusOK, gin.H{"accepted": true, "reason": "test email filter"})
			return
		}

		tagOutcome, fulfillOutcome := runReconciliation(ctx, api, order, payload, policy, flow)

		summary := Summarize(tagOutcome, fulfillOutcome, flow.Entries())
		summaryJSON, _ := json.Marshal(summary)

		status := models.WebhookLogStatusSuccess
		message := fmt.Sprintf("order %d reconciled", orderId)
		if tagOutcome.Status == TagStatusFailed || fulfillOutcome.Status == FulfillStatusFailed {
			status = models.WebhookLogStatusWarning
			message = fmt.Sprintf("order %d reconciled with failures", orderId)
		}
		models.InsertWebhookLog(ctx, &models.WebhookLog{
			Status:        status,
			Message:       message,
			CorrelationId: correlationId,
			RawPayload:    body,
			FlowLogJSON:   flow.JSON(),
			SummaryJSON:   summaryJSON,
		})

		c.JSON(http.StatusOK, gin.H{"accepted": true, "summary": summary})
	}
}

// runReconciliation applies the tag and the fulfillment status transition.
// The two halves are failure-isolated: a tag failure never stops the
// fulfillment update and vice versa.
func runReconciliation(ctx context.Context, api CommerceAPI, order *shopify.Order, payload map[string]any, policy Policy, flow *FlowTracer) (TagOutcome, FulfillmentOutcome) {
	tagOutcome := EnsureTag(ctx, api, order, policy, flow)

	var fulfillOutcome FulfillmentOutcome
	if policy.FulfillmentUpdateEnabled {
		reconciler := NewReconciler(api, flow)
		reconciler.SetTracking(ExtractTracking(payload))
		fulfillOutcome = reconciler.Reconcile(ctx, order.ID, order, policy.TargetStatus)
	} else {
		flow.Add("fulfillment.skipped", "fulfillment update disabled")
		fulfillOutcome = FulfillmentOutcome{Status: FulfillStatusSkipped}
	}
	return tagOutcome, fulfillOutcome
}

type ForceStatusRequest struct {
	Order           string `json:"order" binding:"required"`
	Status          string `json:"status" binding:"required"`
	TrackingNumber  string `json:"trackingNumber"`
	TrackingCompany string `json:"trackingCompany"`
}

// ForceStatusHandler is the operator-facing recovery entry point: force one
// order to one delivery status, single attempt, full trace in the response.
func ForceStatusHandler(api CommerceAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForceStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		target, ok := ParseTargetStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown target status %q", req.Status)})
			return
		}

		correlationId := uuid.NewString()
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		ctx, span := tracer.Start(ctx, "force-status")
		defer span.End()

		flow := NewFlowTracer()
		flow.Add("override.request", req)

		order, err := lookupOrder(c, api, req.Order, flow)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": err.Error(),
				"flowLog": flow.Entries(),
			})
			return
		}

		reconciler := NewReconciler(api, flow)
		if strings.TrimSpace(req.TrackingNumber) != "" {
			company := strings.TrimSpace(req.TrackingCompany)
			if company == "" {
				company = "Local Delivery"
			}
			reconciler.SetTracking(shopify.TrackingInfo{
				Number:  strings.TrimSpace(req.TrackingNumber),
				Company: company,
			})
		}

		outcome := reconciler.ForceStatus(ctx, order.ID, order, target)

		summary := Summarize(TagOutcome{Status: TagStatusSkipped}, outcome, flow.Entries())
		summaryJSON, _ := json.Marshal(summary)

		status := models.WebhookLogStatusSuccess
		message := fmt.Sprintf("order %d forced to %s", order.ID, target)
		if outcome.Status == FulfillStatusFailed {
			status = models.WebhookLogStatusWarning
			message = fmt.Sprintf("force status on order %d failed: %s", order.ID, outcome.Error)
		}
		models.InsertWebhookLog(ctx, &models.WebhookLog{
			Status:        status,
			Message:       message,
			CorrelationId: correlationId,
			FlowLogJSON:   flow.JSON(),
			SummaryJSON:   summaryJSON,
		})

		c.JSON(http.StatusOK, gin.H{
			"success": outcome.Status == FulfillStatusSuccess,
			"message": message,
			"flowLog": flow.Entries(),
		})
	}
}

// lookupOrder resolves the operator's input as a numeric id first, then as a
// human-readable order name.
func lookupOrder(c *gin.Context, api CommerceAPI, input string, flow *FlowTracer) (*shopify.Order, error) {
	input = strings.TrimSpace(input)
	if id, err := strconv.ParseInt(input, 10, 64); err == nil {
		flow.Add("override.lookup_by_id", id)
		return api.GetOrder(c.Request.Context(), id)
	}
	flow.Add("override.lookup_by_name", input)
	return api.FindOrderByName(c.Request.Context(), input)
}

func GetSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := models.GetSettingsMap(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"settings": settings,
			"policy":   PolicyFromSettings(settings),
		})
	}
}

// UpdateSettingsHandler upserts only the supplied keys.
func UpdateSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var values map[string]string
		if err := c.ShouldBindJSON(&values); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if len(values) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no settings supplied"})
			return
		}
		if err := models.UpsertSettings(c.Request.Context(), values); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		InvalidatePolicyCache()
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func WebhookLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		logs, err := models.ListWebhookLogs(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": logs})
	}
}

// VerifyWebhookSignature checks the platform's HMAC-SHA256 webhook signature
// (base64-encoded digest of the raw body).
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
