package fulfillment

import (
	"context"
	"strings"
	"time"

	"github.com/rahulkrishna-web/homerun-shipping-app/config"
	"github.com/rahulkrishna-web/homerun-shipping-app/models"
)

// TargetStatus is a delivery status the engine can drive a fulfillment to.
type TargetStatus string

const (
	StatusReadyForDelivery  TargetStatus = "ready_for_delivery"
	StatusOutForDelivery    TargetStatus = "out_for_delivery"
	StatusInTransit         TargetStatus = "in_transit"
	StatusDelivered         TargetStatus = "delivered"
	StatusFulfilled         TargetStatus = "fulfilled"
	StatusFailure           TargetStatus = "failure"
	StatusAttemptedDelivery TargetStatus = "attempted_delivery"
)

func ParseTargetStatus(value string) (TargetStatus, bool) {
	status := TargetStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case StatusReadyForDelivery, StatusOutForDelivery, StatusInTransit,
		StatusDelivered, StatusFulfilled, StatusFailure, StatusAttemptedDelivery:
		return status, true
	default:
		return "", false
	}
}

// PreTerminal reports whether the status is a "blue badge" state: the remote
// UI shows it as delivery-in-progress without closing the fulfillment record.
func (s TargetStatus) PreTerminal() bool {
	switch s {
	case StatusReadyForDelivery, StatusOutForDelivery, StatusInTransit:
		return true
	default:
		return false
	}
}

// Settings store keys backing the policy.
const (
	SettingEnableApp         = "enable_app"
	SettingTaggingEnabled    = "tagging_enabled"
	SettingTagName           = "tag_name"
	SettingFulfillmentUpdate = "fulfillment_update_enabled"
	SettingFulfillmentStatus = "fulfillment_status"
	SettingTestEmail         = "test_email"
)

const policyCacheKey = "AppSettings:policy"
const policyCacheTTL = time.Minute

// Policy is the immutable per-invocation configuration snapshot. It is loaded
// once at invocation start and never mutated by the engine.
type Policy struct {
	Enabled                  bool         `json:"enabled"`
	TaggingEnabled           bool         `json:"taggingEnabled"`
	TagName                  string       `json:"tagName"`
	FulfillmentUpdateEnabled bool         `json:"fulfillmentUpdateEnabled"`
	TargetStatus             TargetStatus `json:"targetStatus"`
	TestEmail                string       `json:"testEmail"`
}

// DefaultPolicy is the fail-open snapshot used when the settings store is
// unreachable: the app stays enabled so webhooks are accepted, but every
// optional feature is off, making the invocation a safe no-op.
func DefaultPolicy() Policy {
	return Policy{Enabled: true}
}

// PolicyFromSettings maps loosely typed settings rows onto a Policy. Unknown
// keys are ignored; missing keys default.
func PolicyFromSettings(settings map[string]string) Policy {
	policy := DefaultPolicy()
	policy.Enabled = models.ParseLooseBool(settings[SettingEnableApp], true)
	policy.TaggingEnabled = models.ParseLooseBool(settings[SettingTaggingEnabled], false)
	policy.TagName = strings.TrimSpace(settings[SettingTagName])
	policy.FulfillmentUpdateEnabled = models.ParseLooseBool(settings[SettingFulfillmentUpdate], false)
	policy.TestEmail = strings.TrimSpace(settings[SettingTestEmail])

	if status, ok := ParseTargetStatus(settings[SettingFulfillmentStatus]); ok {
		policy.TargetStatus = status
	} else {
		policy.TargetStatus = StatusOutForDelivery
	}
	return policy
}

// LoadPolicy reads the policy snapshot, Redis cache first, settings table
// second. A store outage falls back to DefaultPolicy: refusing all webhooks
// on an outage is worse than a no-op pass-through.
func LoadPolicy(ctx context.Context) Policy {
	var cached Policy
	if exists, err := config.GetRedisObject(policyCacheKey, &cached); err == nil && exists {
		return cached
	}

	settings, err := models.GetSettingsMap(ctx)
	if err != nil {
		config.LogWarn(config.GetLogger(), "policy.go", "LoadPolicy", "settings store unreachable, using defaults", err.Error())
		return DefaultPolicy()
	}

	policy := PolicyFromSettings(settings)
	if err := config.SetRedisObject(policyCacheKey, &policy, policyCacheTTL); err != nil {
		config.LogWarn(config.GetLogger(), "policy.go", "LoadPolicy", "policy cache write failed", err.Error())
	}
	return policy
}

// InvalidatePolicyCache drops the cached snapshot after a settings update.
func InvalidatePolicyCache() {
	_ = config.RemoveRedisKey(policyCacheKey)
}
