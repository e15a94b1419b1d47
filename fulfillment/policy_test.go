package fulfillment

import "testing"

func TestPolicyFromSettings(t *testing.T) {
	policy := PolicyFromSettings(map[string]string{
		SettingEnableApp:         "true",
		SettingTaggingEnabled:    "1",
		SettingTagName:           " ofd ",
		SettingFulfillmentUpdate: "yes",
		SettingFulfillmentStatus: "in_transit",
		SettingTestEmail:         "qa@example.com",
		"some_unknown_key":       "ignored",
	})

	if !policy.Enabled || !policy.TaggingEnabled || !policy.FulfillmentUpdateEnabled {
		t.Errorf("loose booleans not normalized: %+v", policy)
	}
	if policy.TagName != "ofd" {
		t.Errorf("expected trimmed tag name, got %q", policy.TagName)
	}
	if policy.TargetStatus != StatusInTransit {
		t.Errorf("expected in_transit, got %s", policy.TargetStatus)
	}
	if policy.TestEmail != "qa@example.com" {
		t.Errorf("unexpected test email %q", policy.TestEmail)
	}
}

func TestPolicyFromSettingsDefaults(t *testing.T) {
	policy := PolicyFromSettings(map[string]string{})

	if !policy.Enabled {
		t.Error("missing enable_app must default to enabled")
	}
	if policy.TaggingEnabled || policy.FulfillmentUpdateEnabled {
		t.Error("optional features must default to off")
	}
	if policy.TargetStatus != StatusOutForDelivery {
		t.Errorf("expected default target status, got %s", policy.TargetStatus)
	}
}

func TestPolicyFromSettingsRejectsUnknownStatus(t *testing.T) {
	policy := PolicyFromSettings(map[string]string{
		SettingFulfillmentStatus: "teleported",
	})
	if policy.TargetStatus != StatusOutForDelivery {
		t.Errorf("unknown status should fall back, got %s", policy.TargetStatus)
	}
}

func TestParseTargetStatus(t *testing.T) {
	if _, ok := ParseTargetStatus("not_a_status"); ok {
		t.Error("expected rejection of unknown status")
	}
	status, ok := ParseTargetStatus("  Delivered ")
	if !ok || status != StatusDelivered {
		t.Errorf("expected delivered, got %q ok=%v", status, ok)
	}
}

func TestPreTerminalStatuses(t *testing.T) {
	preTerminal := []TargetStatus{StatusReadyForDelivery, StatusOutForDelivery, StatusInTransit}
	for _, status := range preTerminal {
		if !status.PreTerminal() {
			t.Errorf("%s should be pre-terminal", status)
		}
	}
	for _, status := range []TargetStatus{StatusDelivered, StatusFulfilled, StatusFailure, StatusAttemptedDelivery} {
		if status.PreTerminal() {
			t.Errorf("%s should not be pre-terminal", status)
		}
	}
}

func TestDefaultPolicyFailsOpen(t *testing.T) {
	policy := DefaultPolicy()
	if !policy.Enabled {
		t.Error("default policy must keep the app enabled")
	}
	if policy.TaggingEnabled || policy.FulfillmentUpdateEnabled {
		t.Error("default policy must disable all optional features")
	}
}
