package fulfillment

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFlowTracerAppendsInOrder(t *testing.T) {
	flow := NewFlowTracer()
	flow.Add("first", 1)
	flow.Add("second", map[string]any{"k": "v"})
	flow.Add("third", nil)

	entries := flow.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{"first", "second", "third"}
	for i, step := range want {
		if entries[i].Step != step {
			t.Errorf("entry %d: expected %q, got %q", i, step, entries[i].Step)
		}
	}
}

func TestFlowTracerEntriesIsACopy(t *testing.T) {
	flow := NewFlowTracer()
	flow.Add("only", nil)

	entries := flow.Entries()
	entries[0].Step = "mutated"

	if flow.Entries()[0].Step != "only" {
		t.Error("mutating the returned slice must not affect the tracer")
	}
}

func TestFlowTracerJSON(t *testing.T) {
	flow := NewFlowTracer()
	flow.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	flow.Add("step", "detail")

	var decoded []FlowEntry
	if err := json.Unmarshal(flow.JSON(), &decoded); err != nil {
		t.Fatalf("tracer JSON not decodable: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Step != "step" {
		t.Errorf("unexpected decoded trace: %+v", decoded)
	}
}
