package fulfillment

import (
	"encoding/json"
	"time"
)

// FlowEntry is one step of a reconciliation run's diagnostic trace.
type FlowEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Step      string    `json:"step"`
	Detail    any       `json:"detail,omitempty"`
}

// FlowTracer is the append-only, ordered log of one reconciliation run.
// Entries are never mutated after append; ordering reconstructs the causal
// trace of the run. A tracer belongs to a single invocation and is not safe
// for concurrent use.
type FlowTracer struct {
	entries []FlowEntry
	now     func() time.Time
}

func NewFlowTracer() *FlowTracer {
	return &FlowTracer{now: time.Now}
}

func (t *FlowTracer) Add(step string, detail any) {
	t.entries = append(t.entries, FlowEntry{
		Timestamp: t.now(),
		Step:      step,
		Detail:    detail,
	})
}

func (t *FlowTracer) Entries() []FlowEntry {
	out := make([]FlowEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *FlowTracer) JSON() []byte {
	b, _ := json.Marshal(t.entries)
	return b
}
