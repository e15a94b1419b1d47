package fulfillment

type TagStatus string

const (
	TagStatusSuccess TagStatus = "success"
	TagStatusExists  TagStatus = "exists"
	TagStatusFailed  TagStatus = "failed"
	TagStatusSkipped TagStatus = "skipped"
)

type FulfillStatus string

const (
	FulfillStatusSuccess FulfillStatus = "success"
	FulfillStatusFailed  FulfillStatus = "failed"
	FulfillStatusSkipped FulfillStatus = "skipped"
)

type TagOutcome struct {
	Status  TagStatus `json:"status"`
	TagName string    `json:"tagName,omitempty"`
	Error   string    `json:"error,omitempty"`
}

type FulfillmentOutcome struct {
	Status       FulfillStatus `json:"status"`
	Retries      int           `json:"retries"`
	TargetStatus TargetStatus  `json:"targetStatus,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Outcome is the compact summary record of one reconciliation run. Immutable
// once returned.
type Outcome struct {
	Tag         TagOutcome         `json:"tag"`
	Fulfillment FulfillmentOutcome `json:"fulfillment"`
	Steps       int                `json:"steps"`
}

// Summarize is a pure reduction of the per-step results and the trace into
// the outcome record. No remote calls.
func Summarize(tag TagOutcome, result FulfillmentOutcome, entries []FlowEntry) Outcome {
	return Outcome{
		Tag:         tag,
		Fulfillment: result,
		Steps:       len(entries),
	}
}
