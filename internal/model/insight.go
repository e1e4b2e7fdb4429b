package model

// InsightResult is the natural-language summary for one instrument.
type InsightResult struct {
	Instrument string            `json:"instrument"`
	Segment    Segment           `json:"segment"`
	Sentences  []string          `json:"sentences"`
	Text       string            `json:"text"`
	Snapshot   IndicatorSnapshot `json:"snapshot"`
	Sentiment  SentimentSummary  `json:"sentiment"`
	// Degraded is set when an upstream failure forced empty inputs.
	Degraded bool     `json:"degraded"`
	Notes    []string `json:"notes,omitempty"`
}
