package model

import "time"

// IndicatorSnapshot is the technical picture of one instrument at one time.
// A nil field means the value could not be computed from the available history.
type IndicatorSnapshot struct {
	RSI          *float64  `json:"rsi"`
	ShortMA      *float64  `json:"shortMA"`
	LongMA       *float64  `json:"longMA"`
	CurrentPrice *float64  `json:"currentPrice"`
	Signal       Signal    `json:"signal"`
	ComputedAt   time.Time `json:"computedAt"`
}

// Complete reports whether every numeric field is present.
func (s IndicatorSnapshot) Complete() bool {
	return s.RSI != nil && s.ShortMA != nil && s.LongMA != nil && s.CurrentPrice != nil
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
