package insight

import (
	"math"
	"strings"

	"TickerTracker/internal/calculator"
	"TickerTracker/internal/model"
)

const (
	strongSentiment  = 0.3
	neutralSentiment = 0.1
)

const (
	SentenceBullish       = "Technical indicators show bullish trend with price above moving averages."
	SentenceBearish       = "Technical indicators suggest bearish trend with price below moving averages."
	SentenceOverbought    = "RSI indicates overbought conditions, suggesting potential pullback."
	SentenceOversold      = "RSI indicates oversold conditions, suggesting potential bounce."
	SentencePositive      = "Recent news sentiment is strongly positive."
	SentenceNegative      = "Recent news sentiment is strongly negative."
	SentenceNeutral       = "News sentiment is relatively neutral recently."
	SentenceNoSentiment   = "No recent news sentiment data available."
	SentenceConsolidation = "No strong signals detected. Market appears to be in consolidation."
	SentenceInsufficient  = "Insufficient data for comprehensive analysis. Gathering more market information."
)

// ContextFunc returns the segment context sentence, or "" for none.
type ContextFunc func(model.Segment) string

// Synthesizer turns indicators and sentiment into a short narrative.
type Synthesizer struct {
	context ContextFunc
}

// NewSynthesizer creates a Synthesizer. A nil ctx disables segment context.
func NewSynthesizer(ctx ContextFunc) *Synthesizer {
	if ctx == nil {
		ctx = func(model.Segment) string { return "" }
	}
	return &Synthesizer{context: ctx}
}

// Synthesize applies the rules in a fixed order: trend, RSI extremes,
// sentiment, segment context, then a fallback when nothing else applied.
// The no-sentiment sentence only qualifies other sentences; on its own the
// insufficient-data fallback is used instead.
func (s *Synthesizer) Synthesize(instrument string, snap model.IndicatorSnapshot, sent model.SentimentSummary, seg model.Segment) model.InsightResult {
	var trend, momentum, mood, context string

	switch snap.Signal {
	case model.SignalBullish:
		trend = SentenceBullish
	case model.SignalBearish:
		trend = SentenceBearish
	}

	if snap.RSI != nil {
		switch {
		case *snap.RSI > calculator.OverboughtRSI:
			momentum = SentenceOverbought
		case *snap.RSI < calculator.OversoldRSI:
			momentum = SentenceOversold
		}
	}

	if sent.HasData() {
		avg := sent.AverageScore
		switch {
		case avg > strongSentiment:
			mood = SentencePositive
		case avg < -strongSentiment:
			mood = SentenceNegative
		case math.Abs(avg) < neutralSentiment:
			mood = SentenceNeutral
		}
	}

	context = s.context(seg)

	if !sent.HasData() && (trend != "" || momentum != "" || context != "") {
		mood = SentenceNoSentiment
	}

	var sentences []string
	for _, line := range []string{trend, momentum, mood, context} {
		if line != "" {
			sentences = append(sentences, line)
		}
	}
	if len(sentences) == 0 {
		if sent.HasData() {
			sentences = append(sentences, SentenceConsolidation)
		} else {
			sentences = append(sentences, SentenceInsufficient)
		}
	}

	return model.InsightResult{
		Instrument: instrument,
		Segment:    seg,
		Sentences:  sentences,
		Text:       strings.Join(sentences, " "),
		Snapshot:   snap,
		Sentiment:  sent,
	}
}
