package model

import "time"

// SentimentBreakdown holds the proportions of positive, neutral and negative
// content alongside the compound score. Proportions sum to 1.
type SentimentBreakdown struct {
	Positive float64 `json:"pos"`
	Neutral  float64 `json:"neu"`
	Negative float64 `json:"neg"`
	Compound float64 `json:"compound"`
}

// NewsArticle is a news item about one instrument. Once SentimentScore is
// set it is never recomputed.
type NewsArticle struct {
	ID             string              `json:"id"`
	Symbol         string              `json:"symbol"`
	Segment        Segment             `json:"segment"`
	Headline       string              `json:"headline"`
	Summary        string              `json:"summary"`
	Source         string              `json:"source"`
	URL            string              `json:"url"`
	PublishedAt    time.Time           `json:"publishedAt"`
	SentimentScore *float64            `json:"sentimentScore"`
	Sentiment      *SentimentBreakdown `json:"sentiment,omitempty"`
	AnalyzedAt     *time.Time          `json:"analyzedAt,omitempty"`
}

// Scored reports whether the article carries a sentiment score.
func (a NewsArticle) Scored() bool { return a.SentimentScore != nil }

// Text is the input fed to the sentiment scorer: headline first.
func (a NewsArticle) Text() string {
	return a.Headline + ". " + a.Summary
}

// SentimentSummary is the mean score over the most recent scored articles.
// AverageScore is 0 whenever SampleSize is 0.
type SentimentSummary struct {
	Instrument   string  `json:"instrument"`
	Segment      Segment `json:"segment"`
	AverageScore float64 `json:"averageScore"`
	SampleSize   int     `json:"sampleSize"`
}

// HasData reports whether at least one scored article contributed.
func (s SentimentSummary) HasData() bool { return s.SampleSize > 0 }
