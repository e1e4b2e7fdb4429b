package sentiment

import (
	"sort"

	"TickerTracker/internal/model"
)

// DefaultWindowSize is the number of most recent articles averaged.
const DefaultWindowSize = 5

// Aggregate averages the scores of the windowSize most recent articles for
// instrument in segment. Unscored articles inside the window are skipped,
// so SampleSize may be smaller than the window.
func Aggregate(instrument string, segment model.Segment, articles []model.NewsArticle, windowSize int) model.SentimentSummary {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	summary := model.SentimentSummary{Instrument: instrument, Segment: segment}

	matching := make([]model.NewsArticle, 0, len(articles))
	for _, a := range articles {
		if a.Symbol == instrument && a.Segment == segment {
			matching = append(matching, a)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].PublishedAt.After(matching[j].PublishedAt)
	})
	if len(matching) > windowSize {
		matching = matching[:windowSize]
	}

	var sum float64
	for _, a := range matching {
		if !a.Scored() {
			continue
		}
		sum += *a.SentimentScore
		summary.SampleSize++
	}
	if summary.SampleSize > 0 {
		summary.AverageScore = sum / float64(summary.SampleSize)
	}
	return summary
}
