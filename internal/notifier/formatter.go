package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TickerTracker/internal/market"
	"TickerTracker/internal/model"
	"TickerTracker/internal/pipeline"
)

// FormatInsight formats an insight into a Telegram message.
func FormatInsight(res model.InsightResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("💡 <b>%s</b> (%s)\n\n", html.EscapeString(res.Instrument), res.Segment))
	b.WriteString(html.EscapeString(res.Text))
	b.WriteString("\n\n")
	b.WriteString(formatSnapshotLines(res.Snapshot))
	if res.Sentiment.HasData() {
		b.WriteString(fmt.Sprintf("Sentiment: %+.2f (%d articles)\n", res.Sentiment.AverageScore, res.Sentiment.SampleSize))
	} else {
		b.WriteString("Sentiment: n/a\n")
	}
	if res.Degraded {
		b.WriteString("\n⚠️ Partial data: ")
		b.WriteString(html.EscapeString(strings.Join(res.Notes, "; ")))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatIndicators formats a bare indicator snapshot.
func FormatIndicators(instrument string, seg model.Segment, snap model.IndicatorSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s</b> (%s)\n\n", html.EscapeString(instrument), seg))
	b.WriteString(formatSnapshotLines(snap))
	return b.String()
}

func formatSnapshotLines(snap model.IndicatorSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Price: %s\n", formatValue(snap.CurrentPrice)))
	b.WriteString(fmt.Sprintf("RSI: %s\n", formatValue(snap.RSI)))
	b.WriteString(fmt.Sprintf("MA short: %s | MA long: %s\n", formatValue(snap.ShortMA), formatValue(snap.LongMA)))
	b.WriteString(fmt.Sprintf("Signal: <b>%s</b>\n", snap.Signal))
	return b.String()
}

func formatValue(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatBatchReport formats the digest sent after an ingestion cycle.
func FormatBatchReport(r pipeline.BatchReport) string {
	var b strings.Builder

	icon := "✅"
	switch r.Status {
	case pipeline.StatusDegraded:
		icon = "⚠️"
	case pipeline.StatusFailed:
		icon = "❌"
	}
	b.WriteString(fmt.Sprintf("%s <b>Ingestion cycle</b> | %s\n\n", icon, r.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Instruments: %d ok, %d degraded, %d failed\n", r.OK, r.Degraded, r.Failed))
	b.WriteString(fmt.Sprintf("Sentiment backfill: %d analyzed", r.Backfill.AnalyzedCount))
	if r.Backfill.Failed > 0 {
		b.WriteString(fmt.Sprintf(", %d failed", r.Backfill.Failed))
	}
	b.WriteString("\n")
	if r.BackfillError != "" {
		b.WriteString(fmt.Sprintf("Backfill error: %s\n", html.EscapeString(r.BackfillError)))
	}
	if d := r.FinishedAt.Sub(r.StartedAt); d > 0 {
		b.WriteString(fmt.Sprintf("Duration: %s\n", d.Round(time.Millisecond)))
	}

	var signals []string
	for _, res := range r.Results {
		if res.Snapshot == nil {
			continue
		}
		switch res.Snapshot.Signal {
		case model.SignalNeutral, "":
		default:
			signals = append(signals, fmt.Sprintf("  %s: %s", html.EscapeString(res.Instrument), res.Snapshot.Signal))
		}
	}
	if len(signals) > 0 {
		b.WriteString("\n<b>Signals:</b>\n")
		b.WriteString(strings.Join(signals, "\n"))
		b.WriteString("\n")
	}

	var problems []string
	for _, res := range r.Results {
		for _, e := range res.Errors {
			problems = append(problems, fmt.Sprintf("  %s [%s]: %s", html.EscapeString(res.Instrument), e.Step, html.EscapeString(e.Error)))
		}
	}
	if len(problems) > 0 {
		b.WriteString("\n<b>Problems:</b>\n")
		b.WriteString(strings.Join(problems, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatMarkets lists the supported segments.
func FormatMarkets(infos []market.Info) string {
	var b strings.Builder
	b.WriteString("🌐 <b>Markets</b>\n\n")
	for _, in := range infos {
		b.WriteString(fmt.Sprintf("<b>%s</b> %s (%s, %s)\n", in.Segment, html.EscapeString(in.Label), in.Exchange, in.Currency))
		if len(in.Instruments) > 0 {
			b.WriteString("  " + strings.Join(in.Instruments, ", ") + "\n")
		}
	}
	return b.String()
}
