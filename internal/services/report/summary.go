package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/services/daterange"
)

// maxTimelineLines limits how many crisis events are printed
const maxTimelineLines = 5

// Summary renders a plain-text brief of a date-range view
func Summary(view *daterange.View, now time.Time) string {
	if view == nil || view.Metrics == nil {
		return "No metrics available\n"
	}
	m := view.Metrics
	rm := view.RangeMetrics

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("CRISIS SENTIMENT BRIEF - %s\n", m.CompanyName))
	sb.WriteString(fmt.Sprintf("Period: %s (%s to %s)\n",
		view.Range.Label,
		view.Range.Start.Format("Jan 2, 2006"),
		view.Range.End.Format("Jan 2, 2006"),
	))
	sb.WriteString(fmt.Sprintf("Data source: %s, generated %s\n\n", m.DataSource, humanize.RelTime(m.GeneratedAt, now, "ago", "from now")))

	sb.WriteString(fmt.Sprintf("AVERAGE SENTIMENT: %+d (%s)\n", rm.AverageSentiment, classify(float64(rm.AverageSentiment))))
	sb.WriteString(fmt.Sprintf("Mentions: %s across %s data points\n", humanize.Comma(int64(rm.TotalVolume)), humanize.Comma(int64(rm.DataPoints))))
	sb.WriteString(fmt.Sprintf("Sentiment trend: %s, volume trend: %s\n\n", signedPercent(rm.SentimentTrend), signedPercent(rm.VolumeTrend)))

	if k := m.KPIMetrics; k != nil {
		sb.WriteString("KPIS:\n")
		sb.WriteString(fmt.Sprintf("- Overall sentiment: %.1f\n", k.OverallSentiment))
		sb.WriteString(fmt.Sprintf("- Recovery velocity: %.1f%%\n", k.RecoveryVelocity))
		sb.WriteString(fmt.Sprintf("- Stakeholder confidence: %.1f%%\n", k.StakeholderConfidence))
		sb.WriteString(fmt.Sprintf("- Competitive advantage: %.1f\n", k.CompetitiveAdvantage))
		sb.WriteString(fmt.Sprintf("- Media momentum: %.1f\n\n", k.MediaMomentum))
	}

	if len(m.PlatformMetrics) > 0 {
		sb.WriteString("PLATFORMS:\n")
		for _, p := range m.PlatformMetrics {
			sb.WriteString(fmt.Sprintf("- %s: %+d, %s mentions, reach %s\n",
				p.Platform, p.Sentiment, humanize.Comma(int64(p.Volume)), humanize.SIWithDigits(float64(p.Reach), 1, "")))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(timeline(m, now))

	v := m.CrisisVerification
	if v.IsVerified {
		sb.WriteString(fmt.Sprintf("VERIFICATION: verified, %d of %d events, confidence %.0f%% (%s)\n",
			v.VerifiedEvents, v.TotalEvents, v.Confidence*100, strings.Join(v.Sources, ", ")))
	} else {
		sb.WriteString(fmt.Sprintf("VERIFICATION: unverified, %d of %d events corroborated\n", v.VerifiedEvents, v.TotalEvents))
	}

	if !m.Validation.IsValid {
		sb.WriteString(fmt.Sprintf("\nVALIDATION FAILED (%d errors):\n", len(m.Validation.Errors)))
		for _, e := range m.Validation.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
	} else if len(m.Validation.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("\nDATA QUALITY: %d warnings\n", len(m.Validation.Warnings)))
	}

	return sb.String()
}

func timeline(m *metrics.CompanyMetrics, now time.Time) string {
	if len(m.CrisisEvents) == 0 {
		return "CRISIS TIMELINE: no events in period\n\n"
	}

	var sb strings.Builder
	sb.WriteString("CRISIS TIMELINE:\n")
	events := m.CrisisEvents
	if len(events) > maxTimelineLines {
		events = events[len(events)-maxTimelineLines:]
	}
	for _, e := range events {
		marker := ""
		switch {
		case e.Placeholder:
			marker = " [placeholder]"
		case e.Verified:
			marker = " [verified]"
		}
		sb.WriteString(fmt.Sprintf("- %s (%s) %s: %s, impact %+d%s\n",
			e.Date.Format("Jan 2"), humanize.RelTime(e.Date, now, "ago", "ahead"), e.Type, e.Title, e.Impact, marker))
	}
	if hidden := len(m.CrisisEvents) - len(events); hidden > 0 {
		sb.WriteString(fmt.Sprintf("  ... %d earlier events\n", hidden))
	}
	sb.WriteString("\n")
	return sb.String()
}

// classify labels a -100..100 sentiment
func classify(score float64) string {
	switch {
	case score >= 60:
		return "very positive"
	case score >= 30:
		return "positive"
	case score >= 10:
		return "slightly positive"
	case score > -10:
		return "neutral"
	case score > -30:
		return "slightly negative"
	case score > -60:
		return "negative"
	default:
		return "very negative"
	}
}

func signedPercent(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}
