package swarm

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/signal"
	"crisiswatch/internal/services/signals"
	"crisiswatch/internal/services/synthesis"
)

// Live derivations never invent values: a bucket without signals stays at zero.

// quoteFullScale is the daily move (percent) that maps to a full +/-1 score
var quoteFullScale = decimal.NewFromInt(5)

// scored is one signal reduced to text polarity and weight
type scored struct {
	at         time.Time
	kind       signal.Kind
	text       string
	score      float64
	weight     float64
	engagement int
	confidence float64
}

func score(s signal.Signal) scored {
	out := scored{at: s.At(), kind: s.Kind(), confidence: s.Meta().Confidence, weight: 1}
	switch v := s.(type) {
	case signal.NewsArticle:
		out.text = v.Text()
		out.score = signals.Score(out.text)
	case signal.ForumPost:
		out.text = v.Text
		out.score = signals.Score(v.Text)
		out.engagement = max(v.Score, 0) + v.NumComments
		out.weight = 1 + math.Log1p(float64(out.engagement))
	case signal.ProfessionalPost:
		out.text = v.Text
		out.score = signals.Score(v.Text)
		out.engagement = v.Engagement()
		out.weight = 1 + math.Log1p(float64(out.engagement))
	case signal.PriceQuote:
		ret := v.Return().Div(quoteFullScale)
		if ret.GreaterThan(decimal.NewFromInt(1)) {
			ret = decimal.NewFromInt(1)
		}
		if ret.LessThan(decimal.NewFromInt(-1)) {
			ret = decimal.NewFromInt(-1)
		}
		out.score, _ = ret.Float64()
		out.engagement = int(v.Volume)
	}
	return out
}

func scoreAll(in []signal.Signal) []scored {
	out := make([]scored, 0, len(in))
	for _, s := range in {
		out = append(out, score(s))
	}
	return out
}

// bucket collapses scored signals into one sentiment point
func bucket(items []scored, at time.Time) metrics.SentimentPoint {
	p := metrics.SentimentPoint{Timestamp: at, Platform: "aggregate"}
	if len(items) == 0 {
		return p
	}
	weighted := make([]signals.Weighted, 0, len(items))
	var conf float64
	for _, it := range items {
		weighted = append(weighted, signals.Weighted{Score: it.score, Weight: it.weight})
		conf += it.confidence
	}
	p.Sentiment = int(math.Round(signals.Aggregate(weighted) * 100))
	p.Volume = len(items)
	p.Confidence = round2(conf / float64(len(items)))
	return p
}

// DeriveDaily builds one point per day from day 0 through today, zero-filling
// days without signal.
func DeriveDaily(in []signal.Signal, now time.Time) []metrics.SentimentPoint {
	last := company.DayIndex(now)
	if last < 0 {
		return []metrics.SentimentPoint{}
	}
	byDay := make([][]scored, last+1)
	for _, s := range scoreAll(in) {
		d := company.DayIndex(s.at)
		if d < 0 || d > last || s.at.After(now) {
			continue
		}
		byDay[d] = append(byDay[d], s)
	}
	out := make([]metrics.SentimentPoint, 0, last+1)
	for d := 0; d <= last; d++ {
		out = append(out, bucket(byDay[d], company.DayDate(d)))
	}
	return out
}

// DeriveHourly builds the 25 hourly points ending at the current hour
func DeriveHourly(in []signal.Signal, now time.Time) []metrics.SentimentPoint {
	end := now.UTC().Truncate(time.Hour)
	start := end.Add(-time.Duration(synthesis.HourlyWindow-1) * time.Hour)
	byHour := make([][]scored, synthesis.HourlyWindow)
	for _, s := range scoreAll(in) {
		if s.at.Before(start) || s.at.After(now) {
			continue
		}
		h := int(s.at.Sub(start) / time.Hour)
		if h >= 0 && h < len(byHour) {
			byHour[h] = append(byHour[h], s)
		}
	}
	out := make([]metrics.SentimentPoint, 0, synthesis.HourlyWindow)
	for h := range byHour {
		out = append(out, bucket(byHour[h], start.Add(time.Duration(h)*time.Hour)))
	}
	return out
}

// DeriveKPIs computes the headline snapshot from the daily series and signals
func DeriveKPIs(daily []metrics.SentimentPoint, in []signal.Signal) *metrics.KPIMetrics {
	overall := meanActive(tail(daily, 30))
	recent := meanActive(tail(daily, 7))
	prior := meanActive(window(daily, 14, 7))

	var quotes, news []scored
	for _, s := range scoreAll(in) {
		switch s.kind {
		case signal.KindQuote:
			quotes = append(quotes, s)
		case signal.KindNews:
			news = append(news, s)
		}
	}
	competitive := 0.0
	if len(quotes) > 0 {
		competitive = float64(bucket(quotes, time.Time{}).Sentiment)
	}
	media := 0.0
	if len(news) > 0 {
		media = float64(bucket(news, time.Time{}).Sentiment)
	}

	return &metrics.KPIMetrics{
		OverallSentiment:      round1(overall),
		RecoveryVelocity:      round1(clamp(50+(recent-prior)/2, 0, 100)),
		StakeholderConfidence: round1(clamp((overall+100)/2, 0, 100)),
		CompetitiveAdvantage:  round1(clamp(competitive, -100, 100)),
		MediaMomentum:         round1(clamp(media, -100, 100)),
	}
}

var platformKinds = map[string]signal.Kind{
	"Reddit":     signal.KindForum,
	"LinkedIn":   signal.KindProfessional,
	"News Media": signal.KindNews,
}

// DerivePlatforms reports every tracked platform; platforms without a source stay zero
func DerivePlatforms(in []signal.Signal) []metrics.PlatformMetric {
	byKind := map[signal.Kind][]scored{}
	for _, s := range scoreAll(in) {
		byKind[s.kind] = append(byKind[s.kind], s)
	}
	out := make([]metrics.PlatformMetric, 0, len(synthesis.Platforms))
	for _, name := range synthesis.Platforms {
		m := metrics.PlatformMetric{Platform: name}
		kind, ok := platformKinds[name]
		if items := byKind[kind]; ok && len(items) > 0 {
			p := bucket(items, time.Time{})
			engagement := 0
			for _, it := range items {
				engagement += it.engagement
			}
			m.Sentiment = p.Sentiment
			m.Volume = p.Volume
			m.Reach = p.Volume + engagement
			m.EngagementRate = round2(clamp(float64(engagement)/float64(p.Volume*100), 0, 1))
			m.Confidence = p.Confidence
		}
		out = append(out, m)
	}
	return out
}

var stakeholderTerms = map[string][]string{
	"Customers":  {"customer", "customers", "users", "clients", "consumers"},
	"Employees":  {"employee", "employees", "staff", "layoffs", "workers"},
	"Investors":  {"investor", "investors", "shares", "stock", "shareholders"},
	"Partners":   {"partner", "partners", "vendor", "vendors", "suppliers"},
	"Regulators": {"regulator", "regulators", "fine", "investigation", "probe"},
}

// DeriveStakeholders attributes signals to segments by vocabulary; news counts for Media
func DeriveStakeholders(companyName string, in []signal.Signal) []metrics.StakeholderSegment {
	profile := company.ProfileFor(companyName)
	terms := make(map[string][]string, len(stakeholderTerms))
	for k, v := range stakeholderTerms {
		terms[k] = v
	}
	for _, r := range profile.Regulators {
		terms["Regulators"] = append(terms["Regulators"], strings.ToLower(r))
	}

	scoredAll := scoreAll(in)
	out := make([]metrics.StakeholderSegment, 0, len(synthesis.Stakeholders))
	for i, seg := range synthesis.Stakeholders {
		var items []scored
		for _, s := range scoredAll {
			if seg == "Media" {
				if s.kind == signal.KindNews {
					items = append(items, s)
				}
				continue
			}
			if mentions(s.text, terms[seg]) {
				items = append(items, s)
			}
		}
		m := metrics.StakeholderSegment{Segment: seg, KeyConcerns: []string{}}
		if len(items) > 0 {
			p := bucket(items, time.Time{})
			m.Sentiment = p.Sentiment
			m.Volume = p.Volume
			m.Confidence = p.Confidence
			m.Influence = round2(clamp(float64(p.Volume)/float64(len(scoredAll)), 0, 1))
			m.KeyConcerns = concernsFor(i, items)
		}
		out = append(out, m)
	}
	return out
}

// concernsFor names the segment's concerns when negative chatter dominates
func concernsFor(segment int, items []scored) []string {
	neg := 0
	for _, it := range items {
		if signals.Classify(it.score) == signals.Negative {
			neg++
		}
	}
	if neg == 0 {
		return []string{}
	}
	return []string{fmt.Sprintf("%d negative mentions", neg), synthesis.Stakeholders[segment] + " sentiment"}
}

var regionTerms = map[string][]string{
	"North America": {"us", "u.s.", "usa", "america", "american", "canada", "canadian"},
	"Europe":        {"europe", "european", "eu", "uk", "britain", "germany", "france"},
	"Asia Pacific":  {"asia", "china", "japan", "india", "australia", "singapore", "korea"},
	"Latin America": {"brazil", "mexico", "argentina", "latin", "chile", "colombia"},
	"Middle East":   {"uae", "saudi", "israel", "qatar", "dubai"},
	"Africa":        {"africa", "african", "nigeria", "kenya", "egypt"},
}

// DeriveGeography attributes signals to regions by place names
func DeriveGeography(in []signal.Signal) []metrics.GeographicData {
	scoredAll := scoreAll(in)
	out := make([]metrics.GeographicData, 0, len(synthesis.Regions))
	for _, region := range synthesis.Regions {
		var items []scored
		engagement := 0
		for _, s := range scoredAll {
			if mentions(s.text, regionTerms[region]) {
				items = append(items, s)
				engagement += s.engagement
			}
		}
		g := metrics.GeographicData{Region: region}
		if len(items) > 0 {
			p := bucket(items, time.Time{})
			g.Sentiment = p.Sentiment
			g.Volume = p.Volume
			g.Reach = p.Volume + engagement
			g.Confidence = p.Confidence
		}
		out = append(out, g)
	}
	return out
}

// DeriveCompetitors counts peer mentions; share is relative to all mentions
func DeriveCompetitors(companyName string, in []signal.Signal) []metrics.CompetitorData {
	profile := company.ProfileFor(companyName)
	scoredAll := scoreAll(in)

	own := 0
	for _, s := range scoredAll {
		if containsFold(s.text, companyName) {
			own++
		}
	}

	type peer struct {
		name  string
		items []scored
	}
	peers := make([]peer, 0, len(profile.Competitors))
	total := own
	for _, name := range profile.Competitors {
		if strings.EqualFold(name, companyName) {
			continue
		}
		p := peer{name: name}
		for _, s := range scoredAll {
			if containsFold(s.text, name) {
				p.items = append(p.items, s)
			}
		}
		total += len(p.items)
		peers = append(peers, p)
	}

	out := make([]metrics.CompetitorData, 0, len(peers))
	for _, p := range peers {
		c := metrics.CompetitorData{Name: p.name}
		if len(p.items) > 0 {
			b := bucket(p.items, time.Time{})
			c.Sentiment = b.Sentiment
			c.Volume = b.Volume
			c.MarketShare = round2(float64(b.Volume) / float64(total))
			crisisHits := 0
			for _, it := range p.items {
				if mentions(it.text, company.CrisisKeywords) {
					crisisHits++
				}
			}
			c.CrisisExposure = round2(float64(crisisHits) / float64(len(p.items)))
		}
		out = append(out, c)
	}
	return out
}

// DeriveThreats sizes the industry threats and opportunities by the observed
// negative and positive share of the signals.
func DeriveThreats(companyName string, in []signal.Signal) []metrics.ThreatOpportunity {
	scoredAll := scoreAll(in)
	if len(scoredAll) == 0 {
		return []metrics.ThreatOpportunity{}
	}
	var neg, pos int
	for _, s := range scoredAll {
		switch signals.Classify(s.score) {
		case signals.Negative:
			neg++
		case signals.Positive:
			pos++
		}
	}
	negShare := float64(neg) / float64(len(scoredAll))
	posShare := float64(pos) / float64(len(scoredAll))

	table := company.TableFor(company.Classify(companyName).Industry)
	out := make([]metrics.ThreatOpportunity, 0, 6)
	add := func(kind metrics.ItemKind, titles []string, share float64) {
		for i, title := range titles {
			out = append(out, metrics.ThreatOpportunity{
				ID:          synthesis.EventID(companyName, "live-"+string(kind), i),
				Kind:        kind,
				Title:       title,
				Description: fmt.Sprintf("%s for %s, %d of %d signals", title, companyName, int(math.Round(share*float64(len(scoredAll)))), len(scoredAll)),
				Probability: round2(clamp(share/float64(i+1), 0, 1)),
				Impact:      int(math.Round(clamp(share*100, 0, 100))),
				Timeframe:   []string{"0-3 months", "3-6 months", "6-12 months"}[i%3],
			})
		}
	}
	add(metrics.KindThreat, table.Threats, negShare)
	add(metrics.KindOpportunity, table.Opportunities, posShare)
	return out
}

func mentions(text string, terms []string) bool {
	if text == "" {
		return false
	}
	tokens := signals.Tokens(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	lower := strings.ToLower(text)
	for _, term := range terms {
		term = strings.ToLower(term)
		if strings.ContainsAny(term, " .&") {
			if strings.Contains(lower, term) {
				return true
			}
			continue
		}
		if _, ok := set[term]; ok {
			return true
		}
	}
	return false
}

func containsFold(text, sub string) bool {
	return sub != "" && strings.Contains(strings.ToLower(text), strings.ToLower(sub))
}

func tail(points []metrics.SentimentPoint, n int) []metrics.SentimentPoint {
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

// window returns n points ending skip points before the last
func window(points []metrics.SentimentPoint, skipFromEnd, n int) []metrics.SentimentPoint {
	end := len(points) - skipFromEnd + n
	if end > len(points) {
		end = len(points)
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	return points[start:end]
}

// meanActive averages sentiment over points that carry volume
func meanActive(points []metrics.SentimentPoint) float64 {
	var sum float64
	n := 0
	for _, p := range points {
		if p.Volume > 0 {
			sum += float64(p.Sentiment)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
func round1(v float64) float64       { return math.Round(v*10) / 10 }
func round2(v float64) float64       { return math.Round(v*100) / 100 }
