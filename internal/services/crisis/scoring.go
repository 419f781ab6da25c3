package crisis

import (
	"math"
	"net/url"
	"strings"
	"time"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/signal"
	"crisiswatch/internal/services/signals"
)

// Bucket weights of the relevance score
const (
	WeightNameMatch   = 30
	WeightCrisis      = 25
	WeightIndustry    = 20
	WeightCredible    = 15
	WeightRecency     = 10
	PenaltyIrrelevant = 15

	keywordHitPoints = 10
)

// Score is the breakdown of one candidate's relevance score
type Score struct {
	NameMatch  float64 `json:"name_match"`
	Crisis     float64 `json:"crisis"`
	Industry   float64 `json:"industry"`
	Credible   float64 `json:"credible"`
	Recency    float64 `json:"recency"`
	Penalty    float64 `json:"penalty"`
	Total      float64 `json:"total"`     // 0-100
	Relevance  float64 `json:"relevance"` // 0-100 company relevance sub-score
	CrisisHits int     `json:"crisis_hits"`
}

// text is a lowercased document with its word set for whole-word matching
type text struct {
	raw   string
	words map[string]struct{}
}

func newText(s string) text {
	t := text{raw: strings.ToLower(s), words: map[string]struct{}{}}
	for _, w := range signals.Tokens(s) {
		t.words[strings.Trim(w, ".")] = struct{}{}
	}
	return t
}

// has matches single words against the word set and phrases as substrings
func (t text) has(keyword string) bool {
	keyword = strings.ToLower(keyword)
	if strings.ContainsAny(keyword, " .&") {
		return strings.Contains(t.raw, keyword)
	}
	_, ok := t.words[keyword]
	return ok
}

func (t text) hits(keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if t.has(kw) {
			n++
		}
	}
	return n
}

// nameMatch is 1 for the full name, 0.66 for its primary token, else 0
func nameMatch(t text, name string) float64 {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return 0
	}
	if strings.Contains(t.raw, name) {
		return 1
	}
	if primary := primaryToken(name); primary != "" && primary != name && t.has(primary) {
		return 0.66
	}
	return 0
}

// primaryToken is the first word of a multi-word name when it is distinctive enough
func primaryToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 || len(fields[0]) < 4 {
		return ""
	}
	return fields[0]
}

func credible(a signal.NewsArticle) bool {
	host := ""
	if u, err := url.Parse(a.URL); err == nil {
		host = strings.ToLower(u.Host)
	}
	outlet := strings.ToLower(a.Outlet)

	for _, src := range company.CredibleSources {
		if (host != "" && strings.Contains(host, src)) || (outlet != "" && strings.Contains(outlet, src)) {
			return true
		}
	}
	return false
}

func recency(published, now time.Time) float64 {
	if published.IsZero() || published.After(now.Add(24*time.Hour)) {
		return 0
	}
	age := now.Sub(published)
	switch {
	case age <= 365*24*time.Hour:
		return WeightRecency
	case age <= 2*365*24*time.Hour:
		return WeightRecency / 2
	default:
		return 0
	}
}

// ScoreArticle rates how likely a news article describes a crisis of the profiled company
func ScoreArticle(p company.Profile, a signal.NewsArticle, now time.Time) Score {
	doc := newText(a.Title + " " + a.Description)
	title := newText(a.Title)
	desc := newText(a.Description)

	var s Score
	s.NameMatch = math.Round(WeightNameMatch * nameMatch(doc, p.Name))
	s.CrisisHits = doc.hits(company.CrisisKeywords)
	s.Crisis = math.Min(WeightCrisis, float64(s.CrisisHits*keywordHitPoints))
	industryHits := doc.hits(p.Keywords)
	s.Industry = math.Min(WeightIndustry, float64(industryHits*keywordHitPoints))
	if credible(a) {
		s.Credible = WeightCredible
	}
	s.Recency = recency(a.PublishedAt, now)
	s.Penalty = float64(doc.hits(company.IrrelevantKeywords) * PenaltyIrrelevant)

	total := s.NameMatch + s.Crisis + s.Industry + s.Credible + s.Recency - s.Penalty
	s.Total = math.Max(0, math.Min(100, total))

	relevance := 0.0
	switch {
	case nameMatch(title, p.Name) > 0:
		relevance = 60 * nameMatch(title, p.Name)
	case nameMatch(desc, p.Name) > 0:
		relevance = 30 * nameMatch(desc, p.Name)
	}
	relevance += float64(industryHits * keywordHitPoints)
	s.Relevance = math.Round(math.Min(100, relevance))

	return s
}
