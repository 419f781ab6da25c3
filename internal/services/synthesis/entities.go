package synthesis

import (
	"strings"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/metrics"
)

// Platforms tracked by the platform analyst, in display order
var Platforms = []string{"Twitter/X", "Reddit", "LinkedIn", "News Media", "Facebook", "YouTube"}

// Stakeholders are the audience segments, in display order
var Stakeholders = []string{"Customers", "Employees", "Investors", "Partners", "Regulators", "Media"}

// Regions covered by the geographic analyst, in display order
var Regions = []string{"North America", "Europe", "Asia Pacific", "Latin America", "Middle East", "Africa"}

var stakeholderConcerns = map[string][]string{
	"Customers":  {"service reliability", "data privacy", "pricing"},
	"Employees":  {"job security", "leadership communication", "workload"},
	"Investors":  {"revenue impact", "legal exposure", "guidance"},
	"Partners":   {"contract continuity", "integration risk", "support"},
	"Regulators": {"compliance", "disclosure timeliness", "consumer harm"},
	"Media":      {"transparency", "root cause", "accountability"},
}

// platformWeight scales volume per platform
var platformWeight = []float64{1.0, 0.7, 0.4, 0.9, 0.6, 0.3}

// regionWeight scales volume per region
var regionWeight = []float64{1.0, 0.8, 0.7, 0.3, 0.2, 0.15}

// kpiMultipliers scale the seed-linear KPI bases per industry
type kpiMultipliers struct {
	Sentiment, Recovery, Stakeholder, Competitive, Media float64
}

var industryKPI = map[company.Industry]kpiMultipliers{
	company.IndustryTechnology:         {1.0, 1.1, 1.0, 1.1, 1.2},
	company.IndustryFinancial:          {0.8, 0.8, 0.9, 0.9, 0.8},
	company.IndustryHealthcare:         {0.9, 0.7, 1.1, 0.9, 0.9},
	company.IndustryEnergy:             {0.7, 0.6, 0.8, 1.0, 0.7},
	company.IndustryRetail:             {1.1, 1.2, 1.0, 1.0, 1.1},
	company.IndustryAutomotive:         {0.9, 0.9, 0.9, 1.0, 1.0},
	company.IndustryTelecommunications: {0.8, 0.9, 0.9, 0.9, 0.8},
	company.IndustryAerospace:          {0.7, 0.6, 0.8, 1.2, 0.9},
}

// KPIs computes the headline snapshot for a company
func KPIs(name string) *metrics.KPIMetrics {
	seed := company.Seed(name)
	m, ok := industryKPI[company.Classify(name).Industry]
	if !ok {
		m = industryKPI[company.IndustryTechnology]
	}

	return &metrics.KPIMetrics{
		OverallSentiment:      round1(clamp((-20+seed*60)*m.Sentiment, -100, 100)),
		RecoveryVelocity:      round1(clamp((30+seed*50)*m.Recovery, 0, 100)),
		StakeholderConfidence: round1(clamp((40+seed*40)*m.Stakeholder, 0, 100)),
		CompetitiveAdvantage:  round1(clamp((-30+seed*60)*m.Competitive, -100, 100)),
		MediaMomentum:         round1(clamp((-40+seed*80)*m.Media, -100, 100)),
	}
}

// PlatformMetrics computes one record per platform
func PlatformMetrics(name string) []metrics.PlatformMetric {
	seed := company.Seed(name)
	risk := company.Classify(name).BaseRisk

	out := make([]metrics.PlatformMetric, len(Platforms))
	for i, p := range Platforms {
		o := company.Offset(seed, i, 0.137)
		volume := (500 + o*5000) * platformWeight[i]
		out[i] = metrics.PlatformMetric{
			Platform:       p,
			Sentiment:      clampInt(-40+o*80-risk*10, -100, 100),
			Volume:         clampInt(volume, 0, 1e9),
			Reach:          clampInt(volume*(20+o*80), 0, 1e12),
			EngagementRate: round2(clamp(0.01+o*0.09, 0, 1)),
			Confidence:     round2(clamp(0.7+o*0.25, 0, 1)),
			Trend:          round1((o - 0.5) * 40),
		}
	}
	return out
}

// StakeholderSegments computes one record per audience segment
func StakeholderSegments(name string) []metrics.StakeholderSegment {
	seed := company.Seed(name)

	out := make([]metrics.StakeholderSegment, len(Stakeholders))
	for i, s := range Stakeholders {
		o := company.Offset(seed, i, 0.211)
		out[i] = metrics.StakeholderSegment{
			Segment:     s,
			Sentiment:   clampInt(-50+o*90, -100, 100),
			Volume:      clampInt(200+o*3000, 0, 1e9),
			Influence:   round2(clamp(0.3+o*0.7, 0, 1)),
			Confidence:  round2(clamp(0.65+o*0.3, 0, 1)),
			KeyConcerns: append([]string(nil), stakeholderConcerns[s]...),
		}
	}
	return out
}

// GeographicData computes one record per region
func GeographicData(name string) []metrics.GeographicData {
	seed := company.Seed(name)

	out := make([]metrics.GeographicData, len(Regions))
	for i, r := range Regions {
		o := company.Offset(seed, i, 0.173)
		volume := (300 + o*4000) * regionWeight[i]
		out[i] = metrics.GeographicData{
			Region:     r,
			Sentiment:  clampInt(-45+o*85, -100, 100),
			Volume:     clampInt(volume, 0, 1e9),
			Reach:      clampInt(volume*(15+o*60), 0, 1e12),
			Confidence: round2(clamp(0.6+o*0.35, 0, 1)),
		}
	}
	return out
}

// CompetitorData compares the company with its industry peers.
// A peer whose name matches the company itself is skipped.
func CompetitorData(name string) []metrics.CompetitorData {
	seed := company.Seed(name)
	lower := strings.ToLower(strings.TrimSpace(name))

	out := make([]metrics.CompetitorData, 0, 5)
	for i, c := range company.ProfileFor(name).Competitors {
		if lower != "" && (strings.Contains(strings.ToLower(c), lower) || strings.Contains(lower, strings.ToLower(c))) {
			continue
		}
		o := company.Offset(seed, i, 0.293)
		out = append(out, metrics.CompetitorData{
			Name:           c,
			Sentiment:      clampInt(-30+o*70, -100, 100),
			Volume:         clampInt(400+o*4000, 0, 1e9),
			MarketShare:    round2(clamp(0.05+o*0.25, 0, 1)),
			CrisisExposure: round2(clamp(o*0.6, 0, 1)),
		})
	}
	return out
}
