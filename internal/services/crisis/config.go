package crisis

import "time"

// Config holds the thresholds of both pipeline stages
type Config struct {
	// Validation stage
	MinScore     float64       // accept when score >= MinScore
	MinRelevance float64       // and company relevance >= MinRelevance
	SearchWindow time.Duration // how far back candidates are searched
	SearchLimit  int

	// Verification stage
	MinimumSources    int     // corroborating sources required per event
	MinimumConfidence float64 // mean confidence required for the overall verdict
	MatchThreshold    float64 // title token overlap counted as the same story
	MatchWindow       time.Duration
	Concurrency       int // events corroborated in parallel
	MaxVerifiedEvents int // highest scoring events checked, the rest stay unverified
}

// DefaultConfig returns the documented thresholds
func DefaultConfig() Config {
	return Config{
		MinScore:          50,
		MinRelevance:      30,
		SearchWindow:      2 * 365 * 24 * time.Hour,
		SearchLimit:       50,
		MinimumSources:    2,
		MinimumConfidence: 0.7,
		MatchThreshold:    0.3,
		MatchWindow:       7 * 24 * time.Hour,
		Concurrency:       4,
		MaxVerifiedEvents: 10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinScore <= 0 {
		c.MinScore = d.MinScore
	}
	if c.MinRelevance <= 0 {
		c.MinRelevance = d.MinRelevance
	}
	if c.SearchWindow <= 0 {
		c.SearchWindow = d.SearchWindow
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = d.SearchLimit
	}
	if c.MinimumSources < 2 {
		c.MinimumSources = d.MinimumSources
	}
	if c.MinimumConfidence <= 0 {
		c.MinimumConfidence = d.MinimumConfidence
	}
	if c.MatchThreshold <= 0 {
		c.MatchThreshold = d.MatchThreshold
	}
	if c.MatchWindow <= 0 {
		c.MatchWindow = d.MatchWindow
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.MaxVerifiedEvents <= 0 {
		c.MaxVerifiedEvents = d.MaxVerifiedEvents
	}
	return c
}
