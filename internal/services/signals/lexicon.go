package signals

import (
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/jonreiter/govader"
)

// Polarity buckets a score
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
	Neutral  Polarity = "neutral"
)

// NeutralBand is the score magnitude below which text counts as neutral
const NeutralBand = 0.2

// normalizeAlpha is VADER's compound normalization constant
const normalizeAlpha = 15.0

// crisisValence adds corporate-crisis vocabulary the general VADER lexicon
// does not rate. Values use VADER's [-4, 4] valence scale.
var crisisValence = map[string]float64{
	"ransomware": -2.5, "breach": -2.0, "breached": -2.0, "breaches": -2.0, "outage": -2.0,
	"outages": -2.0, "hack": -1.7, "recall": -1.5, "layoffs": -1.8, "sued": -1.5,
	"bankruptcy": -2.5, "fined": -1.5, "investigation": -1.0, "grounded": -1.2, "downtime": -1.5,
	"recovery": 1.5, "recovered": 1.5, "recovering": 1.2, "rebound": 1.3, "transparent": 1.0,
	"partnership": 1.0, "upgrade": 0.8, "launches": 0.8,
}

var (
	analyzerOnce sync.Once
	analyzer     *govader.SentimentIntensityAnalyzer
)

func sentiment() *govader.SentimentIntensityAnalyzer {
	analyzerOnce.Do(func() {
		analyzer = govader.NewSentimentIntensityAnalyzer()
	})
	return analyzer
}

// Tokens splits text into lowercase word tokens
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})
}

// Score rates text in (-1, 1) with the VADER compound score, shifted by the
// crisis vocabulary. Text without any rated word scores 0.
func Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	compound := sentiment().PolarityScores(text).Compound

	var extra float64
	for _, tok := range Tokens(text) {
		extra += crisisValence[strings.Trim(tok, ".")]
	}
	if extra == 0 {
		return compound
	}
	return normalize(denormalize(compound) + extra)
}

// denormalize recovers the raw valence sum behind a compound score
func denormalize(compound float64) float64 {
	if compound >= 1 || compound <= -1 {
		compound = math.Copysign(0.9999, compound)
	}
	return compound * math.Sqrt(normalizeAlpha) / math.Sqrt(1-compound*compound)
}

func normalize(raw float64) float64 {
	return raw / math.Sqrt(raw*raw+normalizeAlpha)
}

// Classify buckets a score into a polarity
func Classify(score float64) Polarity {
	switch {
	case score > NeutralBand:
		return Positive
	case score < -NeutralBand:
		return Negative
	default:
		return Neutral
	}
}

// Weighted is a score with an engagement weight
type Weighted struct {
	Score  float64
	Weight float64
}

// Aggregate is the weighted mean score in [-1, 1]; zero weights count as 1
func Aggregate(items []Weighted) float64 {
	var sum, weights float64
	for _, it := range items {
		w := it.Weight
		if w <= 0 {
			w = 1
		}
		sum += it.Score * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}
