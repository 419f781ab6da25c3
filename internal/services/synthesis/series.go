package synthesis

import (
	"math"
	"time"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/metrics"
)

const (
	// CrisisDuration is the length of the acute phase in days
	CrisisDuration = 7
	// RecoveryDuration is how long recovery takes to converge
	RecoveryDuration = 60
	// HourlyWindow is the number of trailing hourly points
	HourlyWindow = 25
)

// Phase of the sentiment narrative relative to the crisis day
type Phase int

const (
	PhasePreCrisis Phase = iota
	PhaseCrisis
	PhaseRecovery
)

func (p Phase) String() string {
	switch p {
	case PhasePreCrisis:
		return "pre-crisis"
	case PhaseCrisis:
		return "crisis"
	default:
		return "recovery"
	}
}

// PhaseOf places a day index into its phase.
// The crisis phase starts exactly on crisisDay.
func PhaseOf(day, crisisDay int) Phase {
	switch {
	case day < crisisDay:
		return PhasePreCrisis
	case day < crisisDay+CrisisDuration:
		return PhaseCrisis
	default:
		return PhaseRecovery
	}
}

// crisisShape is the relative depth of each acute day, peaking on day 1
var crisisShape = [CrisisDuration]float64{0.8, 1.0, 0.95, 0.85, 0.75, 0.65, 0.55}

// recoveryTargets is the sentiment level each industry converges to
var recoveryTargets = map[company.Industry]float64{
	company.IndustryTechnology:         12,
	company.IndustryFinancial:          5,
	company.IndustryHealthcare:         8,
	company.IndustryEnergy:             0,
	company.IndustryRetail:             10,
	company.IndustryAutomotive:         6,
	company.IndustryTelecommunications: 4,
	company.IndustryAerospace:          2,
}

// generator holds everything derived from the company name once
type generator struct {
	name      string
	seed      float64
	ctx       company.Context
	crisisDay int
}

func newGenerator(name string) generator {
	return generator{
		name:      name,
		seed:      company.Seed(name),
		ctx:       company.Classify(name),
		crisisDay: company.CrisisDay(name),
	}
}

func (g generator) crisisDepth() float64 {
	return 55 + g.seed*25 + g.ctx.BaseRisk*10
}

func (g generator) sentiment(day int) int {
	var base float64

	switch PhaseOf(day, g.crisisDay) {
	case PhasePreCrisis:
		base = 15 + g.seed*20 - g.ctx.BaseRisk*10
	case PhaseCrisis:
		base = -g.crisisDepth() * crisisShape[day-g.crisisDay]
	case PhaseRecovery:
		start := -g.crisisDepth() * crisisShape[CrisisDuration-1]
		target := recoveryTargets[g.ctx.Industry] + (g.seed-0.5)*10
		speed := 0.7 + g.seed*0.6
		elapsed := float64(day - g.crisisDay - CrisisDuration)
		p := math.Min(1, elapsed*speed/RecoveryDuration)
		eased := 1 - (1-p)*(1-p)
		base = start + (target-start)*eased
	}

	weekly := 4 * math.Sin(2*math.Pi*float64(day)/7)
	noise := company.Signed(g.seed, day) * 6

	return clampInt(base+weekly+noise, -100, 100)
}

func (g generator) volume(day int) int {
	base := 800 + g.seed*1200
	switch PhaseOf(day, g.crisisDay) {
	case PhaseCrisis:
		base *= 4 - float64(day-g.crisisDay)*0.35
	case PhaseRecovery:
		elapsed := float64(day - g.crisisDay - CrisisDuration)
		base *= 1 + 1.5*math.Exp(-elapsed/14)
	}

	weekly := 1 + 0.15*math.Sin(2*math.Pi*float64(day)/7+1)
	noise := 1 + company.Signed(g.seed, day+10007)*0.2
	return clampInt(base*weekly*noise, 0, math.MaxInt32)
}

func (g generator) confidence(salt int) float64 {
	return round2(0.72 + company.Noise(g.seed, salt+20011)*0.2)
}

// SentimentSeries produces one point per day from the epoch up to and including now.
func SentimentSeries(name string, now time.Time) []metrics.SentimentPoint {
	last := company.DayIndex(now)
	if last < 0 {
		return []metrics.SentimentPoint{}
	}

	g := newGenerator(name)
	points := make([]metrics.SentimentPoint, 0, last+1)
	for day := 0; day <= last; day++ {
		points = append(points, metrics.SentimentPoint{
			Timestamp:  company.DayDate(day),
			Sentiment:  g.sentiment(day),
			Volume:     g.volume(day),
			Platform:   "aggregate",
			Confidence: g.confidence(day),
		})
	}
	return points
}

// SentimentAt is the daily sentiment value for a single day index
func SentimentAt(name string, day int) int {
	return newGenerator(name).sentiment(day)
}

// HourlySeries produces HourlyWindow points ending at the current hour
func HourlySeries(name string, now time.Time) []metrics.SentimentPoint {
	g := newGenerator(name)
	end := now.UTC().Truncate(time.Hour)

	points := make([]metrics.SentimentPoint, 0, HourlyWindow)
	for i := HourlyWindow - 1; i >= 0; i-- {
		ts := end.Add(-time.Duration(i) * time.Hour)
		day := company.DayIndex(ts)
		salt := day*24 + ts.Hour()

		diurnal := math.Sin(2 * math.Pi * float64(ts.Hour()-6) / 24)
		sentiment := float64(g.sentiment(day)) + 3*diurnal + company.Signed(g.seed, salt+30011)*8
		volume := float64(g.volume(day)) / 24 * (1 + 0.6*diurnal) * (1 + company.Signed(g.seed, salt+40009)*0.15)

		points = append(points, metrics.SentimentPoint{
			Timestamp:  ts,
			Sentiment:  clampInt(sentiment, -100, 100),
			Volume:     clampInt(volume, 0, math.MaxInt32),
			Platform:   Platforms[((salt%len(Platforms))+len(Platforms))%len(Platforms)],
			Confidence: g.confidence(salt),
		})
	}
	return points
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi float64) int {
	return int(math.Round(clamp(v, lo, hi)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
