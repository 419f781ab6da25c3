package sources

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/signal"
	"crisiswatch/internal/services/synthesis"
)

// Simulated sources stand in for providers without a public API.
// They are deterministic per company and day and always carry low confidence.
const simulatedConfidence = 0.3

var (
	professionalPositive = []string{
		"%s announces partnership to support customers after recovery",
		"Strong quarter for %s, teams praised for transparent communication",
		"%s launches upgrade, security posture improved",
	}
	professionalNegative = []string{
		"%s customers angry after outage, investigation ongoing",
		"Security teams warn of %s vulnerability and ransomware exploit",
		"%s faces lawsuit after data breach",
	}
	professionalNeutral = []string{
		"%s hosts quarterly community webinar",
		"Hiring update from %s engineering",
		"%s shares product roadmap",
	}
	professionalCategories = []string{"post", "update", "mention"}
)

// SimulatedProfessionalSource produces professional-network posts shaped by
// the company's synthetic sentiment curve
type SimulatedProfessionalSource struct {
	now func() time.Time
}

var _ signal.Source = (*SimulatedProfessionalSource)(nil)

// NewSimulatedProfessionalSource creates the source; now may be nil
func NewSimulatedProfessionalSource(now func() time.Time) *SimulatedProfessionalSource {
	if now == nil {
		now = time.Now
	}
	return &SimulatedProfessionalSource{now: now}
}

func (s *SimulatedProfessionalSource) Name() string      { return "simulated-professional" }
func (s *SimulatedProfessionalSource) Kind() signal.Kind { return signal.KindProfessional }

// Fetch returns zero to two posts per day of the query window
func (s *SimulatedProfessionalSource) Fetch(ctx context.Context, q signal.Query) ([]signal.Signal, error) {
	first, last := dayRange(q, s.now())
	seed := company.Seed(q.Company)

	var out []signal.Signal
	for day := first; day <= last; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := int(company.Noise(seed, day+30011) * 3)
		sentiment := synthesis.SentimentAt(q.Company, day)
		for i := 0; i < n; i++ {
			salt := day*7 + i
			templates := professionalNeutral
			switch {
			case sentiment >= 20:
				templates = professionalPositive
			case sentiment <= -20:
				templates = professionalNegative
			}
			text := fmt.Sprintf(pick(templates, seed, salt), q.Company)
			reach := 1 + math.Abs(float64(sentiment))/25
			out = append(out, signal.ProfessionalPost{
				ID:         fmt.Sprintf("sim-%d-%d", day, i),
				Author:     "member-" + fmt.Sprint(int(company.Noise(seed, salt+1)*9000)+1000),
				Category:   pick(professionalCategories, seed, salt+2),
				Text:       text,
				Likes:      int(company.Noise(seed, salt+3) * 40 * reach),
				Comments:   int(company.Noise(seed, salt+4) * 12 * reach),
				Shares:     int(company.Noise(seed, salt+5) * 6 * reach),
				PostedAt:   company.DayDate(day).Add(time.Duration(8+i*3) * time.Hour),
				Provenance: signal.Meta{Source: s.Name(), Confidence: simulatedConfidence},
			})
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// SimulatedQuoteSource produces one daily price bar per weekday whose
// close-over-open return follows the synthetic sentiment curve
type SimulatedQuoteSource struct {
	now func() time.Time
}

var _ signal.Source = (*SimulatedQuoteSource)(nil)

// NewSimulatedQuoteSource creates the source; now may be nil
func NewSimulatedQuoteSource(now func() time.Time) *SimulatedQuoteSource {
	if now == nil {
		now = time.Now
	}
	return &SimulatedQuoteSource{now: now}
}

func (s *SimulatedQuoteSource) Name() string      { return "simulated-quotes" }
func (s *SimulatedQuoteSource) Kind() signal.Kind { return signal.KindQuote }

func (s *SimulatedQuoteSource) Fetch(ctx context.Context, q signal.Query) ([]signal.Signal, error) {
	first, last := dayRange(q, s.now())
	seed := company.Seed(q.Company)
	symbol := Ticker(q.Company)

	price := decimal.NewFromFloat(20 + seed*80).Round(2)
	var out []signal.Signal
	for day := 0; day <= last; day++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		date := company.DayDate(day)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		// percent move in roughly [-3, 3]
		move := float64(synthesis.SentimentAt(q.Company, day))/40 + company.Signed(seed, day+40009)*0.5
		open := price
		closePrice := open.Mul(decimal.NewFromFloat(1 + move/100)).Round(2)
		price = closePrice
		if day < first {
			continue
		}
		out = append(out, signal.PriceQuote{
			Symbol:     symbol,
			Day:        date,
			Open:       open,
			Close:      closePrice,
			Volume:     int64(100000 + company.Noise(seed, day+50021)*900000),
			Provenance: signal.Meta{Source: s.Name(), Confidence: simulatedConfidence},
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

// Ticker derives an uppercase symbol of up to four letters from a company name
func Ticker(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if sb.Len() == 4 {
			break
		}
		if unicode.IsLetter(r) && r < unicode.MaxASCII {
			sb.WriteRune(unicode.ToUpper(r))
		}
	}
	if sb.Len() == 0 {
		return "UNKN"
	}
	return sb.String()
}

// dayRange clamps the query window to [epoch, now] in day indices
func dayRange(q signal.Query, now time.Time) (int, int) {
	first := 0
	if !q.Since.IsZero() {
		first = max(first, company.DayIndex(q.Since))
	}
	last := company.DayIndex(now)
	if !q.Until.IsZero() {
		last = min(last, company.DayIndex(q.Until))
	}
	return first, last
}

func pick(options []string, seed float64, salt int) string {
	return options[int(company.Noise(seed, salt)*float64(len(options)))%len(options)]
}
