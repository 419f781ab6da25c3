package synthesis

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/metrics"
)

// eventNamespace scopes deterministic event ids
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("crisiswatch/events"))

// EventID derives a stable id for the n-th generated item of a company
func EventID(name, kind string, n int) string {
	return uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%s/%s/%d", name, kind, n))).String()
}

type timelineStep struct {
	offset int
	kind   metrics.EventType
	title  func(p company.Profile) string
	desc   func(p company.Profile) string
	impact func(seed float64) float64
}

// timeline is anchored on the crisis day: the genesis event sits at offset 0
var timeline = []timelineStep{
	{
		offset: 0,
		kind:   metrics.EventCrisis,
		title:  func(p company.Profile) string { return fmt.Sprintf("%s hit by %s", p.Name, p.Risks[0]) },
		desc: func(p company.Profile) string {
			return fmt.Sprintf("Reports emerge of a %s affecting %s operations and customers.", p.Risks[0], p.Name)
		},
		impact: func(seed float64) float64 { return -(60 + seed*30) },
	},
	{
		offset: 1,
		kind:   metrics.EventResponse,
		title:  func(p company.Profile) string { return fmt.Sprintf("%s issues initial statement", p.Name) },
		desc: func(p company.Profile) string {
			return "Leadership acknowledges the incident and promises regular updates."
		},
		impact: func(seed float64) float64 { return -15 + seed*10 },
	},
	{
		offset: 3,
		kind:   metrics.EventExternal,
		title:  func(p company.Profile) string { return fmt.Sprintf("%s opens inquiry into %s", p.Regulators[0], p.Name) },
		desc: func(p company.Profile) string {
			return fmt.Sprintf("%s requests information on the scope and handling of the %s.", p.Regulators[0], p.Risks[0])
		},
		impact: func(seed float64) float64 { return -(25 + seed*20) },
	},
	{
		offset: 7,
		kind:   metrics.EventResponse,
		title:  func(p company.Profile) string { return fmt.Sprintf("%s announces remediation plan", p.Name) },
		desc: func(p company.Profile) string {
			return "A remediation roadmap with independent review and customer support measures is published."
		},
		impact: func(seed float64) float64 { return 10 + seed*15 },
	},
	{
		offset: 21,
		kind:   metrics.EventExternal,
		title:  func(p company.Profile) string { return fmt.Sprintf("Analysts reassess %s outlook", p.Name) },
		desc: func(p company.Profile) string {
			return fmt.Sprintf("Industry analysts compare %s recovery against %s.", p.Name, p.Competitors[0])
		},
		impact: func(seed float64) float64 { return (seed - 0.5) * 30 },
	},
	{
		offset: 45,
		kind:   metrics.EventAnnouncement,
		title:  func(p company.Profile) string { return fmt.Sprintf("%s reports recovery milestones", p.Name) },
		desc: func(p company.Profile) string {
			return "Service levels and customer retention return close to pre-incident levels."
		},
		impact: func(seed float64) float64 { return 20 + seed*20 },
	},
}

// CrisisTimeline builds the event timeline anchored on the company's crisis day.
// Events after now are omitted; the result is ascending by date.
func CrisisTimeline(name string, now time.Time) []metrics.ValidatedCrisisEvent {
	profile := company.ProfileFor(name)
	profile.Name = displayName(name)
	seed := company.Seed(name)
	crisisDay := company.CrisisDay(name)

	events := make([]metrics.ValidatedCrisisEvent, 0, len(timeline))
	for i, step := range timeline {
		date := company.DayDate(crisisDay + step.offset)
		if date.After(now) {
			break
		}
		events = append(events, metrics.ValidatedCrisisEvent{
			CrisisEvent: metrics.CrisisEvent{
				ID:          EventID(name, "event", i),
				Date:        date,
				Title:       step.title(profile),
				Type:        step.kind,
				Impact:      clampInt(step.impact(seed), -100, 100),
				Description: step.desc(profile),
			},
		})
	}
	return events
}

var timeframes = []string{"0-3 months", "3-6 months", "6-12 months"}

// ThreatsOpportunities returns three threats and three opportunities for the industry
func ThreatsOpportunities(name string) []metrics.ThreatOpportunity {
	seed := company.Seed(name)
	table := company.TableFor(company.Classify(name).Industry)

	out := make([]metrics.ThreatOpportunity, 0, 6)
	add := func(kind metrics.ItemKind, titles []string, k float64) {
		for i, title := range titles {
			if i == 3 {
				break
			}
			o := company.Offset(seed, i, k)
			out = append(out, metrics.ThreatOpportunity{
				ID:          EventID(name, string(kind), i),
				Kind:        kind,
				Title:       title,
				Description: fmt.Sprintf("%s for %s", title, displayName(name)),
				Probability: round2(clamp(0.3+o*0.6, 0, 1)),
				Impact:      int(math.Round(40 + o*55)),
				Timeframe:   timeframes[i%len(timeframes)],
			})
		}
	}
	add(metrics.KindThreat, table.Threats, 0.311)
	add(metrics.KindOpportunity, table.Opportunities, 0.419)
	return out
}

func displayName(name string) string {
	if name == "" {
		return "the company"
	}
	return name
}
