package company

import (
	"math"
	"time"
)

// Epoch anchors every day index used by the generators (day 0).
var Epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Profile describes what a crisis looks like for a company's industry.
// It drives relevance scoring and industry-appropriate placeholder content.
type Profile struct {
	Name        string   `json:"name"`
	Context     Context  `json:"context"`
	Keywords    []string `json:"keywords"`
	Regulators  []string `json:"regulators"`
	Risks       []string `json:"risks"`
	Competitors []string `json:"competitors"`
}

// IndustryTable holds the static per-industry data behind ProfileFor
type IndustryTable struct {
	CrisisBaseDay int
	Keywords      []string
	Regulators    []string
	Risks         []string
	Competitors   []string
	Threats       []string
	Opportunities []string
}

// Industries is keyed by Industry; every Industry constant has an entry.
var Industries = map[Industry]IndustryTable{
	IndustryTechnology: {
		CrisisBaseDay: 180,
		Keywords:      []string{"software", "cloud", "platform", "data", "cyber", "security", "saas", "msp"},
		Regulators:    []string{"FTC", "CISA", "European Commission", "ICO"},
		Risks:         []string{"ransomware", "data breach", "outage", "supply chain attack"},
		Competitors:   []string{"ConnectWise", "SolarWinds", "N-able", "Datto", "NinjaOne"},
		Threats:       []string{"Follow-on ransomware campaigns", "Regulatory data-protection fines", "Customer churn to competitors"},
		Opportunities: []string{"Security transparency leadership", "Zero-trust product launch", "Partner ecosystem expansion"},
	},
	IndustryFinancial: {
		CrisisBaseDay: 150,
		Keywords:      []string{"bank", "banking", "deposits", "loans", "trading", "capital", "fintech", "payments"},
		Regulators:    []string{"SEC", "FDIC", "Federal Reserve", "FCA"},
		Risks:         []string{"liquidity", "fraud", "compliance failure", "bank run"},
		Competitors:   []string{"JPMorgan Chase", "Bank of America", "Wells Fargo", "Citigroup"},
		Threats:       []string{"Deposit outflows", "Regulatory enforcement action", "Credit rating downgrade"},
		Opportunities: []string{"Digital banking adoption", "Trust-rebuilding campaign", "Compliance modernisation"},
	},
	IndustryHealthcare: {
		CrisisBaseDay: 200,
		Keywords:      []string{"drug", "clinical", "trial", "patients", "fda", "vaccine", "hospital", "treatment"},
		Regulators:    []string{"FDA", "EMA", "HHS", "CMS"},
		Risks:         []string{"product recall", "trial failure", "patient data breach", "safety warning"},
		Competitors:   []string{"Pfizer", "Johnson & Johnson", "Novartis", "Merck"},
		Threats:       []string{"Product liability litigation", "FDA warning letters", "Loss of formulary coverage"},
		Opportunities: []string{"Pipeline approval momentum", "Patient advocacy partnerships", "Pricing transparency"},
	},
	IndustryEnergy: {
		CrisisBaseDay: 120,
		Keywords:      []string{"oil", "gas", "pipeline", "refinery", "emissions", "grid", "drilling", "renewable"},
		Regulators:    []string{"EPA", "FERC", "DOE", "OSHA"},
		Risks:         []string{"spill", "explosion", "emissions violation", "grid failure"},
		Competitors:   []string{"ExxonMobil", "Chevron", "Shell", "BP"},
		Threats:       []string{"Environmental litigation", "Carbon regulation tightening", "Community opposition"},
		Opportunities: []string{"Renewable transition narrative", "Safety record rebuild", "Local investment programmes"},
	},
	IndustryRetail: {
		CrisisBaseDay: 160,
		Keywords:      []string{"stores", "shoppers", "retail", "ecommerce", "supply", "products", "prices", "customers"},
		Regulators:    []string{"FTC", "CPSC", "Competition and Markets Authority"},
		Risks:         []string{"product recall", "labor strike", "payment card breach", "boycott"},
		Competitors:   []string{"Walmart", "Target", "Costco", "Amazon"},
		Threats:       []string{"Consumer boycott spread", "Holiday season sales decline", "Supplier disruption"},
		Opportunities: []string{"Loyalty programme relaunch", "Price-match campaigns", "Sustainability positioning"},
	},
	IndustryAutomotive: {
		CrisisBaseDay: 140,
		Keywords:      []string{"vehicles", "cars", "ev", "battery", "autopilot", "dealers", "manufacturing", "safety"},
		Regulators:    []string{"NHTSA", "EPA", "KBA", "UNECE"},
		Risks:         []string{"recall", "crash investigation", "emissions cheating", "production halt"},
		Competitors:   []string{"Toyota", "Volkswagen", "General Motors", "Hyundai"},
		Threats:       []string{"Expanded recall scope", "Safety investigation escalation", "Dealer network pressure"},
		Opportunities: []string{"EV lineup launch", "Safety technology showcase", "Warranty extension goodwill"},
	},
	IndustryTelecommunications: {
		CrisisBaseDay: 170,
		Keywords:      []string{"network", "5g", "mobile", "broadband", "subscribers", "coverage", "spectrum", "carrier"},
		Regulators:    []string{"FCC", "Ofcom", "BEREC"},
		Risks:         []string{"network outage", "subscriber data leak", "spectrum dispute", "price hike backlash"},
		Competitors:   []string{"Verizon", "AT&T", "T-Mobile", "Vodafone"},
		Threats:       []string{"Subscriber churn", "FCC penalties", "Infrastructure sabotage"},
		Opportunities: []string{"Network reliability guarantees", "5G expansion", "Customer credit programmes"},
	},
	IndustryAerospace: {
		CrisisBaseDay: 130,
		Keywords:      []string{"aircraft", "jet", "faa", "airline", "flight", "engine", "defense", "certification"},
		Regulators:    []string{"FAA", "EASA", "NTSB", "DoD"},
		Risks:         []string{"grounding", "quality escape", "crash investigation", "certification delay"},
		Competitors:   []string{"Airbus", "Embraer", "Lockheed Martin", "Northrop Grumman"},
		Threats:       []string{"Extended fleet grounding", "Order cancellations", "Whistleblower disclosures"},
		Opportunities: []string{"Quality culture reform", "Delivery ramp recovery", "Defense contract wins"},
	},
}

// CrisisKeywords count towards the crisis-signal bucket of relevance scoring
var CrisisKeywords = []string{
	"breach", "hack", "ransomware", "cyberattack", "outage", "lawsuit", "recall", "scandal",
	"investigation", "fine", "penalty", "layoffs", "fraud", "leak", "bankruptcy", "strike",
	"crisis", "vulnerability", "exploit", "probe", "settlement", "grounded", "explosion",
}

// IrrelevantKeywords indicate sports/entertainment noise and are penalised
var IrrelevantKeywords = []string{
	"football", "soccer", "basketball", "nba", "nfl", "baseball", "cricket", "tennis",
	"movie", "box office", "celebrity", "concert", "album", "oscars", "grammy", "tv series",
}

// CredibleSources are domains or outlet names treated as credible
var CredibleSources = []string{
	"reuters", "bloomberg", "wsj", "ft.com", "financial times", "apnews", "associated press",
	"bbc", "cnbc", "nytimes", "new york times", "washington post", "theverge", "techcrunch",
	"bleepingcomputer", "securityweek", "the record", "wired", "forbes",
}

// TableFor returns the industry table, falling back to technology
func TableFor(industry Industry) IndustryTable {
	if t, ok := Industries[industry]; ok {
		return t
	}
	return Industries[IndustryTechnology]
}

// ProfileFor derives the crisis profile of a company
func ProfileFor(name string) Profile {
	ctx := Classify(name)
	table := TableFor(ctx.Industry)

	return Profile{
		Name:        name,
		Context:     ctx,
		Keywords:    table.Keywords,
		Regulators:  table.Regulators,
		Risks:       table.Risks,
		Competitors: table.Competitors,
	}
}

// Crisis day bounds, in days since Epoch
const (
	MinCrisisDay = 30
	MaxCrisisDay = 300
)

// CrisisDay is the day index (since Epoch) on which the company's crisis begins.
// Both the sentiment series phases and the crisis timeline anchor on it.
func CrisisDay(name string) int {
	seed := Seed(name)
	base := TableFor(Classify(name).Industry).CrisisBaseDay
	jitter := int(math.Round((seed - 0.5) * 120))

	day := base + jitter
	if day < MinCrisisDay {
		return MinCrisisDay
	}
	if day > MaxCrisisDay {
		return MaxCrisisDay
	}
	return day
}

// DayDate converts a day index to its UTC midnight
func DayDate(day int) time.Time {
	return Epoch.AddDate(0, 0, day)
}

// DayIndex converts a time to its day index since Epoch
func DayIndex(t time.Time) int {
	return int(math.Floor(t.UTC().Sub(Epoch).Hours() / 24))
}
