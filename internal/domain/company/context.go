package company

import "strings"

// Industry categorises a company for all industry-keyed tables
type Industry string

const (
	IndustryTechnology         Industry = "technology"
	IndustryFinancial          Industry = "financial"
	IndustryHealthcare         Industry = "healthcare"
	IndustryEnergy             Industry = "energy"
	IndustryRetail             Industry = "retail"
	IndustryAutomotive         Industry = "automotive"
	IndustryTelecommunications Industry = "telecommunications"
	IndustryAerospace          Industry = "aerospace"
)

// MarketPosition is a coarse tag of the company's standing
type MarketPosition string

const (
	PositionLeader      MarketPosition = "leader"
	PositionEstablished MarketPosition = "established"
	PositionChallenger  MarketPosition = "challenger"
	PositionEmerging    MarketPosition = "emerging"
)

// Context is the classifier output consumed by every synthesizer
type Context struct {
	Industry       Industry       `json:"industry"`
	BaseRisk       float64        `json:"baseRisk"` // 0..1
	MarketPosition MarketPosition `json:"marketPosition"`
}

// Rule maps name substrings to a context. Rules are evaluated in order.
type Rule struct {
	Keywords       []string
	Industry       Industry
	BaseRisk       float64
	MarketPosition MarketPosition
}

// DefaultContext is returned when no rule matches
var DefaultContext = Context{
	Industry:       IndustryTechnology,
	BaseRisk:       0.5,
	MarketPosition: PositionEstablished,
}

// Rules is the ordered keyword table used by Classify.
// Well-known names come first so they win over generic industry words.
var Rules = []Rule{
	{Keywords: []string{"microsoft", "google", "apple", "amazon", "meta"}, Industry: IndustryTechnology, BaseRisk: 0.4, MarketPosition: PositionLeader},
	{Keywords: []string{"boeing", "airbus", "lockheed"}, Industry: IndustryAerospace, BaseRisk: 0.7, MarketPosition: PositionLeader},
	{Keywords: []string{"tesla", "ford", "toyota", "volkswagen"}, Industry: IndustryAutomotive, BaseRisk: 0.55, MarketPosition: PositionLeader},
	{Keywords: []string{"bank", "financial", "capital", "credit", "invest", "insurance"}, Industry: IndustryFinancial, BaseRisk: 0.6, MarketPosition: PositionEstablished},
	{Keywords: []string{"pharma", "health", "medical", "bio", "clinic", "care"}, Industry: IndustryHealthcare, BaseRisk: 0.55, MarketPosition: PositionEstablished},
	{Keywords: []string{"energy", "oil", "gas", "petro", "power", "solar"}, Industry: IndustryEnergy, BaseRisk: 0.65, MarketPosition: PositionEstablished},
	{Keywords: []string{"retail", "store", "shop", "mart", "market"}, Industry: IndustryRetail, BaseRisk: 0.45, MarketPosition: PositionEstablished},
	{Keywords: []string{"motor", "auto", "car"}, Industry: IndustryAutomotive, BaseRisk: 0.5, MarketPosition: PositionChallenger},
	{Keywords: []string{"telecom", "mobile", "wireless", "network"}, Industry: IndustryTelecommunications, BaseRisk: 0.5, MarketPosition: PositionEstablished},
	{Keywords: []string{"aero", "airline", "space", "aviation"}, Industry: IndustryAerospace, BaseRisk: 0.6, MarketPosition: PositionChallenger},
	{Keywords: []string{".ai", ".io", "labs", "startup"}, Industry: IndustryTechnology, BaseRisk: 0.55, MarketPosition: PositionEmerging},
}

// Classify maps a company name to its industry context.
// Total over all strings: the empty string yields DefaultContext.
func Classify(name string) Context {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return DefaultContext
	}

	for _, rule := range Rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lower, kw) {
				return Context{
					Industry:       rule.Industry,
					BaseRisk:       rule.BaseRisk,
					MarketPosition: rule.MarketPosition,
				}
			}
		}
	}

	return DefaultContext
}
