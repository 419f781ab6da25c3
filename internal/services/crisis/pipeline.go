package crisis

import (
	"context"

	"crisiswatch/internal/domain/metrics"
	"crisiswatch/pkg/logger"
)

// Stats summarises one pipeline run
type Stats struct {
	Candidates     int  `json:"candidates"`
	Accepted       int  `json:"accepted"`
	Rejected       int  `json:"rejected"`
	VerifiedEvents int  `json:"verified_events"`
	UsedFallback   bool `json:"used_fallback"`
	Placeholders   bool `json:"placeholders"`
}

// Result is the combined output of validation and verification
type Result struct {
	Events     []metrics.ValidatedCrisisEvent
	IsVerified bool
	Confidence float64
	Sources    []string
	Stats      Stats
}

// Verification converts the result into the metrics verdict
func (r Result) Verification() metrics.CrisisVerification {
	return metrics.CrisisVerification{
		IsVerified:     r.IsVerified,
		Confidence:     r.Confidence,
		VerifiedEvents: r.Stats.VerifiedEvents,
		TotalEvents:    len(r.Events),
		Sources:        r.Sources,
	}
}

// Pipeline chains the validation and verification stages
type Pipeline struct {
	validator *Validator
	verifier  *Verifier
	log       *logger.Logger
}

// NewPipeline creates the two-stage crisis pipeline
func NewPipeline(validator *Validator, verifier *Verifier) *Pipeline {
	return &Pipeline{
		validator: validator,
		verifier:  verifier,
		log:       logger.Get().Component("crisis_pipeline"),
	}
}

// Run validates candidates for a company, then cross-checks the survivors
func (p *Pipeline) Run(ctx context.Context, companyName string) Result {
	report := p.validator.Validate(ctx, companyName)
	verification := p.verifier.Verify(ctx, companyName, report.Events)

	result := Result{
		Events:     verification.Events,
		IsVerified: verification.IsVerified,
		Confidence: verification.Confidence,
		Sources:    verification.Sources,
		Stats: Stats{
			Candidates:     report.Candidates,
			Accepted:       report.Accepted,
			Rejected:       report.Rejected,
			VerifiedEvents: verification.VerifiedEvents,
			UsedFallback:   report.UsedFallback,
			Placeholders:   report.Placeholders,
		},
	}

	p.log.Infow("Crisis pipeline finished",
		"company", companyName,
		"events", len(result.Events),
		"verified_events", result.Stats.VerifiedEvents,
		"is_verified", result.IsVerified,
		"confidence", result.Confidence,
	)

	return result
}
