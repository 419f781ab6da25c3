package swarm

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/signal"
)

func article(title string, at time.Time) signal.NewsArticle {
	return signal.NewsArticle{Title: title, PublishedAt: at, Provenance: signal.Meta{Source: "test", Confidence: 0.5}}
}

func TestDeriveDaily_BeforeEpoch(t *testing.T) {
	assert.Empty(t, DeriveDaily(nil, company.Epoch.Add(-time.Hour)))
}

func TestDeriveDaily_ZeroFillsQuietDays(t *testing.T) {
	now := company.DayDate(9).Add(6 * time.Hour)
	daily := DeriveDaily([]signal.Signal{
		article("Acme outage", company.DayDate(3).Add(time.Hour)),
		article("Acme outage resolved", company.DayDate(3).Add(2*time.Hour)),
	}, now)

	require.Len(t, daily, 10)
	for d, p := range daily {
		assert.Equal(t, company.DayDate(d), p.Timestamp)
		if d == 3 {
			continue
		}
		assert.Zero(t, p.Volume, "day %d", d)
		assert.Zero(t, p.Sentiment, "day %d", d)
		assert.Zero(t, p.Confidence, "day %d", d)
	}
	assert.Negative(t, daily[3].Sentiment)
	assert.Greater(t, daily[3].Sentiment, -100)
	assert.Equal(t, 2, daily[3].Volume)
	assert.Equal(t, 0.5, daily[3].Confidence)
}

func TestScore_QuoteReturnIsClamped(t *testing.T) {
	up := signal.PriceQuote{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(102)}
	crash := signal.PriceQuote{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(80)}

	assert.InDelta(t, 0.4, score(up).score, 1e-9)
	assert.Equal(t, -1.0, score(crash).score)
}

func TestDerivePlatforms_UnsourcedPlatformsStayZero(t *testing.T) {
	got := DerivePlatforms([]signal.Signal{
		article("Acme praised for transparent recovery", time.Now()),
		signal.ForumPost{Text: "acme support failed", Score: 9, NumComments: 1},
	})

	require.Len(t, got, 6)
	byName := map[string]metrics.PlatformMetric{}
	for _, p := range got {
		byName[p.Platform] = p
	}
	assert.Equal(t, metrics.PlatformMetric{Platform: "Twitter/X"}, byName["Twitter/X"])
	assert.Equal(t, metrics.PlatformMetric{Platform: "YouTube"}, byName["YouTube"])
	assert.Positive(t, byName["News Media"].Sentiment)
	assert.Equal(t, 1, byName["News Media"].Volume)
	assert.Equal(t, 1, byName["Reddit"].Volume)
	assert.Equal(t, 11, byName["Reddit"].Reach)
	assert.Equal(t, 0.1, byName["Reddit"].EngagementRate)
}

func TestDeriveCompetitors_CountsMentions(t *testing.T) {
	got := DeriveCompetitors("Kaseya", []signal.Signal{
		article("Kaseya and Datto compete", time.Now()),
		article("Datto ransomware breach", time.Now()),
	})

	var datto metrics.CompetitorData
	for _, c := range got {
		if c.Name == "Datto" {
			datto = c
		} else {
			assert.Zero(t, c.Volume, c.Name)
		}
	}
	assert.Equal(t, 2, datto.Volume)
	assert.Equal(t, 0.67, datto.MarketShare)
	assert.Equal(t, 0.5, datto.CrisisExposure)
}

func TestDeriveThreats(t *testing.T) {
	assert.Empty(t, DeriveThreats("Kaseya", nil))

	got := DeriveThreats("Kaseya", []signal.Signal{
		article("Kaseya breach", time.Now()),
		article("Kaseya outage", time.Now()),
		article("Kaseya recovery", time.Now()),
		article("Kaseya quarterly call", time.Now()),
	})
	require.Len(t, got, 6)
	assert.Equal(t, metrics.KindThreat, got[0].Kind)
	assert.Equal(t, 0.5, got[0].Probability)
	assert.Equal(t, 50, got[0].Impact)
	assert.Equal(t, metrics.KindOpportunity, got[3].Kind)
	assert.Equal(t, 0.25, got[3].Probability)
}

func TestDeriveStakeholders_MediaIsNews(t *testing.T) {
	got := DeriveStakeholders("Kaseya", []signal.Signal{
		article("Kaseya customers angry after outage", time.Now()),
		signal.ForumPost{Text: "our MSP staff worked all weekend"},
	})
	require.Len(t, got, 6)
	byName := map[string]metrics.StakeholderSegment{}
	for _, s := range got {
		byName[s.Segment] = s
	}
	assert.Equal(t, 1, byName["Customers"].Volume)
	assert.Negative(t, byName["Customers"].Sentiment)
	assert.Equal(t, 1, byName["Employees"].Volume)
	assert.Equal(t, 1, byName["Media"].Volume)
	assert.Zero(t, byName["Investors"].Volume)
	assert.Empty(t, byName["Investors"].KeyConcerns)
}
