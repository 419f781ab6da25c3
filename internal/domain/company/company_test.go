package company

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_DeterministicAndBounded(t *testing.T) {
	names := []string{"Kaseya", "Acme Corp", "kaseya", "Deutsche Bank", "日本電信電話", "a", "Pfizer Inc."}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			first := Seed(name)
			second := Seed(name)

			assert.Equal(t, first, second)
			assert.GreaterOrEqual(t, first, 0.0)
			assert.Less(t, first, 1.0)
		})
	}
}

func TestSeed_CaseSensitive(t *testing.T) {
	assert.NotEqual(t, Seed("Kaseya"), Seed("kaseya"))
}

func TestSeed_EmptyName(t *testing.T) {
	assert.Equal(t, 0.0, Seed(""))
}

func TestSeed_KnownValue(t *testing.T) {
	// "ab" hashes to 97*31 + 98 = 3105
	assert.InDelta(t, 3105.0/2147483647.0, Seed("ab"), 1e-15)
}

func TestOffset_Wraps(t *testing.T) {
	assert.InDelta(t, 0.1, Offset(0.9, 1, 0.2), 1e-9)
	assert.InDelta(t, 0.5, Offset(0.5, 0, 0.37), 1e-9)
	for i := 0; i < 50; i++ {
		v := Offset(0.77, i, 0.618)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestNoise_Bounded(t *testing.T) {
	for salt := 0; salt < 500; salt++ {
		n := Noise(0.42, salt)
		assert.GreaterOrEqual(t, n, 0.0)
		assert.Less(t, n, 1.0)

		s := Signed(0.42, salt)
		assert.GreaterOrEqual(t, s, -1.0)
		assert.Less(t, s, 1.0)
	}
	assert.Equal(t, Noise(0.42, 7), Noise(0.42, 7))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		company  string
		industry Industry
	}{
		{"empty string falls back", "", IndustryTechnology},
		{"unknown name falls back", "Kaseya", IndustryTechnology},
		{"bank", "First Republic Bank", IndustryFinancial},
		{"pharma", "Acme Pharma", IndustryHealthcare},
		{"energy", "Gulf Oil & Gas", IndustryEnergy},
		{"telecom", "Nordic Telecom", IndustryTelecommunications},
		{"airline", "Pacific Airlines", IndustryAerospace},
		{"case insensitive", "ACME BANK", IndustryFinancial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := Classify(tt.company)
			assert.Equal(t, tt.industry, ctx.Industry)
			assert.GreaterOrEqual(t, ctx.BaseRisk, 0.0)
			assert.LessOrEqual(t, ctx.BaseRisk, 1.0)
			assert.NotEmpty(t, ctx.MarketPosition)
		})
	}
}

func TestClassify_Default(t *testing.T) {
	assert.Equal(t, DefaultContext, Classify("   "))
}

func TestIndustryTables_Complete(t *testing.T) {
	for _, rule := range Rules {
		table, ok := Industries[rule.Industry]
		require.True(t, ok, "missing table for %s", rule.Industry)
		assert.NotEmpty(t, table.Keywords)
		assert.NotEmpty(t, table.Regulators)
		assert.NotEmpty(t, table.Risks)
		assert.NotEmpty(t, table.Competitors)
		assert.Len(t, table.Threats, 3)
		assert.Len(t, table.Opportunities, 3)
	}
}

func TestProfileFor(t *testing.T) {
	p := ProfileFor("Acme Bank")

	assert.Equal(t, "Acme Bank", p.Name)
	assert.Equal(t, IndustryFinancial, p.Context.Industry)
	assert.Contains(t, p.Regulators, "SEC")
	assert.NotEmpty(t, p.Keywords)
}

func TestCrisisDay_Bounds(t *testing.T) {
	names := []string{"", "Kaseya", "Acme Corp", "Boeing", "Tesla Motors", "Verizon", "zzzzzzzzzzzzzzzzzzzzzzzzzz"}
	for _, name := range names {
		day := CrisisDay(name)
		assert.GreaterOrEqual(t, day, MinCrisisDay, name)
		assert.LessOrEqual(t, day, MaxCrisisDay, name)
		assert.Equal(t, day, CrisisDay(name))
	}
}

func TestCrisisDay_EmptyNameUsesTechnologyBase(t *testing.T) {
	// seed 0 shifts the base by -60
	assert.Equal(t, 120, CrisisDay(""))
}

func TestDayIndexRoundTrip(t *testing.T) {
	for _, day := range []int{0, 1, 30, 180, 365} {
		assert.Equal(t, day, DayIndex(DayDate(day)))
		assert.Equal(t, day, DayIndex(DayDate(day).Add(13*time.Hour)))
	}
	assert.Equal(t, -1, DayIndex(Epoch.Add(-time.Hour)))
}
