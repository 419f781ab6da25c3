package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Polarity
	}{
		{"negative", "Ransomware attack causes outage", Negative},
		{"positive", "Service restored, recovery praised by customers", Positive},
		{"crisis vocabulary only", "Kaseya breach", Negative},
		{"no rated words", "Quarterly meeting scheduled", Neutral},
		{"empty", "", Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(Score(tt.text)))
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	assert.Equal(t, 0.0, Score("Quarterly meeting scheduled"))

	single := Score("ransomware")
	assert.Less(t, single, -NeutralBand)
	assert.Greater(t, single, -0.9, "a single word must not saturate the scale")

	worse := Score("Ransomware breach and outage, customers furious and angry")
	assert.Less(t, worse, single)
	assert.Greater(t, worse, -1.0)
}

func TestScore_RecoveryOffsetsCrisis(t *testing.T) {
	assert.Greater(t, Score("Outage resolved, service restored"), Score("Outage"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Positive, Classify(0.5))
	assert.Equal(t, Negative, Classify(-0.5))
	assert.Equal(t, Neutral, Classify(0.2))
	assert.Equal(t, Neutral, Classify(0))
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, 0.0, Aggregate(nil))
	assert.InDelta(t, 0.5, Aggregate([]Weighted{{Score: 1, Weight: 3}, {Score: -1, Weight: 1}}), 1e-9)
	assert.InDelta(t, 0.0, Aggregate([]Weighted{{Score: 1}, {Score: -1}}), 1e-9)
}
