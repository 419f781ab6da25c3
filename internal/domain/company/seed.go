package company

import (
	"math"
	"unicode/utf16"
)

// Seed maps a company name to a deterministic value in [0,1).
// The hash runs over UTF-16 code units with int32 wrap-around, so the same
// name always yields the same seed. No normalisation is applied.
func Seed(name string) float64 {
	var hash int32
	for _, unit := range utf16.Encode([]rune(name)) {
		hash = hash*31 + int32(unit)
	}

	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}
	return float64(abs%math.MaxInt32) / float64(math.MaxInt32)
}

// Offset decorrelates entity i from its siblings while staying deterministic.
func Offset(seed float64, index int, k float64) float64 {
	v := math.Mod(seed+float64(index)*k, 1)
	if v < 0 {
		v += 1
	}
	return unit(v)
}

// Noise returns a deterministic pseudo-random value in [0,1) for (seed, salt).
func Noise(seed float64, salt int) float64 {
	x := math.Sin(seed*9301+float64(salt)*49297+233.28) * 43758.5453
	return unit(x - math.Floor(x))
}

// Signed is Noise rescaled to [-1,1).
func Signed(seed float64, salt int) float64 {
	return Noise(seed, salt)*2 - 1
}

// unit folds float rounding at the upper edge back into [0,1).
func unit(v float64) float64 {
	if v >= 1 || v < 0 {
		return 0
	}
	return v
}
