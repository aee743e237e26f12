package cryptoutil

import (
	"math"
	"testing"
	"time"
)

func TestSecureCompareEquality(t *testing.T) {
	if !SecureCompare("matching-value", "matching-value") {
		t.Fatalf("expected equal strings to compare equal")
	}
	if SecureCompare("matching-value", "different-value") {
		t.Fatalf("expected different strings to compare unequal")
	}
	if SecureCompare("short", "a-much-longer-string-entirely") {
		t.Fatalf("expected different-length strings to compare unequal")
	}
}

// sampleStats returns the mean and (unbiased) standard deviation of samples.
func sampleStats(samples []float64) (mean, stddev float64) {
	n := float64(len(samples))
	for _, s := range samples {
		mean += s
	}
	mean /= n
	var sumSq float64
	for _, s := range samples {
		d := s - mean
		sumSq += d * d
	}
	stddev = math.Sqrt(sumSq / (n - 1))
	return mean, stddev
}

// TestSecureCompareTimingIndependentOfLength asserts, in the style of
// a correct-prefix-length timing check, that the difference of sample
// means between comparing a short candidate and a long candidate
// against the same reference value is within a few standard errors of
// zero: a naive byte-by-byte comparator would instead show a gap many
// standard errors wide, growing with the length difference.
func TestSecureCompareTimingIndependentOfLength(t *testing.T) {
	const rounds = 10000
	const reference = "reference-value-for-timing-check"
	short := "x"
	long := make([]byte, 4096)
	for i := range long {
		long[i] = 'y'
	}
	longStr := string(long)

	sample := func(candidate string) []float64 {
		out := make([]float64, rounds)
		for i := 0; i < rounds; i++ {
			start := time.Now()
			SecureCompare(candidate, reference)
			out[i] = float64(time.Since(start))
		}
		return out
	}

	shortSamples := sample(short)
	longSamples := sample(longStr)

	shortMean, shortStdDev := sampleStats(shortSamples)
	longMean, longStdDev := sampleStats(longSamples)

	n := float64(rounds)
	standardError := math.Sqrt(shortStdDev*shortStdDev/n + longStdDev*longStdDev/n)
	if standardError == 0 {
		t.Fatalf("degenerate timing samples: zero variance in both groups")
	}

	z := (longMean - shortMean) / standardError
	const maxSigma = 5.0
	if math.Abs(z) > maxSigma {
		t.Errorf("timing difference between short and long candidates is %.2f standard errors from zero (want within %.1f): short mean=%.0fns long mean=%.0fns",
			z, maxSigma, shortMean, longMean)
	}
}
