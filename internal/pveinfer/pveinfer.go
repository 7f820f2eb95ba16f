// Package pveinfer computes PvE drop-rate base rates and confidence
// intervals from observed completions and reward events (§4.9). It is pure
// arithmetic over aggregates the caller has already queried from
// internal/repository; it does not itself touch the database.
package pveinfer

import "math"

// Aggregates are the repository-side sums/averages an inference call needs.
type Aggregates struct {
	Drops             int64
	TotalCompletions  int64
	AvgPartyLuck      float64
	AvgScavengerBonus float64 // percentage points, e.g. 15 means 15%
}

// Result is the full inference output (§4.9).
type Result struct {
	TotalDrops            int64
	TotalCompletions      int64
	AvgPartyLuck          float64
	AvgScavengerBonusPct  float64
	ObservedRate          float64
	LuckContribution      float64
	ScavengerBonusValue   float64
	CalculatedBaseRate    float64
	ConfidenceLower       float64
	ConfidenceUpper       float64
}

const luckCoefficient = 0.0002
const wilsonZ = 1.96

// Infer computes the base drop rate and Wilson 95% confidence interval for
// one (activityId, itemId[, scavengerBonusPctFilter]) aggregate. Returns
// (_, false) when totalCompletions == 0, matching §4.9's "return null".
func Infer(a Aggregates) (Result, bool) {
	if a.TotalCompletions == 0 {
		return Result{}, false
	}

	n := float64(a.TotalCompletions)
	observed := float64(a.Drops) / n
	luckContribution := luckCoefficient * a.AvgPartyLuck
	scavengerValue := a.AvgScavengerBonus / 100

	base := observed - luckContribution - scavengerValue
	if base < 0 {
		base = 0
	}

	lower, upper := wilsonInterval(observed, n)

	return Result{
		TotalDrops:           a.Drops,
		TotalCompletions:     a.TotalCompletions,
		AvgPartyLuck:         a.AvgPartyLuck,
		AvgScavengerBonusPct: a.AvgScavengerBonus,
		ObservedRate:         observed,
		LuckContribution:     luckContribution,
		ScavengerBonusValue:  scavengerValue,
		CalculatedBaseRate:   base,
		ConfidenceLower:      lower,
		ConfidenceUpper:      upper,
	}, true
}

// wilsonInterval computes the Wilson 95% confidence interval around
// observed proportion p over n trials, clamped to [0, 1] (§4.9, §8.2).
func wilsonInterval(p float64, n float64) (lower, upper float64) {
	if n <= 0 {
		return 0, 0
	}
	z2 := wilsonZ * wilsonZ
	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	margin := wilsonZ * math.Sqrt((p*(1-p)+z2/(4*n))/n) / denom

	lower = clamp01(center - margin)
	upper = clamp01(center + margin)
	return lower, upper
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
