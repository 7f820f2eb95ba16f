package pveinfer

import "testing"

func approxEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestInferLiteralScenario(t *testing.T) {
	// §8.4.3: 2500 completions, 375 matching rewards, avgLuck=600, avgScavenger=15.
	res, ok := Infer(Aggregates{
		Drops:             375,
		TotalCompletions:  2500,
		AvgPartyLuck:      600,
		AvgScavengerBonus: 15,
	})
	if !ok {
		t.Fatalf("expected ok=true for nonzero completions")
	}
	if !approxEqual(res.ObservedRate, 0.15, 1e-9) {
		t.Errorf("ObservedRate = %v, want 0.15", res.ObservedRate)
	}
	if !approxEqual(res.LuckContribution, 0.12, 1e-9) {
		t.Errorf("LuckContribution = %v, want 0.12", res.LuckContribution)
	}
	if !approxEqual(res.ScavengerBonusValue, 0.15, 1e-9) {
		t.Errorf("ScavengerBonusValue = %v, want 0.15", res.ScavengerBonusValue)
	}
	if res.CalculatedBaseRate != 0 {
		t.Errorf("CalculatedBaseRate = %v, want 0 (floored)", res.CalculatedBaseRate)
	}
	if res.ConfidenceLower < 0.13 || res.ConfidenceLower > 0.14 {
		t.Errorf("ConfidenceLower = %v, want ~0.136", res.ConfidenceLower)
	}
	if res.ConfidenceUpper < 0.16 || res.ConfidenceUpper > 0.17 {
		t.Errorf("ConfidenceUpper = %v, want ~0.165", res.ConfidenceUpper)
	}
}

func TestInferZeroCompletionsReturnsNotOK(t *testing.T) {
	_, ok := Infer(Aggregates{TotalCompletions: 0})
	if ok {
		t.Fatalf("expected ok=false when totalCompletions == 0")
	}
}

func TestInferFloorsAtZero(t *testing.T) {
	res, ok := Infer(Aggregates{
		Drops:             1000,
		TotalCompletions:  1000,
		AvgPartyLuck:      5000,
		AvgScavengerBonus: 90,
	})
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if res.CalculatedBaseRate < 0 {
		t.Errorf("CalculatedBaseRate = %v, must never be negative (§8.1 inference floor)", res.CalculatedBaseRate)
	}
}
