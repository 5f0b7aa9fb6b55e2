package game

import (
	"math"
	"testing"
)

func TestScoreLinearity(t *testing.T) {
	tm := newTeam("x", []string{"spiciness", "flavor"}, 0)
	tm.bars["spiciness"] = 50
	tm.bars["flavor"] = 30

	weights := map[string]float64{
		"spiciness": 0.5,
		"flavor":    0.3,
		"portion":   0.2, // no bar: contributes exactly 0
	}
	want := 50*0.5 + 30*0.3
	if got := tm.score(weights); math.Abs(got-want) > 1e-9 {
		t.Fatalf("score=%f want %f", got, want)
	}

	// Bars outside the weight map contribute nothing.
	tm.bars["secret"] = 1000
	if got := tm.score(weights); math.Abs(got-want) > 1e-9 {
		t.Fatalf("unweighted bar leaked into score: %f want %f", got, want)
	}
}

func TestEnsureAttribute(t *testing.T) {
	tm := newTeam("x", []string{"spiciness"}, 42)
	tm.ensureAttribute("value")
	if tm.bars["value"] != 0 {
		t.Fatalf("backfilled bar must start at 0, got %d", tm.bars["value"])
	}
	tm.bars["value"] = 17
	tm.ensureAttribute("value")
	if tm.bars["value"] != 17 {
		t.Fatalf("ensureAttribute must not reset an existing bar")
	}
}

func TestOutcomeWindow(t *testing.T) {
	tm := newTeam("x", nil, 0)
	for i := 0; i < outcomeWindow+3; i++ {
		tm.pushOutcome(OutcomeRecord{Payout: i})
	}
	if len(tm.recent) != outcomeWindow {
		t.Fatalf("window length %d, want %d", len(tm.recent), outcomeWindow)
	}
	if tm.recent[0].Payout != 3 {
		t.Fatalf("window must keep the most recent records, got first payout %d", tm.recent[0].Payout)
	}
}
