package game

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type stubFeedback struct {
	calls int
}

func (s *stubFeedback) Generate(hot string, won bool, attrs []string) string {
	s.calls++
	return fmt.Sprintf("hot=%s won=%v", hot, won)
}

func testEngine(t *testing.T, mutate func(*Config)) (*Engine, *FakeClock) {
	t.Helper()
	clk := NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.Seed = 1
	cfg.Clock = clk
	if mutate != nil {
		mutate(&cfg)
	}
	return NewEngine(cfg, nil, &stubFeedback{}), clk
}

func startTwoTeams(t *testing.T, e *Engine) {
	t.Helper()
	if !e.AddParticipant("Team X", "px") {
		t.Fatalf("AddParticipant rejected")
	}
	if !e.AddParticipant("Team Y", "py") {
		t.Fatalf("AddParticipant rejected")
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func TestSubmitLifecycle(t *testing.T) {
	e, clk := testEngine(t, nil)

	if res := e.Submit("Team X", "flavor"); res.Accepted {
		t.Fatalf("submit before start must be rejected")
	}

	startTwoTeams(t, e)

	if res := e.Submit("Nobody", "flavor"); res.Accepted {
		t.Fatalf("submit for unknown team must be rejected")
	}
	if res := e.Submit("Team X", "umami"); res.Accepted {
		t.Fatalf("submit with unknown attribute must be rejected")
	}

	clk.Advance(5 * time.Second)
	res := e.Submit("Team X", "flavor")
	if !res.Accepted {
		t.Fatalf("valid submit rejected")
	}
	if res.SubmitOffset != 5*time.Second {
		t.Fatalf("offset=%v want 5s", res.SubmitOffset)
	}

	// Second decision in the same round is rejected and leaves the
	// first intact.
	clk.Advance(2 * time.Second)
	if dup := e.Submit("Team X", "portion"); dup.Accepted {
		t.Fatalf("duplicate submit must be rejected")
	}
	if e.teams["Team X"].decision != "flavor" {
		t.Fatalf("duplicate submit clobbered the first decision")
	}
	if e.teams["Team X"].submitOffset != 5*time.Second {
		t.Fatalf("duplicate submit changed the recorded offset")
	}
}

func TestParticipantCapacity(t *testing.T) {
	e, _ := testEngine(t, nil)
	for i := 0; i < 8; i++ {
		if !e.AddParticipant("Team X", fmt.Sprintf("p%d", i)) {
			t.Fatalf("participant %d should fit", i)
		}
	}
	if e.AddParticipant("Team X", "p8") {
		t.Fatalf("ninth participant must be rejected")
	}
	// Re-attaching a known participant is always accepted.
	if !e.AddParticipant("Team X", "p0") {
		t.Fatalf("existing participant re-attach rejected")
	}
	e.RemoveParticipant("Team X", "p0")
	if !e.AddParticipant("Team X", "p8") {
		t.Fatalf("slot freed by removal should accept")
	}
}

func TestIsRoundComplete(t *testing.T) {
	e, clk := testEngine(t, nil)
	if e.IsRoundComplete() {
		t.Fatalf("no round open, must not be complete")
	}

	startTwoTeams(t, e)
	e.AddTeam("Ghost Crew") // zero participants: never blocks

	if e.IsRoundComplete() {
		t.Fatalf("round with pending staffed teams must not be complete")
	}
	e.Submit("Team X", "flavor")
	if e.IsRoundComplete() {
		t.Fatalf("one of two staffed teams pending")
	}
	e.Submit("Team Y", "spiciness")
	if !e.IsRoundComplete() {
		t.Fatalf("all staffed teams submitted, round must be complete before the timer")
	}

	// Timeout path: a fresh round with no submissions completes on the
	// clock alone.
	if _, err := e.EndRound(); err != nil {
		t.Fatalf("end round: %v", err)
	}
	if _, err := e.AdvanceRound(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if e.IsRoundComplete() {
		t.Fatalf("fresh round must not be complete")
	}
	clk.Advance(30 * time.Second)
	if !e.IsRoundComplete() {
		t.Fatalf("expired round must be complete regardless of submissions")
	}
}

func TestSpeedMultiplier(t *testing.T) {
	e, _ := testEngine(t, nil)
	tests := []struct {
		offset time.Duration
		want   float64
	}{
		{5 * time.Second, 1.5},
		{10 * time.Second, 1.5},
		{15 * time.Second, 1.3},
		{25 * time.Second, 1.0},
		{30 * time.Second, 1.0},
		{31 * time.Second, 0},
	}
	for _, tc := range tests {
		if got := e.speedMultiplier(tc.offset); got != tc.want {
			t.Fatalf("offset=%v got=%f want=%f", tc.offset, got, tc.want)
		}
	}
}

// The canonical settlement scenario: standard is 42, both teams start
// with every bar at 42, decay drops the flat profile to 40 before
// scoring, and the loss is recorded even though Team X's build would
// have pushed it over the standard.
func TestEndRoundPreBuildScore(t *testing.T) {
	e, clk := testEngine(t, nil)
	startTwoTeams(t, e)

	clk.Advance(5 * time.Second)
	if res := e.Submit("Team X", "spiciness"); !res.Accepted {
		t.Fatalf("submit rejected")
	}

	report, err := e.EndRound()
	if err != nil {
		t.Fatalf("end round: %v", err)
	}
	x := report.Results["Team X"]
	if x.Won {
		t.Fatalf("score below the standard must be a loss")
	}
	if x.Payout != 0 {
		t.Fatalf("losing team got payout %d", x.Payout)
	}
	if x.Margin < -2.001 || x.Margin > -1.999 {
		t.Fatalf("margin=%f want -2 (post-decay score vs standard)", x.Margin)
	}
	// Decay fires first: 42 - max(1, floor(42*0.05)) = 40 per bar,
	// and with weights summing to 1 the flat profile scores 40.
	if x.Score < 39.999 || x.Score > 40.001 {
		t.Fatalf("score=%f want post-decay 40", x.Score)
	}
	if x.SpeedBonus != 1.5 {
		t.Fatalf("speed bonus=%f want 1.5", x.SpeedBonus)
	}
	if x.BuildAmount != 30 {
		t.Fatalf("build=%d want 30", x.BuildAmount)
	}
	if got := x.Bars["spiciness"]; got != 70 {
		t.Fatalf("built bar=%d want decay-then-build 70", got)
	}
	for _, attr := range []string{"flavor", "portion", "ambiance"} {
		if got := x.Bars[attr]; got != 40 {
			t.Fatalf("bar %s=%d want decay-only 40", attr, got)
		}
	}

	y := report.Results["Team Y"]
	if y.Decision != "none" || y.BuildAmount != 0 {
		t.Fatalf("team without a decision must not build: %+v", y)
	}
	for attr, v := range y.Bars {
		if v != 40 {
			t.Fatalf("bar %s=%d want 40", attr, v)
		}
	}
}

func TestEndRoundScoreIsPostDecay(t *testing.T) {
	e, _ := testEngine(t, nil)
	startTwoTeams(t, e)

	// Force a clear winner.
	for attr := range e.teams["Team X"].bars {
		e.teams["Team X"].bars[attr] = 100
	}

	report, err := e.EndRound()
	if err != nil {
		t.Fatalf("end round: %v", err)
	}
	x := report.Results["Team X"]
	// Decay runs before scoring: 100 -> 95, so the score is 95 exactly
	// (weights sum to 1).
	if x.Score < 94.999 || x.Score > 95.001 {
		t.Fatalf("score=%f want 95 (post-decay)", x.Score)
	}
	if !x.Won {
		t.Fatalf("score 95 vs standard 42 must win")
	}
	wantPayout := int(30 + x.Margin*1.2)
	if x.Payout != wantPayout {
		t.Fatalf("payout=%d want %d", x.Payout, wantPayout)
	}
	if x.Cash != wantPayout {
		t.Fatalf("cash=%d want %d", x.Cash, wantPayout)
	}
}

func TestDecayNeverRaisesBars(t *testing.T) {
	e, clk := testEngine(t, nil)
	startTwoTeams(t, e)
	before := e.teams["Team Y"].barsSnapshot()

	clk.Advance(12 * time.Second)
	e.Submit("Team Y", "portion")

	report, err := e.EndRound()
	if err != nil {
		t.Fatalf("end round: %v", err)
	}
	after := report.Results["Team Y"].Bars
	for attr, prev := range before {
		if attr == "portion" {
			continue // the built bar may net-increase
		}
		if after[attr] > prev {
			t.Fatalf("bar %s rose from %d to %d without a build", attr, prev, after[attr])
		}
	}
}

func TestPhaseMisuse(t *testing.T) {
	e, _ := testEngine(t, nil)
	startTwoTeams(t, e)

	if _, err := e.AdvanceRound(); err != ErrNotInResults {
		t.Fatalf("advance during round: err=%v want ErrNotInResults", err)
	}
	if _, err := e.EndRound(); err != nil {
		t.Fatalf("end round: %v", err)
	}
	if _, err := e.EndRound(); err != ErrNotInRound {
		t.Fatalf("double end round: err=%v want ErrNotInRound", err)
	}
	if err := e.Start(); err != ErrGameInProgress {
		t.Fatalf("start mid-game: err=%v want ErrGameInProgress", err)
	}
}

func TestStructuralShift(t *testing.T) {
	e, _ := testEngine(t, func(cfg *Config) {
		cfg.TotalRounds = 5
		cfg.ShiftRound = 2
	})
	startTwoTeams(t, e)

	if _, err := e.EndRound(); err != nil {
		t.Fatalf("end round: %v", err)
	}
	ev, err := e.AdvanceRound()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if ev.Kind != EventStructuralShift || ev.NewAttribute == "" {
		t.Fatalf("expected structural shift event, got %+v", ev)
	}

	candidates := map[string]bool{
		"authenticity": true, "presentation": true,
		"speed_of_service": true, "value": true,
	}
	if !candidates[ev.NewAttribute] {
		t.Fatalf("shift attribute %q not from the candidate pool", ev.NewAttribute)
	}
	// Every existing team is backfilled at zero before the next round's
	// decay or build can touch the new bar.
	for name, tm := range e.teams {
		if v, ok := tm.bars[ev.NewAttribute]; !ok || v != 0 {
			t.Fatalf("team %s bar for %s = %d (present=%v), want 0", name, ev.NewAttribute, v, ok)
		}
	}
	if w := e.market.weights[ev.NewAttribute]; w <= 0 {
		t.Fatalf("new attribute has no market weight")
	}

	// Shift fires exactly once per game.
	for round := 3; round <= 5; round++ {
		if _, err := e.EndRound(); err != nil {
			t.Fatalf("round %d end: %v", round, err)
		}
		ev, err := e.AdvanceRound()
		if err != nil {
			t.Fatalf("round %d advance: %v", round, err)
		}
		if ev.Kind == EventStructuralShift {
			t.Fatalf("second structural shift at round %d", round)
		}
	}
}

func TestLatecomerAfterShift(t *testing.T) {
	e, _ := testEngine(t, func(cfg *Config) {
		cfg.TotalRounds = 5
		cfg.ShiftRound = 2
	})
	startTwoTeams(t, e)

	if _, err := e.EndRound(); err != nil {
		t.Fatalf("end round: %v", err)
	}
	ev, err := e.AdvanceRound()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if ev.Kind != EventStructuralShift {
		t.Fatalf("expected structural shift, got %+v", ev)
	}

	e.AddTeam("Latecomer")
	late := e.teams["Latecomer"]
	if got := late.bars[ev.NewAttribute]; got != 0 {
		t.Fatalf("late team's bar for shift attribute %q = %d, want 0", ev.NewAttribute, got)
	}
	for _, attr := range []string{"spiciness", "flavor", "portion", "ambiance"} {
		if got := late.bars[attr]; got != 42 {
			t.Fatalf("late team's base bar %s = %d, want 42", attr, got)
		}
	}
}

func TestShiftPoolExhausted(t *testing.T) {
	e, _ := testEngine(t, func(cfg *Config) {
		cfg.TotalRounds = 5
		cfg.ShiftRound = 2
		cfg.ShiftCandidates = cfg.BaseAttributes // every candidate already active
	})
	startTwoTeams(t, e)

	if _, err := e.EndRound(); err != nil {
		t.Fatalf("end round: %v", err)
	}
	ev, err := e.AdvanceRound()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if ev.Kind != EventNone {
		t.Fatalf("exhausted pool must open a normal round, got %+v", ev)
	}
	if len(e.market.attributes) != 4 {
		t.Fatalf("attribute set grew with no candidate available")
	}
	if e.Phase() != PhaseInRound || e.Round() != 2 {
		t.Fatalf("round 2 must open normally")
	}
}

func TestGameOverAndRestart(t *testing.T) {
	e, _ := testEngine(t, func(cfg *Config) {
		cfg.TotalRounds = 1
		cfg.ShiftRound = 99
	})
	startTwoTeams(t, e)

	if _, err := e.EndRound(); err != nil {
		t.Fatalf("end round: %v", err)
	}
	ev, err := e.AdvanceRound()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if ev.Kind != EventGameOver {
		t.Fatalf("expected game over, got %+v", ev)
	}
	if e.Phase() != PhaseWaiting {
		t.Fatalf("phase after game over = %v, want Waiting", e.Phase())
	}
	if res := e.Submit("Team X", "flavor"); res.Accepted {
		t.Fatalf("submit after game over must be rejected")
	}
	if err := e.Start(); err != nil {
		t.Fatalf("restart after game over: %v", err)
	}
	if res := e.Submit("Team X", "flavor"); !res.Accepted {
		t.Fatalf("submit after restart rejected")
	}
}

func TestZeroTeamsDegenerate(t *testing.T) {
	e, _ := testEngine(t, nil)
	if err := e.Start(); err != nil {
		t.Fatalf("start with zero teams: %v", err)
	}
	if !e.IsRoundComplete() {
		t.Fatalf("round with zero staffed teams completes immediately")
	}
	report, err := e.EndRound()
	if err != nil {
		t.Fatalf("end round: %v", err)
	}
	if len(report.Results) != 0 {
		t.Fatalf("expected empty report, got %d results", len(report.Results))
	}
}

func TestDriftOnEveryAdvance(t *testing.T) {
	e, _ := testEngine(t, func(cfg *Config) {
		cfg.TotalRounds = 3
		cfg.ShiftRound = 99
	})
	startTwoTeams(t, e)

	before := e.market.Weights()
	if _, err := e.EndRound(); err != nil {
		t.Fatalf("end round: %v", err)
	}
	if _, err := e.AdvanceRound(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	after := e.market.Weights()
	changed := false
	for attr, w := range after {
		if w != before[attr] {
			changed = true
		}
	}
	if !changed {
		t.Fatalf("advance must drift the market")
	}
}

func TestLeaderboardOrder(t *testing.T) {
	e, _ := testEngine(t, nil)
	e.AddTeam("Alpha")
	e.AddTeam("Beta")
	e.AddTeam("Gamma")
	e.teams["Beta"].cash = 100
	e.teams["Alpha"].cash = 100
	e.teams["Gamma"].cash = 50

	rows := e.Leaderboard()
	got := []string{rows[0].Team, rows[1].Team, rows[2].Team}
	want := []string{"Alpha", "Beta", "Gamma"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("leaderboard order %v, want %v", got, want)
		}
	}
}

func TestTeamFeedback(t *testing.T) {
	e, _ := testEngine(t, nil)
	gen := &stubFeedback{}
	e.feedback = gen
	startTwoTeams(t, e)

	// No settled deals yet: placeholder reviews.
	items := e.TeamFeedback("Team X")
	if len(items) != placeholderFeedbacks {
		t.Fatalf("placeholder count=%d want %d", len(items), placeholderFeedbacks)
	}

	if _, err := e.EndRound(); err != nil {
		t.Fatalf("end round: %v", err)
	}
	items = e.TeamFeedback("Team X")
	if len(items) != 1 {
		t.Fatalf("feedback count=%d want 1", len(items))
	}
	rec := e.teams["Team X"].recent[0]
	want := fmt.Sprintf("hot=%s won=%v", rec.Hot, rec.Won)
	if items[0].Text != want {
		t.Fatalf("feedback text %q, want collaborator output %q unmodified", items[0].Text, want)
	}

	if e.TeamFeedback("Nobody") != nil {
		t.Fatalf("unknown team must yield no feedback")
	}
}

func TestReset(t *testing.T) {
	e, _ := testEngine(t, nil)
	startTwoTeams(t, e)
	e.Submit("Team X", "flavor")

	e.Reset()
	if e.Phase() != PhaseWaiting || e.Round() != 0 {
		t.Fatalf("reset must return to Waiting round 0")
	}
	if len(e.teams) != 0 {
		t.Fatalf("reset must discard teams")
	}
	if len(e.History()) != 0 {
		t.Fatalf("reset must discard history")
	}
}

func TestConcurrentSubmissions(t *testing.T) {
	e, _ := testEngine(t, nil)
	for i := 0; i < 16; i++ {
		e.AddParticipant(fmt.Sprintf("team-%d", i), fmt.Sprintf("p%d", i))
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var wg sync.WaitGroup
	accepted := make([]int, 16)
	for i := 0; i < 16; i++ {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(team, attempt int) {
				defer wg.Done()
				res := e.Submit(fmt.Sprintf("team-%d", team), "flavor")
				if res.Accepted {
					accepted[team]++
				}
			}(i, j)
		}
	}
	wg.Wait()

	for i, n := range accepted {
		if n != 1 {
			t.Fatalf("team-%d had %d accepted submissions, want exactly 1", i, n)
		}
	}
	if !e.IsRoundComplete() {
		t.Fatalf("all staffed teams submitted")
	}
}
