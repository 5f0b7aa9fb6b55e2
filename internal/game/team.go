package game

import "time"

// Teams keep the last few settlement records for narrative feedback.
const outcomeWindow = 5

// Team is one competing kitchen: strength bars, cash, attached
// participants and at most one pending decision for the open round.
// Only the engine mutates a Team, and always under its lock; that
// ownership rule is what keeps settlement and concurrent submissions
// from racing.
type Team struct {
	name    string
	cash    int
	bars    map[string]int
	players map[string]struct{}

	decision     string
	hasDecision  bool
	submitOffset time.Duration

	recent []OutcomeRecord
}

func newTeam(name string, attributes []string, startingBar int) *Team {
	t := &Team{
		name:    name,
		bars:    make(map[string]int, len(attributes)),
		players: make(map[string]struct{}),
	}
	for _, attr := range attributes {
		t.bars[attr] = startingBar
	}
	return t
}

// ensureAttribute backfills a zero bar for attributes the team has not
// seen yet. Idempotent; existing bars are never touched.
func (t *Team) ensureAttribute(attr string) {
	if _, ok := t.bars[attr]; !ok {
		t.bars[attr] = 0
	}
}

// score is the weighted sum over the weight map's keys. Attributes the
// team has no bar for contribute zero; bars outside the weight map
// contribute nothing.
func (t *Team) score(weights map[string]float64) float64 {
	var sum float64
	for attr, w := range weights {
		sum += float64(t.bars[attr]) * w
	}
	return sum
}

func (t *Team) clearDecision() {
	t.decision = ""
	t.hasDecision = false
	t.submitOffset = 0
}

func (t *Team) pushOutcome(rec OutcomeRecord) {
	t.recent = append(t.recent, rec)
	if len(t.recent) > outcomeWindow {
		t.recent = t.recent[len(t.recent)-outcomeWindow:]
	}
}

func (t *Team) barsSnapshot() map[string]int {
	out := make(map[string]int, len(t.bars))
	for attr, v := range t.bars {
		out[attr] = v
	}
	return out
}
