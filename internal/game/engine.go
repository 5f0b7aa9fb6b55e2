package game

import (
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sort"
	"sync"
	"time"
)

var (
	// ErrGameInProgress means Start was called while a game is running.
	ErrGameInProgress = errors.New("game already in progress")
	// ErrNotInRound means EndRound was called with no round open.
	ErrNotInRound = errors.New("no round open")
	// ErrNotInResults means AdvanceRound was called before EndRound.
	ErrNotInResults = errors.New("round not settled")
)

// How many recent deals feed the narrative generator per call, and how
// many placeholder reviews a team with no history gets.
const (
	feedbackDeals        = 3
	placeholderFeedbacks = 2
)

// Engine owns all mutable game state for one game instance. Every
// public method holds mu for its full duration, so inbound submissions
// and the completion poll never interleave their reads and writes. No
// method blocks or performs I/O; all waiting belongs to the session
// coordinator.
//
// EndRound and AdvanceRound must each be called at most once per open
// round. Calling them in the wrong phase is caller misuse: state stays
// untouched and a sentinel error comes back.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	clock    Clock
	log      *slog.Logger
	rand     *mathrand.Rand
	feedback FeedbackGenerator

	market *Market
	teams  map[string]*Team
	order  []string // team insertion order, for stable settlement iteration

	phase      Phase
	round      int
	roundStart time.Time

	shifted   bool
	shiftAttr string

	history []RoundReport
}

func NewEngine(cfg Config, logger *slog.Logger, feedback FeedbackGenerator) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = NewRealClock()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = clock.Now().UnixNano()
	}
	e := &Engine{
		cfg:      cfg,
		clock:    clock,
		log:      logger,
		rand:     mathrand.New(mathrand.NewSource(seed)),
		feedback: feedback,
		teams:    make(map[string]*Team),
		phase:    PhaseWaiting,
	}
	e.market = newMarket(cfg, e.rand)
	return e
}

// AddTeam creates a team on first reference. Teams are never deleted
// during a game.
func (e *Engine) AddTeam(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addTeamLocked(name)
}

func (e *Engine) addTeamLocked(name string) *Team {
	if t, ok := e.teams[name]; ok {
		return t
	}
	// Only base attributes start at the standard bar. Anything the
	// market grew since game start begins at zero, latecomer or not.
	t := newTeam(name, e.cfg.BaseAttributes, e.cfg.StartingBar)
	for _, attr := range e.market.attributes {
		t.ensureAttribute(attr)
	}
	e.teams[name] = t
	e.order = append(e.order, name)
	e.log.Debug("team added", "team", name)
	return t
}

// AddParticipant attaches a participant, creating the team if needed.
// Returns false when the team is at capacity.
func (e *Engine) AddParticipant(teamName, participantID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.addTeamLocked(teamName)
	if _, ok := t.players[participantID]; ok {
		return true
	}
	if len(t.players) >= e.cfg.MaxPlayersPerTeam {
		return false
	}
	t.players[participantID] = struct{}{}
	return true
}

func (e *Engine) RemoveParticipant(teamName, participantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.teams[teamName]; ok {
		delete(t.players, participantID)
	}
}

// Start opens round 1. Zero teams is not a fault: the game runs and
// settlements produce empty reports. Starting mid-game is rejected.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseWaiting {
		return ErrGameInProgress
	}
	e.round = 1
	e.openRoundLocked()
	e.log.Info("game started", "teams", len(e.teams), "rounds", e.cfg.TotalRounds)
	return nil
}

func (e *Engine) openRoundLocked() {
	e.phase = PhaseInRound
	e.roundStart = e.clock.Now()
	for _, name := range e.order {
		t := e.teams[name]
		t.clearDecision()
		// Teams added between rounds may be missing newer attributes.
		for _, attr := range e.market.attributes {
			t.ensureAttribute(attr)
		}
	}
}

// Submit records a team's decision for the open round and stamps the
// elapsed time since round start. At most one decision per team per
// round; wrong phase, unknown team, duplicate submission and unknown
// attribute are all rejections that change nothing.
func (e *Engine) Submit(teamName, attribute string) SubmitResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := SubmitResult{Team: teamName, Decision: attribute}
	if e.phase != PhaseInRound {
		return res
	}
	t, ok := e.teams[teamName]
	if !ok || t.hasDecision || !e.market.has(attribute) {
		return res
	}

	t.decision = attribute
	t.hasDecision = true
	t.submitOffset = e.clock.Now().Sub(e.roundStart)

	res.Accepted = true
	res.SubmitOffset = t.submitOffset
	e.log.Debug("decision submitted",
		"team", teamName, "decision", attribute, "offset", t.submitOffset)
	return res
}

// IsRoundComplete reports whether the open round can settle: the round
// clock has run out, or every team with at least one attached
// participant has a pending decision. Unstaffed teams never block, so a
// team that disconnects mid-round cannot stall the game. Side-effect
// free and safe to poll freely.
func (e *Engine) IsRoundComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseInRound {
		return false
	}
	if e.roundRemainingLocked() <= 0 {
		return true
	}
	for _, t := range e.teams {
		if len(t.players) > 0 && !t.hasDecision {
			return false
		}
	}
	return true
}

func (e *Engine) roundRemainingLocked() time.Duration {
	if e.phase != PhaseInRound {
		return e.cfg.RoundDuration
	}
	if rem := e.cfg.RoundDuration - e.clock.Now().Sub(e.roundStart); rem > 0 {
		return rem
	}
	return 0
}

func (e *Engine) speedMultiplier(offset time.Duration) float64 {
	for _, step := range e.cfg.SpeedSteps {
		if offset <= step.MaxOffset {
			return step.Multiplier
		}
	}
	return 0
}

// decayBars reduces every bar by max(1, floor(bar*rate)), floored at 0.
func (e *Engine) decayBars(t *Team) {
	for attr, v := range t.bars {
		dec := int(float64(v) * e.cfg.DecayRate)
		if dec < 1 {
			dec = 1
		}
		next := v - dec
		if next < 0 {
			next = 0
		}
		t.bars[attr] = next
	}
}

// EndRound settles the open round and moves to Results. Per team, in
// order: decay, then the win decision against the current standard,
// then the build, then the payout. The decision is taken before the
// build lands, so the report's score and win flag are pre-build values.
func (e *Engine) EndRound() (RoundReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseInRound {
		return RoundReport{}, ErrNotInRound
	}
	e.phase = PhaseResults

	weights := e.market.Weights()
	standard := e.market.Standard()
	hot := e.market.HotAttribute()

	report := RoundReport{
		Round:        e.round,
		HotAttribute: hot,
		Weights:      weights,
		Results:      make(map[string]TeamResult, len(e.teams)),
	}

	for _, name := range e.order {
		t := e.teams[name]

		e.decayBars(t)

		score := t.score(weights)
		margin := score - standard
		won := margin > 0

		decision := "none"
		speedBonus := 1.0
		buildAmount := 0
		if t.hasDecision {
			decision = t.decision
			speedBonus = e.speedMultiplier(t.submitOffset)
			buildAmount = int(float64(e.cfg.BaseBuildAmount) * speedBonus)
			t.bars[decision] += buildAmount
		}

		payout := 0
		if won {
			payout = int(float64(e.cfg.BasePayout) + margin*e.cfg.MarginMultiplier)
		}
		t.cash += payout

		t.pushOutcome(OutcomeRecord{
			Won:     won,
			Margin:  margin,
			Hot:     hot,
			Weights: copyWeights(weights),
			Payout:  payout,
		})

		report.Results[name] = TeamResult{
			Won:         won,
			Decision:    decision,
			Payout:      payout,
			Margin:      margin,
			Score:       score,
			Standard:    standard,
			SpeedBonus:  speedBonus,
			BuildAmount: buildAmount,
			Cash:        t.cash,
			Bars:        t.barsSnapshot(),
		}
	}

	e.history = append(e.history, report)
	e.log.Info("round settled", "round", e.round, "hot", hot, "teams", len(report.Results))
	return report, nil
}

// AdvanceRound moves out of Results: one weight drift, then either game
// over, the one-time structural shift, or a plain next round.
func (e *Engine) AdvanceRound() (AdvanceEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseResults {
		return AdvanceEvent{}, ErrNotInResults
	}

	e.market.drift()
	e.round++

	if e.round > e.cfg.TotalRounds {
		e.phase = PhaseWaiting
		e.log.Info("game over", "rounds_played", e.cfg.TotalRounds)
		return AdvanceEvent{Kind: EventGameOver}, nil
	}

	ev := AdvanceEvent{Kind: EventNone}
	if e.round == e.cfg.ShiftRound && !e.shifted {
		e.shifted = true
		if attr := e.pickShiftAttributeLocked(); attr != "" {
			e.shiftAttr = attr
			e.market.addAttribute(attr)
			for _, t := range e.teams {
				t.ensureAttribute(attr)
			}
			ev = AdvanceEvent{Kind: EventStructuralShift, NewAttribute: attr}
			e.log.Info("structural shift", "attribute", attr)
		}
	}

	e.openRoundLocked()
	return ev, nil
}

func (e *Engine) pickShiftAttributeLocked() string {
	available := make([]string, 0, len(e.cfg.ShiftCandidates))
	for _, attr := range e.cfg.ShiftCandidates {
		if !e.market.has(attr) {
			available = append(available, attr)
		}
	}
	if len(available) == 0 {
		return ""
	}
	return available[e.rand.Intn(len(available))]
}

// Reset discards all game state: fresh market, no teams, Waiting phase.
// The random stream continues rather than replaying the seed.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.market = newMarket(e.cfg, e.rand)
	e.teams = make(map[string]*Team)
	e.order = nil
	e.phase = PhaseWaiting
	e.round = 0
	e.roundStart = time.Time{}
	e.shifted = false
	e.shiftAttr = ""
	e.history = nil
	e.log.Info("game reset")
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) Round() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.round
}

func (e *Engine) GameState() GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return GameState{
		Phase:              e.phase.String(),
		Round:              e.round,
		TotalRounds:        e.cfg.TotalRounds,
		Shifted:            e.shifted,
		RoundTimeRemaining: e.roundRemainingLocked(),
		Attributes:         e.market.Attributes(),
		Leaderboard:        e.leaderboardLocked(),
	}
}

// Leaderboard sorts teams by cash descending, name ascending on ties.
func (e *Engine) Leaderboard() []LeaderboardRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leaderboardLocked()
}

func (e *Engine) leaderboardLocked() []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(e.teams))
	for _, name := range e.order {
		t := e.teams[name]
		rows = append(rows, LeaderboardRow{Team: name, Cash: t.cash, Players: len(t.players)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Cash != rows[j].Cash {
			return rows[i].Cash > rows[j].Cash
		}
		return rows[i].Team < rows[j].Team
	})
	return rows
}

func (e *Engine) TeamState(teamName string) (TeamSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.teams[teamName]
	if !ok {
		return TeamSnapshot{}, false
	}
	return TeamSnapshot{Cash: t.cash, Bars: t.barsSnapshot()}, true
}

func (e *Engine) TeamSubmitted(teamName string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.teams[teamName]
	return ok && t.hasDecision
}

// SubmissionCount returns how many teams have a pending decision and
// the total team count.
func (e *Engine) SubmissionCount() (submitted, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.teams {
		if t.hasDecision {
			submitted++
		}
	}
	return submitted, len(e.teams)
}

func (e *Engine) DebugInfo() DebugInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	display := make(map[string]string, len(e.market.weights))
	for attr, w := range e.market.weights {
		display[attr] = fmt.Sprintf("%.0f%%", w*100)
	}
	return DebugInfo{
		Weights:        display,
		HotAttribute:   e.market.HotAttribute(),
		Standard:       e.market.Standard(),
		Attributes:     e.market.Attributes(),
		Shifted:        e.shifted,
		ShiftAttribute: e.shiftAttr,
	}
}

// History returns the settlement reports recorded so far.
func (e *Engine) History() []RoundReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RoundReport(nil), e.history...)
}

// TeamFeedback relays the team's most recent outcomes through the
// narrative collaborator and returns its text unmodified. Teams with no
// settled deals get placeholder reviews against the current hot
// attribute, so the lobby is never silent.
func (e *Engine) TeamFeedback(teamName string) []FeedbackItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.feedback == nil {
		return nil
	}
	t, ok := e.teams[teamName]
	if !ok {
		return nil
	}

	attrs := e.market.Attributes()
	recent := t.recent
	if len(recent) > feedbackDeals {
		recent = recent[len(recent)-feedbackDeals:]
	}

	items := make([]FeedbackItem, 0, feedbackDeals)
	for _, rec := range recent {
		items = append(items, FeedbackItem{
			Text: e.feedback.Generate(rec.Hot, rec.Won, attrs),
			Won:  rec.Won,
		})
	}
	if len(items) == 0 {
		hot := e.market.HotAttribute()
		for i := 0; i < placeholderFeedbacks; i++ {
			won := e.rand.Intn(2) == 0
			items = append(items, FeedbackItem{
				Text: e.feedback.Generate(hot, won, attrs),
				Won:  won,
			})
		}
	}
	return items
}
