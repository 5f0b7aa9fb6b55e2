package game

import "time"

// Phase is the engine's lifecycle position. The cycle is strict:
// Waiting -> InRound -> Results -> InRound ... -> Waiting after the
// final round.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseInRound
	PhaseResults
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseInRound:
		return "round"
	case PhaseResults:
		return "results"
	default:
		return "unknown"
	}
}

// EventKind tags what AdvanceRound did beyond opening the next round.
type EventKind int

const (
	EventNone EventKind = iota
	EventStructuralShift
	EventGameOver
)

type AdvanceEvent struct {
	Kind EventKind
	// NewAttribute is set only for EventStructuralShift.
	NewAttribute string
}

// SubmitResult reports whether a decision landed. Rejections are
// expected races in a live session, not errors.
type SubmitResult struct {
	Accepted     bool          `json:"accepted"`
	Team         string        `json:"team"`
	Decision     string        `json:"decision"`
	SubmitOffset time.Duration `json:"submit_offset"`
}

// TeamResult is one team's settlement line. Score and Margin are the
// pre-build values: the round's build can never win the round's deal.
type TeamResult struct {
	Won         bool           `json:"won"`
	Decision    string         `json:"decision"`
	Payout      int            `json:"payout"`
	Margin      float64        `json:"margin"`
	Score       float64        `json:"score"`
	Standard    float64        `json:"standard"`
	SpeedBonus  float64        `json:"speed_bonus"`
	BuildAmount int            `json:"build_amount"`
	Cash        int            `json:"cash"`
	Bars        map[string]int `json:"bars"`
}

// RoundReport is the authoritative, immutable record of one settlement.
type RoundReport struct {
	Round        int                   `json:"round"`
	HotAttribute string                `json:"hot_attribute"`
	Weights      map[string]float64    `json:"weights"`
	Results      map[string]TeamResult `json:"results"`
}

// OutcomeRecord is the compact per-deal history entry kept for feedback.
type OutcomeRecord struct {
	Won     bool               `json:"won"`
	Margin  float64            `json:"margin"`
	Hot     string             `json:"hot"`
	Weights map[string]float64 `json:"weights"`
	Payout  int                `json:"payout"`
}

type LeaderboardRow struct {
	Team    string `json:"team"`
	Cash    int    `json:"cash"`
	Players int    `json:"players"`
}

type GameState struct {
	Phase              string           `json:"phase"`
	Round              int              `json:"round"`
	TotalRounds        int              `json:"total_rounds"`
	Shifted            bool             `json:"shifted"`
	RoundTimeRemaining time.Duration    `json:"round_time_remaining"`
	Attributes         []string         `json:"attributes"`
	Leaderboard        []LeaderboardRow `json:"leaderboard"`
}

type TeamSnapshot struct {
	Cash int            `json:"cash"`
	Bars map[string]int `json:"bars"`
}

// DebugInfo backs the harness's verbose panel.
type DebugInfo struct {
	Weights        map[string]string `json:"weights"`
	HotAttribute   string            `json:"hot_attribute"`
	Standard       float64           `json:"standard"`
	Attributes     []string          `json:"attributes"`
	Shifted        bool              `json:"shifted"`
	ShiftAttribute string            `json:"shift_attribute"`
}

type FeedbackItem struct {
	Text string `json:"text"`
	Won  bool   `json:"won"`
}
