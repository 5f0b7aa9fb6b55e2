package game

import "time"

// SpeedStep maps a submission-offset ceiling to a build multiplier.
// Steps are ordered ascending by MaxOffset; a submission past the last
// step earns no build at all.
type SpeedStep struct {
	MaxOffset  time.Duration
	Multiplier float64
}

// Config fixes every game tunable at construction time. Start from
// DefaultConfig and override fields; the engine never mutates it.
type Config struct {
	RoundDuration time.Duration
	TotalRounds   int
	ShiftRound    int

	DecayRate    float64
	ReferenceBar int
	StartingBar  int

	BaseBuildAmount  int
	BasePayout       int
	MarginMultiplier float64
	SpeedSteps       []SpeedStep

	MaxPlayersPerTeam int

	WeightDriftSpan    float64
	WeightFloor        float64
	NewAttributeWeight float64

	BaseAttributes  []string
	ShiftCandidates []string

	// Seed fixes the engine's random stream; 0 seeds from the clock.
	Seed int64
	// Clock defaults to the system clock when nil.
	Clock Clock
}

func DefaultConfig() Config {
	return Config{
		RoundDuration:    30 * time.Second,
		TotalRounds:      30,
		ShiftRound:       15,
		DecayRate:        0.05,
		ReferenceBar:     42,
		StartingBar:      42,
		BaseBuildAmount:  20,
		BasePayout:       30,
		MarginMultiplier: 1.2,
		SpeedSteps: []SpeedStep{
			{MaxOffset: 10 * time.Second, Multiplier: 1.5},
			{MaxOffset: 20 * time.Second, Multiplier: 1.3},
			{MaxOffset: 30 * time.Second, Multiplier: 1.0},
		},
		MaxPlayersPerTeam:  8,
		WeightDriftSpan:    0.03,
		WeightFloor:        0.05,
		NewAttributeWeight: 0.25,
		BaseAttributes:     []string{"spiciness", "flavor", "portion", "ambiance"},
		ShiftCandidates:    []string{"authenticity", "presentation", "speed_of_service", "value"},
	}
}
