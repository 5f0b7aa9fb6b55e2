package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"chilitycoon/internal/game"
	"chilitycoon/internal/session"
)

// SimConfig is the environment-driven configuration for the simulation
// binary. Every knob has a sane default; unset or malformed values fall
// back silently.
type SimConfig struct {
	RoundDuration time.Duration
	TotalRounds   int
	ShiftRound    int
	DecayRate     float64
	BaseBuild     int
	BasePayout    int
	MarginMult    float64
	ResultsPause  time.Duration
	ShiftPause    time.Duration

	Games   int
	Seed    int64
	Verbose bool
}

func LoadSimFromEnv() SimConfig {
	return SimConfig{
		RoundDuration: envDurationDefault("CHILI_ROUND_DURATION", 30*time.Second),
		TotalRounds:   envIntDefault("CHILI_TOTAL_ROUNDS", 30),
		ShiftRound:    envIntDefault("CHILI_SHIFT_ROUND", 15),
		DecayRate:     envFloatDefault("CHILI_DECAY_RATE", 0.05),
		BaseBuild:     envIntDefault("CHILI_BASE_BUILD", 20),
		BasePayout:    envIntDefault("CHILI_BASE_PAYOUT", 30),
		MarginMult:    envFloatDefault("CHILI_MARGIN_MULT", 1.2),
		ResultsPause:  envDurationDefault("CHILI_RESULTS_PAUSE", 8*time.Second),
		ShiftPause:    envDurationDefault("CHILI_SHIFT_PAUSE", 2*time.Second),
		Games:         envIntDefault("CHILI_SIM_GAMES", 20),
		Seed:          envInt64Default("CHILI_SIM_SEED", 0),
		Verbose:       envBoolDefault("CHILI_SIM_VERBOSE", false),
	}
}

// GameConfig merges the env knobs onto the engine defaults.
func (c SimConfig) GameConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.RoundDuration = c.RoundDuration
	cfg.TotalRounds = c.TotalRounds
	cfg.ShiftRound = c.ShiftRound
	cfg.DecayRate = c.DecayRate
	cfg.BaseBuildAmount = c.BaseBuild
	cfg.BasePayout = c.BasePayout
	cfg.MarginMultiplier = c.MarginMult
	cfg.Seed = c.Seed
	return cfg
}

// SessionConfig derives the coordinator pacing from the env knobs.
func (c SimConfig) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.ResultsPause = c.ResultsPause
	cfg.ShiftPause = c.ShiftPause
	return cfg
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
