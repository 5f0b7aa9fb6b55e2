// Package session drives a game instance through its rounds. The
// coordinator owns all timing: it polls the engine for round
// completion, settles, pauses for results, advances, and pushes every
// state change through the Broadcaster. The engine itself never waits.
package session

import (
	"context"
	"log/slog"
	"time"

	"chilitycoon/internal/game"
)

// Broadcaster receives game lifecycle notifications. Implementations
// fan the updates out to whatever surface the session runs on; calls
// arrive from the coordinator's goroutine only, never concurrently.
type Broadcaster interface {
	RoundStarted(round, totalRounds int, duration time.Duration)
	SubmissionsUpdated(submitted, total int)
	RoundSettled(report game.RoundReport, feedback map[string][]game.FeedbackItem, leaderboard []game.LeaderboardRow)
	StructuralShift(attribute string)
	GameOver(leaderboard []game.LeaderboardRow)
}

// Config holds the coordinator's pacing knobs.
type Config struct {
	// PollInterval is how often Run checks the engine for completion.
	PollInterval time.Duration
	// ResultsPause is how long the settled report stays up before the
	// next round opens.
	ResultsPause time.Duration
	// ShiftPause is extra dwell time after announcing a structural
	// shift, so the announcement lands before the round timer starts.
	ShiftPause time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 500 * time.Millisecond,
		ResultsPause: 8 * time.Second,
		ShiftPause:   2 * time.Second,
	}
}

type Coordinator struct {
	cfg    Config
	engine *game.Engine
	bcast  Broadcaster
	log    *slog.Logger
}

func New(cfg Config, engine *game.Engine, bcast Broadcaster, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{cfg: cfg, engine: engine, bcast: bcast, log: logger}
}

// Start opens round 1 and announces it. The engine decides whether a
// game may begin; the coordinator only relays.
func (c *Coordinator) Start() error {
	if err := c.engine.Start(); err != nil {
		return err
	}
	c.announceRound()
	return nil
}

// Submit forwards a decision to the engine and, when accepted, pushes a
// fresh submission tally so every surface sees the count move.
func (c *Coordinator) Submit(teamName, attribute string) game.SubmitResult {
	res := c.engine.Submit(teamName, attribute)
	if res.Accepted {
		submitted, total := c.engine.SubmissionCount()
		c.bcast.SubmissionsUpdated(submitted, total)
	}
	return res
}

// Run polls until the context is cancelled or the game ends. One
// settlement per completed round, exactly once.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := c.Step(ctx)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// Step performs one poll iteration: if the open round is complete it
// settles, broadcasts, pauses, and advances. Returns true once the game
// is over. Split out from Run so a harness can drive rounds against a
// fake clock without real sleeps.
func (c *Coordinator) Step(ctx context.Context) (bool, error) {
	if !c.engine.IsRoundComplete() {
		return false, nil
	}

	report, err := c.engine.EndRound()
	if err != nil {
		// Lost the race with another settle path; nothing to do.
		if err == game.ErrNotInRound {
			return false, nil
		}
		return false, err
	}

	feedback := make(map[string][]game.FeedbackItem, len(report.Results))
	for name := range report.Results {
		feedback[name] = c.engine.TeamFeedback(name)
	}
	c.bcast.RoundSettled(report, feedback, c.engine.Leaderboard())

	if err := sleepCtx(ctx, c.cfg.ResultsPause); err != nil {
		return false, err
	}

	ev, err := c.engine.AdvanceRound()
	if err != nil {
		return false, err
	}
	switch ev.Kind {
	case game.EventGameOver:
		c.bcast.GameOver(c.engine.Leaderboard())
		return true, nil
	case game.EventStructuralShift:
		c.bcast.StructuralShift(ev.NewAttribute)
		if err := sleepCtx(ctx, c.cfg.ShiftPause); err != nil {
			return false, err
		}
	}

	c.announceRound()
	return false, nil
}

func (c *Coordinator) announceRound() {
	state := c.engine.GameState()
	c.bcast.RoundStarted(state.Round, state.TotalRounds, state.RoundTimeRemaining)
	c.log.Debug("round open", "round", state.Round)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
