package main

import (
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"os"
	"sort"
	"time"

	"chilitycoon/internal/bot"
	"chilitycoon/internal/config"
	"chilitycoon/internal/game"
	"chilitycoon/internal/session"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	logLevel := new(slog.LevelVar)
	logLevel.Set(slog.LevelWarn)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg := config.LoadSimFromEnv()

	root := &cobra.Command{
		Use:          "chili-sim",
		Short:        "Chili Tycoon balance simulator",
		SilenceUsage: true,
	}
	root.PersistentFlags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed (0 = time-based)")
	root.AddCommand(
		newRunCmd(&cfg, logger),
		newDemoCmd(&cfg, logLevel, logger),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRunCmd(cfg *config.SimConfig, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run many headless games and report balance statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := cfg.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			rng := mathrand.New(mathrand.NewSource(seed))

			scfg := session.Config{PollInterval: time.Millisecond}
			agg := newAggregate()
			for i := 0; i < cfg.Games; i++ {
				res, err := playGame(cmd.Context(), cfg, rng.Int63(), scfg, nopBroadcaster{}, logger)
				if err != nil {
					return err
				}
				agg.record(res)
			}
			agg.print(cfg.Games, seed)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.Games, "games", cfg.Games, "number of games to simulate")
	return cmd
}

func newDemoCmd(cfg *config.SimConfig, logLevel *slog.LevelVar, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Play one game with round-by-round output",
		RunE: func(cmd *cobra.Command, args []string) error {
			logLevel.Set(slog.LevelInfo)
			seed := cfg.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			// The demo paces itself like a live session: results stay
			// up for the configured pause before the next round opens.
			res, err := playGame(cmd.Context(), cfg, seed, cfg.SessionConfig(), newConsoleBroadcaster(), logger)
			if err != nil {
				return err
			}
			printFinal(res)
			return nil
		},
	}
}

// gameResult is one finished game's outcome, keyed by team name.
type gameResult struct {
	FinalCash map[string]int
	RoundWins map[string]int
	Rounds    int
	Winner    string
	ShiftAttr string
}

// playGame drives one full game on a fake clock: every bot decides and
// submits at its policy's delay, the round settles, and the clock jumps
// straight to the next round. The session config controls only the
// real-time pauses between settle and advance; headless runs pass zero
// pauses so wall time never enters the simulation.
func playGame(ctx context.Context, cfg *config.SimConfig, seed int64, scfg session.Config, bcast session.Broadcaster, logger *slog.Logger) (gameResult, error) {
	clk := game.NewFakeClock(time.Now())

	gcfg := cfg.GameConfig()
	gcfg.Seed = seed
	gcfg.Clock = clk

	rng := mathrand.New(mathrand.NewSource(seed + 1))
	engine := game.NewEngine(gcfg, logger, newReviewGenerator(rng))
	roster := bot.DefaultRoster(rng)
	for _, b := range roster {
		engine.AddParticipant(b.Team, uuid.NewString())
	}

	coord := session.New(scfg, engine, bcast, logger)
	if err := coord.Start(); err != nil {
		return gameResult{}, err
	}

	res := gameResult{
		FinalCash: make(map[string]int, len(roster)),
		RoundWins: make(map[string]int, len(roster)),
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		playRound(engine, coord, clk, roster)

		done, err := coord.Step(ctx)
		if err != nil {
			return res, err
		}
		res.Rounds++
		for name, tr := range lastReport(engine).Results {
			if tr.Won {
				res.RoundWins[name]++
			}
			res.FinalCash[name] = tr.Cash
		}
		if done {
			break
		}
	}

	res.Winner = topTeam(res.FinalCash)
	res.ShiftAttr = engine.DebugInfo().ShiftAttribute
	return res, nil
}

// playRound submits every bot's decision in delay order, moving the
// fake clock to each submission instant so speed bonuses resolve the
// way they would in real time.
func playRound(engine *game.Engine, coord *session.Coordinator, clk *game.FakeClock, roster []bot.Bot) {
	state := engine.GameState()
	hot := engine.DebugInfo().HotAttribute

	type queued struct {
		team  string
		attr  string
		delay time.Duration
	}
	plan := make([]queued, 0, len(roster))
	for _, b := range roster {
		seen := ""
		if b.Policy.Name() == "smart" {
			seen = hot
		}
		plan = append(plan, queued{
			team:  b.Team,
			attr:  b.Policy.Decide(state.Attributes, seen),
			delay: b.Policy.Delay(),
		})
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].delay < plan[j].delay })

	start := clk.Now()
	for _, q := range plan {
		clk.Set(start.Add(q.delay))
		coord.Submit(q.team, q.attr)
	}
}

func lastReport(engine *game.Engine) game.RoundReport {
	history := engine.History()
	if len(history) == 0 {
		return game.RoundReport{}
	}
	return history[len(history)-1]
}

func topTeam(cash map[string]int) string {
	best, bestCash := "", -1
	names := make([]string, 0, len(cash))
	for name := range cash {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if cash[name] > bestCash {
			best, bestCash = name, cash[name]
		}
	}
	return best
}
