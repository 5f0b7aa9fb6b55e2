package main

import (
	"fmt"
	mathrand "math/rand"
	"sort"
	"strings"
	"time"

	"chilitycoon/internal/game"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)

	barFill  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	barEmpty = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// nopBroadcaster is the headless sink for bulk runs.
type nopBroadcaster struct{}

func (nopBroadcaster) RoundStarted(round, total int, d time.Duration)  {}
func (nopBroadcaster) SubmissionsUpdated(submitted, total int)         {}
func (nopBroadcaster) StructuralShift(attribute string)                {}
func (nopBroadcaster) GameOver(board []game.LeaderboardRow)            {}
func (nopBroadcaster) RoundSettled(report game.RoundReport, feedback map[string][]game.FeedbackItem, board []game.LeaderboardRow) {
}

// consoleBroadcaster prints every lifecycle event for the demo command.
type consoleBroadcaster struct{}

func newConsoleBroadcaster() *consoleBroadcaster { return &consoleBroadcaster{} }

func (*consoleBroadcaster) RoundStarted(round, total int, d time.Duration) {
	accent.Printf("\n== ROUND %d/%d ==\n", round, total)
}

func (*consoleBroadcaster) SubmissionsUpdated(submitted, total int) {
	neutral.Printf("decisions in: %d/%d\n", submitted, total)
}

func (*consoleBroadcaster) RoundSettled(report game.RoundReport, feedback map[string][]game.FeedbackItem, board []game.LeaderboardRow) {
	fmt.Printf("hot attribute: %s\n", warn.Sprint(report.HotAttribute))

	names := make([]string, 0, len(report.Results))
	for name := range report.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tr := report.Results[name]
		verdict := danger.Sprint("LOST")
		if tr.Won {
			verdict = success.Sprint("WON")
		}
		fmt.Printf("%-16s %s  built %s+%d (x%.1f)  score %.1f vs %.1f  payout %d  cash %d\n",
			name, verdict, tr.Decision, tr.BuildAmount, tr.SpeedBonus,
			tr.Score, tr.Standard, tr.Payout, tr.Cash)
		fmt.Println(renderBars(tr.Bars))
		for _, item := range feedback[name] {
			neutral.Printf("  review: %s\n", item.Text)
		}
	}
}

func (*consoleBroadcaster) StructuralShift(attribute string) {
	warn.Printf("\n*** THE MARKET HAS SHIFTED: customers now care about %s ***\n", attribute)
}

func (*consoleBroadcaster) GameOver(board []game.LeaderboardRow) {
	accent.Println("\n== FINAL STANDINGS ==")
	for i, row := range board {
		fmt.Printf("%d. %-16s %d\n", i+1, row.Team, row.Cash)
	}
}

// renderBars draws one compressed gauge line per attribute, two bar
// cells per ten points.
func renderBars(bars map[string]int) string {
	attrs := make([]string, 0, len(bars))
	for attr := range bars {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	var b strings.Builder
	for _, attr := range attrs {
		v := bars[attr]
		filled := v / 5
		if filled > 20 {
			filled = 20
		}
		b.WriteString(fmt.Sprintf("  %-18s %s%s %3d\n",
			attr,
			barFill.Render(strings.Repeat("█", filled)),
			barEmpty.Render(strings.Repeat("░", 20-filled)),
			v,
		))
	}
	return strings.TrimRight(b.String(), "\n")
}

func printFinal(res gameResult) {
	fmt.Println()
	success.Printf("winner after %d rounds: %s\n", res.Rounds, res.Winner)
}

// aggregate accumulates balance statistics across many games.
type aggregate struct {
	gamesWon  map[string]int
	roundWins map[string]int
	totalCash map[string]int
	shifts    map[string]int
	rounds    int
}

func newAggregate() *aggregate {
	return &aggregate{
		gamesWon:  make(map[string]int),
		roundWins: make(map[string]int),
		totalCash: make(map[string]int),
		shifts:    make(map[string]int),
	}
}

func (a *aggregate) record(res gameResult) {
	a.gamesWon[res.Winner]++
	a.rounds += res.Rounds
	if res.ShiftAttr != "" {
		a.shifts[res.ShiftAttr]++
	}
	for name, wins := range res.RoundWins {
		a.roundWins[name] += wins
	}
	for name, cash := range res.FinalCash {
		a.totalCash[name] += cash
	}
}

// print reports per-team game wins, round win rate, and mean final
// cash. Balanced strategies should land within a few points of each
// other on game wins.
func (a *aggregate) print(games int, seed int64) {
	accent.Printf("\n== BALANCE REPORT (%d games, seed %d) ==\n", games, seed)

	names := make([]string, 0, len(a.totalCash))
	for name := range a.totalCash {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%-18s %10s %12s %12s\n", "TEAM", "GAMES WON", "ROUND WIN%", "AVG CASH")
	for _, name := range names {
		winRate := 0.0
		if a.rounds > 0 {
			winRate = float64(a.roundWins[name]) / float64(a.rounds) * 100
		}
		fmt.Printf("%-18s %10d %11.1f%% %12.1f\n",
			name,
			a.gamesWon[name],
			winRate,
			float64(a.totalCash[name])/float64(games),
		)
	}

	if len(a.shifts) > 0 {
		attrs := make([]string, 0, len(a.shifts))
		for attr := range a.shifts {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)
		fmt.Println()
		neutral.Println("shift attribute draws:")
		for _, attr := range attrs {
			fmt.Printf("  %-18s %d\n", attr, a.shifts[attr])
		}
	}
	fmt.Println()
}

// Canned customer reviews for the simulator. Real deployments plug in
// a richer generator behind the same interface.
var (
	winReviews = []string{
		"That %s was unreal, five stars.",
		"Finally a place that gets %s right.",
		"Came for the chili, stayed for the %s.",
	}
	lossReviews = []string{
		"The %s just wasn't there for me.",
		"Everyone's raving about %s and this place missed it.",
		"Decent bowl, but the %s needs work.",
	}
)

type reviewGenerator struct {
	rand *mathrand.Rand
}

func newReviewGenerator(rng *mathrand.Rand) *reviewGenerator {
	return &reviewGenerator{rand: rng}
}

func (g *reviewGenerator) Generate(hot string, won bool, attrs []string) string {
	pool := lossReviews
	if won {
		pool = winReviews
	}
	tmpl := pool[g.rand.Intn(len(pool))]
	return fmt.Sprintf(tmpl, strings.ReplaceAll(hot, "_", " "))
}
