// Package bot provides automated decision policies for driving games
// without human teams. Policies are pure strategy: the harness owns the
// clock and decides when a bot's delayed submission actually lands.
package bot

import (
	mathrand "math/rand"
	"time"
)

// Policy picks an attribute to invest in each round. Decide sees the
// current attribute list and, if the policy is allowed to read it, the
// market's hot attribute. Delay is how long after round start the bot
// submits; the speed bonus falls out of that.
type Policy interface {
	Name() string
	Decide(attributes []string, hot string) string
	Delay() time.Duration
}

// Random picks uniformly and submits somewhere in the middle of the
// round.
type Random struct {
	rand     *mathrand.Rand
	minDelay time.Duration
	maxDelay time.Duration
}

func NewRandom(rng *mathrand.Rand, minDelay, maxDelay time.Duration) *Random {
	return &Random{rand: rng, minDelay: minDelay, maxDelay: maxDelay}
}

func (*Random) Name() string { return "random" }

func (p *Random) Decide(attributes []string, hot string) string {
	if len(attributes) == 0 {
		return ""
	}
	return attributes[p.rand.Intn(len(attributes))]
}

func (p *Random) Delay() time.Duration {
	return randDelay(p.rand, p.minDelay, p.maxDelay)
}

// FastRandom is Random with an early submission window, trading
// decision quality for the top speed bonus.
type FastRandom struct {
	Random
}

func NewFastRandom(rng *mathrand.Rand, minDelay, maxDelay time.Duration) *FastRandom {
	return &FastRandom{Random{rand: rng, minDelay: minDelay, maxDelay: maxDelay}}
}

func (*FastRandom) Name() string { return "random_fast" }

// HotChaser reads the market and backs the hot attribute most of the
// time, submitting late enough to lose the top speed bonus.
type HotChaser struct {
	rand     *mathrand.Rand
	hotBias  float64
	minDelay time.Duration
	maxDelay time.Duration
}

func NewHotChaser(rng *mathrand.Rand, hotBias float64, minDelay, maxDelay time.Duration) *HotChaser {
	return &HotChaser{rand: rng, hotBias: hotBias, minDelay: minDelay, maxDelay: maxDelay}
}

func (*HotChaser) Name() string { return "smart" }

func (p *HotChaser) Decide(attributes []string, hot string) string {
	if len(attributes) == 0 {
		return ""
	}
	if hot != "" && p.rand.Float64() < p.hotBias {
		return hot
	}
	return attributes[p.rand.Intn(len(attributes))]
}

func (p *HotChaser) Delay() time.Duration {
	return randDelay(p.rand, p.minDelay, p.maxDelay)
}

func randDelay(rng *mathrand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)))
}

// Bot binds a team name to its policy.
type Bot struct {
	Team   string
	Policy Policy
}

// DefaultRoster is the standard three-bot lineup: a fast guesser, a
// slow market reader, and an erratic mid-pace team.
func DefaultRoster(rng *mathrand.Rand) []Bot {
	return []Bot{
		{Team: "Speed Demons", Policy: NewFastRandom(rng, 2*time.Second, 8*time.Second)},
		{Team: "Careful Readers", Policy: NewHotChaser(rng, 0.7, 15*time.Second, 25*time.Second)},
		{Team: "Chaos Crew", Policy: NewRandom(rng, 5*time.Second, 18*time.Second)},
	}
}
