package game

import (
	mathrand "math/rand"
)

// Market holds the active attribute set and its weights. The attribute
// list is append-only and grows at most once per game; weights sum to
// 1.0 and stay at or above the configured floor after every mutation.
type Market struct {
	attributes []string
	weights    map[string]float64

	floor     float64
	driftSpan float64
	newWeight float64
	refBar    float64

	rand *mathrand.Rand
}

func newMarket(cfg Config, rng *mathrand.Rand) *Market {
	m := &Market{
		attributes: append([]string(nil), cfg.BaseAttributes...),
		weights:    make(map[string]float64, len(cfg.BaseAttributes)),
		floor:      cfg.WeightFloor,
		driftSpan:  cfg.WeightDriftSpan,
		newWeight:  cfg.NewAttributeWeight,
		refBar:     float64(cfg.ReferenceBar),
		rand:       rng,
	}
	for _, attr := range m.attributes {
		m.weights[attr] = m.rand.Float64() + 0.1
	}
	m.renormalize()
	return m
}

// drift nudges every weight by an independent uniform perturbation in
// [-driftSpan, +driftSpan], then restores the floor and the unit sum.
// Called once per round advance, including the shift round and the
// final advance before game over.
func (m *Market) drift() {
	for _, attr := range m.attributes {
		d := (m.rand.Float64()*2 - 1) * m.driftSpan
		next := m.weights[attr] + d
		if next < m.floor {
			next = m.floor
		}
		m.weights[attr] = next
	}
	m.renormalize()
}

// addAttribute appends a new attribute at the configured starting
// weight. No-op when already active; the engine calls this at most once
// per game.
func (m *Market) addAttribute(attr string) {
	if m.has(attr) {
		return
	}
	m.attributes = append(m.attributes, attr)
	m.weights[attr] = m.newWeight
	m.renormalize()
}

// renormalize scales weights to sum 1.0 while keeping every weight at or
// above the floor. Clamping a low weight up steals mass from the rest,
// which can push another weight under the floor, so the fix runs to a
// fixed point (at most one pass per attribute).
func (m *Market) renormalize() {
	var total float64
	for _, w := range m.weights {
		total += w
	}
	if total <= 0 {
		return
	}
	for attr, w := range m.weights {
		m.weights[attr] = w / total
	}

	for range m.attributes {
		floored := 0.0
		rest := make([]string, 0, len(m.attributes))
		for _, attr := range m.attributes {
			if m.weights[attr] <= m.floor {
				m.weights[attr] = m.floor
				floored += m.floor
			} else {
				rest = append(rest, attr)
			}
		}
		if len(rest) == 0 {
			return
		}
		var restSum float64
		for _, attr := range rest {
			restSum += m.weights[attr]
		}
		scale := (1 - floored) / restSum
		settled := true
		for _, attr := range rest {
			w := m.weights[attr] * scale
			m.weights[attr] = w
			if w < m.floor {
				settled = false
			}
		}
		if settled {
			return
		}
	}
}

func (m *Market) has(attr string) bool {
	_, ok := m.weights[attr]
	return ok
}

// Standard is the score a team must strictly beat to win the round's
// deal: the reference bar weighted across current weights. Recomputed on
// demand because weights move every round.
func (m *Market) Standard() float64 {
	var sum float64
	for _, w := range m.weights {
		sum += m.refBar * w
	}
	return sum
}

// HotAttribute is the highest-weighted attribute. Ties break toward the
// earlier attribute in insertion order, which is stable for the whole
// game since the attribute list only appends.
func (m *Market) HotAttribute() string {
	hot := ""
	best := -1.0
	for _, attr := range m.attributes {
		if w := m.weights[attr]; w > best {
			hot, best = attr, w
		}
	}
	return hot
}

func (m *Market) Attributes() []string {
	return append([]string(nil), m.attributes...)
}

func (m *Market) Weights() map[string]float64 {
	return copyWeights(m.weights)
}

func copyWeights(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for attr, w := range src {
		out[attr] = w
	}
	return out
}
