package catdist

import (
	"math"

	"github.com/rawblock/splitscore/internal/contract"
)

// A tie-breaking order is stored as ranks: ranks[cat] is the preference of
// cat, 0 being the most preferred. A valid order is a permutation of
// 0..numCategories.

// DefaultTiebreakingOrder prefers categories in index order, with unknown
// last.
func DefaultTiebreakingOrder(numCategories int) []int {
	ranks := make([]int, numCategories+1)
	for cat := 1; cat <= numCategories; cat++ {
		ranks[cat] = cat - 1
	}
	ranks[Unknown] = numCategories
	return ranks
}

// TiebreakingOrder ranks indices by descending weight. Equal weights keep
// index order.
func TiebreakingOrder(weights []float64) []int {
	return MergeTiebreakingOrder(weights, nil)
}

// MergeTiebreakingOrder ranks indices by descending weight and resolves
// tied weights with prior, an existing order over the same indices. With a
// nil prior, ties fall back to index order.
func MergeTiebreakingOrder(weights []float64, prior []int) []int {
	if prior != nil {
		contract.Require(len(prior) == len(weights), "MergeTiebreakingOrder",
			"prior order has %d entries for %d weights", len(prior), len(weights))
		CheckTiebreakingOrder(prior)
	}
	ranks := make([]int, len(weights))
	taken := make([]bool, len(weights))
	for r := range ranks {
		best := -1
		for i, w := range weights {
			if taken[i] {
				continue
			}
			switch {
			case best < 0:
				best = i
			case tied(w, weights[best]):
				if prior != nil && prior[i] < prior[best] {
					best = i
				}
			case w > weights[best]:
				best = i
			}
		}
		taken[best] = true
		ranks[best] = r
	}
	return ranks
}

// CheckTiebreakingOrder panics unless ranks is a permutation of
// 0..len(ranks)-1.
func CheckTiebreakingOrder(ranks []int) {
	const op = "CheckTiebreakingOrder"
	seen := make([]bool, len(ranks))
	for cat, r := range ranks {
		contract.Require(r >= 0 && r < len(ranks), op, "rank %d of category %d out of range [0,%d)", r, cat, len(ranks))
		contract.Require(!seen[r], op, "rank %d assigned twice", r)
		seen[r] = true
	}
}

// SetTiebreakingOrder replaces the order after checking it is complete.
func (d *Distribution) SetTiebreakingOrder(ranks []int) {
	contract.Require(len(ranks) == len(d.probs), "SetTiebreakingOrder",
		"order has %d entries for %d slots", len(ranks), len(d.probs))
	CheckTiebreakingOrder(ranks)
	d.ranks = append(d.ranks[:0], ranks...)
}

// TiebreakingOrder returns a copy of the current ranks.
func (d *Distribution) TiebreakingOrder() []int {
	return append([]int(nil), d.ranks...)
}

// SetPreferredCategory ranks cat first and the remaining known categories
// in index order. Unknown is ranked last unless it is cat.
func (d *Distribution) SetPreferredCategory(cat int) {
	d.requireCategory("SetPreferredCategory", cat)
	d.ranks[cat] = 0
	next := 1
	for i := 1; i < len(d.ranks); i++ {
		if i == cat {
			continue
		}
		d.ranks[i] = next
		next++
	}
	if cat != Unknown {
		d.ranks[Unknown] = next
	}
}

// tied reports whether a and b are equal within TieTolerance, relative to
// their magnitude once it exceeds one.
func tied(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= TieTolerance*scale
}
