package catdist

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/pkg/models"
)

// Unknown is the category index reserved for "unknown".
const Unknown = models.UnknownIndex

const (
	// SumTolerance bounds how far the probabilities may stray from summing
	// to one, and how close to zero the unknown slot must be to get pinned.
	SumTolerance = 1e-6
	// TieTolerance is the relative gap under which two probabilities or two
	// expected losses are treated as tied.
	TieTolerance = 1e-9
	// zeroWeight is the total below which a count vector is considered empty.
	zeroWeight = 1e-9
)

// Distribution is a predicted category distribution: one probability per
// category plus the unknown slot at index 0, a tie-breaking order, and an
// optional loss matrix that switches the decision rule to minimum expected
// loss. Every setter recomputes the whole probability vector.
//
// A Distribution is a single-owner value and is not safe for concurrent use.
type Distribution struct {
	probs []float64
	ranks []int
	loss  *models.LossMatrix
	names []string
}

func newDistribution(numCategories int) *Distribution {
	contract.Require(numCategories >= 1, "catdist", "need at least one category, got %d", numCategories)
	return &Distribution{
		probs: make([]float64, numCategories+1),
		ranks: DefaultTiebreakingOrder(numCategories),
	}
}

// NewCertain returns a distribution putting all mass on cat, with cat first
// in the tie-breaking order.
func NewCertain(numCategories, cat int) *Distribution {
	d := newDistribution(numCategories)
	d.SetCertain(cat)
	return d
}

// NewFromCounts builds a distribution from raw frequency counts (index 0 is
// the unknown count) with the given correction.
func NewFromCounts(counts models.CountDist, opts Options) *Distribution {
	contract.Require(len(counts) >= 2, "NewFromCounts", "counts need the unknown slot and at least one category, got %d entries", len(counts))
	d := newDistribution(len(counts) - 1)
	d.SetFrequencyScores(counts, opts)
	return d
}

// NewFromWeights builds a distribution from externally supplied category
// weights. The known categories share 1-unknownProb in proportion to their
// weights; weights[0] is ignored.
func NewFromWeights(weights models.CountDist, unknownProb float64) *Distribution {
	contract.Require(len(weights) >= 2, "NewFromWeights", "weights need the unknown slot and at least one category, got %d entries", len(weights))
	d := newDistribution(len(weights) - 1)
	d.SetWeightedScores(weights, unknownProb)
	return d
}

// NumCategories excludes the unknown slot.
func (d *Distribution) NumCategories() int { return len(d.probs) - 1 }

// Scores returns a copy of the probability vector.
func (d *Distribution) Scores() []float64 {
	out := make([]float64, len(d.probs))
	copy(out, d.probs)
	return out
}

// Probability returns the probability of cat.
func (d *Distribution) Probability(cat int) float64 {
	d.requireCategory("Probability", cat)
	return d.probs[cat]
}

// SetCertain puts probability 1 on cat and 0 elsewhere, and makes cat the
// preferred category.
func (d *Distribution) SetCertain(cat int) {
	d.requireCategory("SetCertain", cat)
	for i := range d.probs {
		d.probs[i] = 0
	}
	d.probs[cat] = 1
	d.SetPreferredCategory(cat)
}

// SetFrequencyScores recomputes the vector from raw counts. An all-zero
// count vector yields an even distribution over the known categories.
func (d *Distribution) SetFrequencyScores(counts models.CountDist, opts Options) {
	const op = "SetFrequencyScores"
	contract.Require(len(counts) == len(d.probs), op, "got %d counts for %d slots", len(counts), len(d.probs))
	for i, c := range counts {
		if c < 0 || math.IsNaN(c) {
			contract.Fail(op, "invalid count %g at index %d", c, i)
		}
	}

	total := floats.Sum(counts)
	if total < zeroWeight {
		d.setEven(1)
		return
	}

	switch opts.Correction {
	case NoCorrection:
		for i, c := range counts {
			d.probs[i] = c / total
		}
	case Laplace:
		laplace(d.probs, counts, total, opts.LaplaceK)
	case EvidenceProjection:
		projectEvidence(d.probs, counts, total, opts.evidenceFactor())
	default:
		contract.Fail(op, "unknown correction %d", int(opts.Correction))
	}
	d.checkSum(op)
}

// SetWeightedScores recomputes the vector from external weights, giving the
// unknown slot unknownProb and the known categories the rest.
func (d *Distribution) SetWeightedScores(weights models.CountDist, unknownProb float64) {
	const op = "SetWeightedScores"
	contract.Require(len(weights) == len(d.probs), op, "got %d weights for %d slots", len(weights), len(d.probs))
	contract.Require(unknownProb >= 0 && unknownProb <= 1, op, "unknown probability %g outside [0,1]", unknownProb)
	known := weights[1:]
	for i, w := range known {
		if w < 0 || math.IsNaN(w) {
			contract.Fail(op, "invalid weight %g at index %d", w, i+1)
		}
	}

	sum := floats.Sum(known)
	if sum < zeroWeight {
		d.setEven(1 - unknownProb)
		d.probs[Unknown] = unknownProb
		return
	}
	d.probs[Unknown] = unknownProb
	for i, w := range known {
		d.probs[i+1] = w / sum * (1 - unknownProb)
	}
	d.checkSum(op)
}

// setEven spreads mass evenly over the known categories.
func (d *Distribution) setEven(mass float64) {
	n := float64(d.NumCategories())
	d.probs[Unknown] = 0
	for i := 1; i < len(d.probs); i++ {
		d.probs[i] = mass / n
	}
}

func (d *Distribution) checkSum(op string) {
	sum := floats.Sum(d.probs)
	contract.Require(math.Abs(sum-1) <= SumTolerance, op, "probabilities sum to %g", sum)
}

func (d *Distribution) requireCategory(op string, cat int) {
	contract.Require(cat >= 0 && cat < len(d.probs), op, "category %d out of range [0,%d]", cat, d.NumCategories())
}

// SetCategoryNames attaches display names for categories 1..N.
func (d *Distribution) SetCategoryNames(names []string) {
	contract.Require(len(names) == d.NumCategories(), "SetCategoryNames",
		"got %d names for %d categories", len(names), d.NumCategories())
	d.names = append([]string(nil), names...)
}

// CategoryName returns the display name of cat.
func (d *Distribution) CategoryName(cat int) string {
	d.requireCategory("CategoryName", cat)
	if cat == Unknown {
		return "?"
	}
	if d.names != nil {
		return d.names[cat-1]
	}
	return fmt.Sprintf("cat%d", cat)
}

func (d *Distribution) String() string {
	var b strings.Builder
	for i, p := range d.probs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %.4f", d.CategoryName(i), p)
	}
	return b.String()
}
