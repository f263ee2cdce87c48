package catdist

import (
	"math"

	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/pkg/models"
)

// SetLossMatrix attaches a loss matrix, or detaches it when l is nil. While
// attached, BestCategory minimises expected loss instead of maximising
// probability.
func (d *Distribution) SetLossMatrix(l *models.LossMatrix) {
	const op = "SetLossMatrix"
	if l == nil {
		d.loss = nil
		return
	}
	n := d.NumCategories()
	contract.Require(l.NumCategories() == n, op, "loss matrix is %d×%d for %d categories", l.NumCategories(), l.NumCategories(), n)
	for t, row := range l.Loss {
		contract.Require(len(row) == n, op, "loss row %d has %d entries, want %d", t+1, len(row), n)
		for p, v := range row {
			if v < 0 || math.IsNaN(v) {
				contract.Fail(op, "invalid loss %g for (%d,%d)", v, t+1, p+1)
			}
		}
	}
	d.loss = l
}

// HasLossMatrix reports whether decisions are loss-driven.
func (d *Distribution) HasLossMatrix() bool { return d.loss != nil }

// ExpectedLoss returns, for each prediction 1..N, Σ_t p(t)·loss(t, pred)
// over the known true categories. Slot 0 is unused and left at zero since
// the loss matrix has no unknown prediction.
func (d *Distribution) ExpectedLoss() []float64 {
	contract.Require(d.loss != nil, "ExpectedLoss", "no loss matrix attached")
	n := d.NumCategories()
	out := make([]float64, n+1)
	for pred := 1; pred <= n; pred++ {
		var sum float64
		for t := 1; t <= n; t++ {
			sum += d.probs[t] * d.loss.At(t, pred)
		}
		out[pred] = sum
	}
	return out
}

// BestCategory resolves the distribution to one category and returns it with
// a copy of the probability vector.
//
// Without a loss matrix the most probable category wins. With one, the
// category of least expected loss wins and unknown is never a candidate.
// Either way, ties go to the category ranked first by the tie-breaking
// order. Predicting unknown panics unless allowUnknown is set.
func (d *Distribution) BestCategory(allowUnknown bool) (int, []float64) {
	best := -1
	if d.loss == nil {
		for cat, p := range d.probs {
			if best < 0 || d.prefer(p, d.probs[best], cat, best, false) {
				best = cat
			}
		}
		contract.Require(best != Unknown || allowUnknown, "BestCategory",
			"unknown predicted with probability %g", d.probs[Unknown])
		return best, d.Scores()
	}

	loss := d.ExpectedLoss()
	for cat := 1; cat < len(loss); cat++ {
		if best < 0 || d.prefer(loss[cat], loss[best], cat, best, true) {
			best = cat
		}
	}
	return best, d.Scores()
}

// prefer reports whether candidate (value v, category cat) beats the
// incumbent. lower selects minimisation.
func (d *Distribution) prefer(v, incumbent float64, cat, best int, lower bool) bool {
	if tied(v, incumbent) {
		return d.ranks[cat] < d.ranks[best]
	}
	if lower {
		return v < incumbent
	}
	return v > incumbent
}
