package entropy

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/pkg/models"
)

// Information-theoretic primitives for split selection.
//
// Every quantity is in bits (log₂). Count distributions carry float weights
// with index 0 reserved for "unknown". Terms whose count is ≈0 contribute no
// mass (0·log 0 = 0) and are skipped rather than evaluated.
//
// Undefined results (no weight at all) are reported through the boolean of a
// (value, ok) pair, never as a magic number. Misuse such as negative weights
// or a non-positive explicit total panics with *contract.Violation.

// Epsilon is the magnitude below which a weight or an information quantity
// is treated as zero.
const Epsilon = 1e-9

// Entropy returns H(Y) = -Σ p·log₂(p) of a label distribution. ok is false
// when the distribution carries no weight.
func Entropy(labels models.CountDist) (h float64, ok bool) {
	requireNonNegative("Entropy", labels)
	total := floats.Sum(labels)
	if total < Epsilon {
		return 0, false
	}
	return EntropyWithTotal(labels, total), true
}

// EntropyWithTotal is Entropy with a caller-supplied total weight, which must
// be positive.
func EntropyWithTotal(labels models.CountDist, total float64) float64 {
	const op = "EntropyWithTotal"
	contract.Require(total > 0, op, "total weight %g must be positive", total)
	requireNonNegative(op, labels)

	var h float64
	for _, n := range labels {
		if n < Epsilon {
			continue
		}
		p := n / total
		h -= p * math.Log2(p)
	}
	return ClampNonNegative(op, h)
}

// ConditionalEntropy returns
//
//	H(Y|X) = -(1/N) Σ_{x,y} n(x,y)·log₂(n(x,y)/n(x))
//
// for a [label][split] matrix, its split marginal n(x) and total weight N.
func ConditionalEntropy(m models.SplitMatrix, splits models.CountDist, total float64) float64 {
	const op = "ConditionalEntropy"
	contract.Require(total > 0, op, "total weight %g must be positive", total)
	requireShape(op, m, splits)

	var sum float64
	for _, row := range m {
		for x, nxy := range row {
			nx := splits[x]
			if nx < Epsilon || nxy < Epsilon {
				continue
			}
			sum += nxy * math.Log2(nxy/nx)
		}
	}
	return ClampNonNegative(op, -sum/total)
}

// MutualInfo returns I(X;Y) = H(Y) - H(Y|X) given the precomputed label
// entropy.
func MutualInfo(labelEntropy float64, m models.SplitMatrix, splits models.CountDist, total float64) float64 {
	cond := ConditionalEntropy(m, splits, total)
	return ClampNonNegative("MutualInfo", labelEntropy-cond)
}

// JMeasure returns the weighted J-measure of split bucket x:
//
//	Σ_y n(x,y)·log₂(N·n(x,y) / (n(x)·n(y)))
//
// Dividing by N gives the J-measure in bits per instance.
func JMeasure(m models.SplitMatrix, splits, labels models.CountDist, total float64, x int) float64 {
	const op = "JMeasure"
	contract.Require(total > 0, op, "total weight %g must be positive", total)
	requireShape(op, m, splits)
	contract.Require(len(labels) == len(m), op, "label distribution has %d entries, matrix has %d rows", len(labels), len(m))
	contract.Require(x >= 0 && x < len(splits), op, "split index %d out of range [0,%d)", x, len(splits))

	nx := splits[x]
	if nx < Epsilon {
		return 0
	}
	var j float64
	for y, row := range m {
		nxy := row[x]
		ny := labels[y]
		if nxy < Epsilon || ny < Epsilon {
			continue
		}
		j += nxy * math.Log2(total*nxy/(nx*ny))
	}
	return ClampNonNegative(op, j)
}

// ClampNonNegative absorbs floating-point round-off just below zero. Anything
// further below zero means the inputs were inconsistent and op panics.
func ClampNonNegative(op string, v float64) float64 {
	if v >= 0 {
		return v
	}
	contract.Require(v > -Epsilon*1e3, op, "result %g is negative", v)
	return 0
}

func requireNonNegative(op string, d models.CountDist) {
	for i, w := range d {
		if w < 0 || math.IsNaN(w) {
			contract.Fail(op, "invalid weight %g at index %d", w, i)
		}
	}
}

func requireShape(op string, m models.SplitMatrix, splits models.CountDist) {
	for y, row := range m {
		contract.Require(len(row) == len(splits), op,
			"row %d has %d columns, split distribution has %d entries", y, len(row), len(splits))
		for x, w := range row {
			if w < 0 || math.IsNaN(w) {
				contract.Fail(op, "invalid weight %g at (%d,%d)", w, y, x)
			}
		}
	}
}
