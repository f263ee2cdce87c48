package catdist

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/rawblock/splitscore/internal/contract"
)

// Correction selects how raw counts become probabilities.
type Correction int

const (
	// NoCorrection divides each count by the total.
	NoCorrection Correction = iota
	// Laplace adds k to every known category: (count+k)/(total+N·k).
	Laplace
	// EvidenceProjection caps the evidence against each category at
	// log₂(1 + total·factor), so small samples cannot produce near-certain
	// predictions.
	EvidenceProjection
)

// DefaultEvidenceFactor is used when Options.EvidenceFactor is zero.
const DefaultEvidenceFactor = 1.0

var correctionNames = [...]string{
	NoCorrection:       "none",
	Laplace:            "laplace",
	EvidenceProjection: "evidence",
}

func (c Correction) String() string {
	if c < 0 || int(c) >= len(correctionNames) {
		return "unknown"
	}
	return correctionNames[c]
}

// ParseCorrection maps "none", "laplace" or "evidence" to a Correction.
func ParseCorrection(name string) (Correction, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	if norm == "" {
		return NoCorrection, nil
	}
	for i, n := range correctionNames {
		if n == norm {
			return Correction(i), nil
		}
	}
	return 0, errors.Errorf("unknown correction %q", name)
}

// Options parameterise frequency-count construction.
type Options struct {
	Correction Correction
	// LaplaceK is the per-category pseudo-count. Zero means 1/total.
	LaplaceK float64
	// EvidenceFactor scales the evidence ceiling. Zero means
	// DefaultEvidenceFactor.
	EvidenceFactor float64
}

func (o Options) evidenceFactor() float64 {
	if o.EvidenceFactor == 0 {
		return DefaultEvidenceFactor
	}
	contract.Require(o.EvidenceFactor > 0, "EvidenceProjection", "evidence factor %g must be positive", o.EvidenceFactor)
	return o.EvidenceFactor
}

// laplace fills probs with (count+k)/(total+N·k) for known categories and
// count/(total+N·k) for the unknown slot.
func laplace(probs, counts []float64, total, k float64) {
	if k == 0 {
		k = 1 / total
	}
	contract.Require(k > 0, "Laplace", "pseudo-count %g must be positive", k)
	n := float64(len(counts) - 1)
	denom := total + n*k
	probs[Unknown] = counts[Unknown] / denom
	for i := 1; i < len(counts); i++ {
		probs[i] = (counts[i] + k) / denom
	}
}

// projectEvidence turns each known count into evidence -log₂(p), projects
// it onto [0, ceiling] with the homogeneous map e ↦ e·c/(e+c), and converts
// back with 2^-e. Zero counts carry infinite evidence and land exactly on the
// ceiling. The unknown slot takes whatever mass the known categories leave;
// when that is within SumTolerance of zero (or negative) it is pinned to 0
// and the known categories are renormalised.
func projectEvidence(probs, counts []float64, total, factor float64) {
	ceiling := math.Log2(1 + total*factor)
	known := probs[1:]
	for i := range known {
		p := counts[i+1] / total
		projected := ceiling
		if p > 0 {
			e := -math.Log2(p)
			projected = e * ceiling / (e + ceiling)
		}
		known[i] = math.Exp2(-projected)
	}

	sum := floats.Sum(known)
	rest := 1 - sum
	if rest <= SumTolerance {
		probs[Unknown] = 0
		floats.Scale(1/sum, known)
		return
	}
	probs[Unknown] = rest
}
