package entropy

import (
	"math"

	"github.com/rawblock/splitscore/internal/contract"
	"github.com/rawblock/splitscore/pkg/models"
)

// Split buckets used by the binary threshold partition. Column 0 stays the
// unknown bucket and is always empty here.
const (
	LeftBucket  = 1
	RightBucket = 2
)

// Candidate is one binary partition offered to a CandidateScorer. The
// matrix and marginals are owned by the search and are only valid for the
// duration of the ScoreCandidate call.
type Candidate struct {
	Matrix     models.SplitMatrix
	Splits     models.CountDist
	Labels     models.CountDist
	Total      float64
	Entropy    float64
	HasEntropy bool
}

// CandidateScorer rates a candidate partition. Higher is better; ok is false
// when the partition has no defined score.
type CandidateScorer interface {
	ScoreCandidate(c *Candidate) (score float64, ok bool)
}

// SearchOptions controls FindBestThreshold.
type SearchOptions struct {
	// MinSplit is the minimum weight each side of a threshold must carry.
	MinSplit float64
	// SmoothFactor is the geometric decay applied per neighbour step.
	// Smoothing is off unless both SmoothFactor and SmoothWindow are positive.
	SmoothFactor float64
	SmoothWindow int
}

// CandidateScore records one evaluated threshold.
type CandidateScore struct {
	Threshold  float64 `json:"threshold"`
	LeftWeight float64 `json:"leftWeight"`
	Raw        float64 `json:"raw"`
	Smoothed   float64 `json:"smoothed"`
	Defined    bool    `json:"defined"`
}

// ThresholdResult is the outcome of a threshold search.
type ThresholdResult struct {
	Threshold     float64 `json:"threshold"`
	Score         float64 `json:"score"`
	SmoothedScore float64 `json:"smoothedScore"`
	LeftWeight    float64 `json:"leftWeight"`
	RightWeight   float64 `json:"rightWeight"`
	// NumDistinct counts every distinct observed value.
	NumDistinct int `json:"numDistinct"`
	// NumUsable counts the distinct values bracketing at least one
	// candidate that meets MinSplit.
	NumUsable  int              `json:"numUsable"`
	Candidates []CandidateScore `json:"candidates"`
}

// FindBestThreshold searches a continuous attribute for the binary split
// that maximises the scorer's criterion.
//
// sorted must be ordered by Value. Mass moves from the right bucket to the
// left bucket one observation at a time; a candidate is scored at every
// boundary between distinct values where both sides weigh at least
// MinSplit. Among equal scores the split closest to half the total weight
// wins. The threshold is the midpoint of the two bracketing values.
//
// ok is false when no usable split exists: no weight, fewer than two labels
// with weight, a single distinct value, or no candidate meeting MinSplit.
func FindBestThreshold(sorted []models.LabeledValue, numLabels int, opts SearchOptions, scorer CandidateScorer) (ThresholdResult, bool) {
	const op = "FindBestThreshold"
	contract.Require(numLabels >= 1, op, "need at least one label, got %d", numLabels)
	contract.Require(opts.MinSplit >= 0, op, "minimum split weight %g is negative", opts.MinSplit)
	contract.Require(scorer != nil, op, "nil scorer")

	labels := make(models.CountDist, numLabels+1)
	var total float64
	distinct := 0
	for i, lv := range sorted {
		contract.Require(lv.Weight >= 0, op, "negative weight %g at position %d", lv.Weight, i)
		contract.Require(lv.Label >= 0 && lv.Label <= numLabels, op, "label %d out of range [0,%d]", lv.Label, numLabels)
		contract.Require(!math.IsNaN(lv.Value), op, "NaN value at position %d", i)
		if i > 0 {
			contract.Require(sorted[i-1].Value <= lv.Value, op, "values not sorted at position %d", i)
		}
		if i == 0 || lv.Value != sorted[i-1].Value {
			distinct++
		}
		labels[lv.Label] += lv.Weight
		total += lv.Weight
	}

	result := ThresholdResult{NumDistinct: distinct}
	if total < Epsilon || labels.NonZero(Epsilon) < 2 || distinct < 2 {
		return result, false
	}

	m := models.NewSplitMatrix(numLabels+1, 3)
	for y, w := range labels {
		m[y][RightBucket] = w
	}
	splits := models.CountDist{0, 0, total}
	cand := &Candidate{
		Matrix:     m,
		Splits:     splits,
		Labels:     labels,
		Total:      total,
		Entropy:    EntropyWithTotal(labels, total),
		HasEntropy: true,
	}

	// Empty sides have no split entropy, so a zero MinSplit still needs
	// some weight on each side.
	floor := math.Max(opts.MinSplit, Epsilon)
	var scored []CandidateScore
	var lastUsable float64
	for i := 0; i < len(sorted)-1; i++ {
		lv := sorted[i]
		m[lv.Label][LeftBucket] += lv.Weight
		m[lv.Label][RightBucket] = pinZero(labels[lv.Label] - m[lv.Label][LeftBucket])
		splits[LeftBucket] += lv.Weight
		splits[RightBucket] = pinZero(total - splits[LeftBucket])

		if sorted[i+1].Value == lv.Value {
			continue
		}
		if splits[LeftBucket] < floor || splits[RightBucket] < floor {
			continue
		}
		if result.NumUsable == 0 || lv.Value != lastUsable {
			result.NumUsable++
		}
		result.NumUsable++
		lastUsable = sorted[i+1].Value
		score, ok := scorer.ScoreCandidate(cand)
		scored = append(scored, CandidateScore{
			Threshold:  lv.Value + (sorted[i+1].Value-lv.Value)/2,
			LeftWeight: splits[LeftBucket],
			Raw:        score,
			Smoothed:   score,
			Defined:    ok,
		})
	}
	result.Candidates = scored

	if opts.SmoothFactor > 0 && opts.SmoothWindow > 0 {
		smoothCandidates(scored, opts.SmoothFactor, opts.SmoothWindow)
	}

	best := -1
	half := total / 2
	for i, c := range scored {
		if !c.Defined {
			continue
		}
		if best < 0 || c.Smoothed > scored[best].Smoothed+Epsilon {
			best = i
			continue
		}
		if math.Abs(c.Smoothed-scored[best].Smoothed) <= Epsilon &&
			math.Abs(c.LeftWeight-half) < math.Abs(scored[best].LeftWeight-half) {
			best = i
		}
	}
	if best < 0 {
		return result, false
	}

	b := scored[best]
	result.Threshold = b.Threshold
	result.Score = b.Raw
	result.SmoothedScore = b.Smoothed
	result.LeftWeight = b.LeftWeight
	result.RightWeight = pinZero(total - b.LeftWeight)
	return result, true
}

// Smooth replaces each value with a weighted average of itself and up to
// window neighbours on each side, neighbour k steps away weighing factor^k.
// Windows wider than the sequence simply use what is there.
func Smooth(values []float64, factor float64, window int) []float64 {
	const op = "Smooth"
	contract.Require(factor >= 0, op, "decay factor %g is negative", factor)
	contract.Require(window >= 0, op, "window %d is negative", window)

	out := make([]float64, len(values))
	for i := range values {
		num, den := values[i], 1.0
		w := 1.0
		for k := 1; k <= window; k++ {
			w *= factor
			if i-k >= 0 {
				num += w * values[i-k]
				den += w
			}
			if i+k < len(values) {
				num += w * values[i+k]
				den += w
			}
		}
		out[i] = num / den
	}
	return out
}

// smoothCandidates smooths over the defined candidates only, in order.
func smoothCandidates(cands []CandidateScore, factor float64, window int) {
	idx := make([]int, 0, len(cands))
	raw := make([]float64, 0, len(cands))
	for i, c := range cands {
		if c.Defined {
			idx = append(idx, i)
			raw = append(raw, c.Raw)
		}
	}
	for j, s := range Smooth(raw, factor, window) {
		cands[idx[j]].Smoothed = s
	}
}

// pinZero pins round-off residue to exactly zero.
func pinZero(v float64) float64 {
	if math.Abs(v) < Epsilon {
		return 0
	}
	return v
}
